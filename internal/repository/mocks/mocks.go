// Package mocks provides testify mocks for the repository contracts and the
// task enqueuer seam.
package mocks

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"codecast/internal/domain"
)

type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if room, ok := args.Get(0).(*domain.Room); ok {
		return room, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *RoomRepository) UpdateFileContent(ctx context.Context, roomID, fileID, content string) error {
	args := m.Called(ctx, roomID, fileID, content)
	return args.Error(0)
}

func (m *RoomRepository) AddFile(ctx context.Context, roomID string, file domain.File) error {
	args := m.Called(ctx, roomID, file)
	return args.Error(0)
}

func (m *RoomRepository) ReplaceFile(ctx context.Context, roomID string, file domain.File) error {
	args := m.Called(ctx, roomID, file)
	return args.Error(0)
}

func (m *RoomRepository) RenameFile(ctx context.Context, roomID, fileID, name string) error {
	args := m.Called(ctx, roomID, fileID, name)
	return args.Error(0)
}

func (m *RoomRepository) RemoveFile(ctx context.Context, roomID, fileID string) error {
	args := m.Called(ctx, roomID, fileID)
	return args.Error(0)
}

func (m *RoomRepository) ReplaceWhiteboard(ctx context.Context, roomID string, elements []domain.WhiteboardElement) error {
	args := m.Called(ctx, roomID, elements)
	return args.Error(0)
}

func (m *RoomRepository) TouchLastActive(ctx context.Context, roomID string, at time.Time) error {
	args := m.Called(ctx, roomID, at)
	return args.Error(0)
}

type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	if msgs, ok := args.Get(0).([]domain.ChatMessage); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) SetOnline(ctx context.Context, identity, connID string) error {
	args := m.Called(ctx, identity, connID)
	return args.Error(0)
}

func (m *PresenceRepository) RemoveByConn(ctx context.Context, connID string) (string, bool, error) {
	args := m.Called(ctx, connID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *PresenceRepository) ListOnline(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type Enqueuer struct {
	mock.Mock
}

func (m *Enqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(task, opts)
	if info, ok := args.Get(0).(*asynq.TaskInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}
