package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codecast/internal/domain"
	"codecast/internal/repository"
	"codecast/internal/repository/mocks"
	"codecast/internal/service"
)

func TestRoomService_CreateRoom_Success(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	rooms := service.NewRoomService(mockRepo)

	ctx := context.Background()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(room *domain.Room) bool {
		return room.RoomID == "room-1" && room.Name == "Standup" && room.Owner == "alice"
	})).
		Return(nil).
		Once()

	room, err := rooms.CreateRoom(ctx, "room-1", "Standup", "alice")

	mockRepo.AssertExpectations(t)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, "room-1", room.RoomID)
	assert.False(t, room.LastActive.IsZero())
	assert.NotNil(t, room.Files)
	assert.NotNil(t, room.WhiteboardElements)
}

func TestRoomService_CreateRoom_DuplicateMapsToRoomExists(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	rooms := service.NewRoomService(mockRepo)

	ctx := context.Background()
	mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Room")).
		Return(repository.ErrDuplicateEntry).
		Once()

	_, err := rooms.CreateRoom(ctx, "room-1", "", "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomExists))
}

func TestRoomService_CreateRoom_EmptyRoomIDRejected(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	rooms := service.NewRoomService(mockRepo)

	_, err := rooms.CreateRoom(context.Background(), "", "name", "owner")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidPayload))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRoomService_FindRoom_NotFound(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	rooms := service.NewRoomService(mockRepo)

	ctx := context.Background()
	mockRepo.On("FindByRoomID", ctx, "missing").
		Return(nil, repository.ErrRoomNotFound).
		Once()

	_, err := rooms.FindRoom(ctx, "missing")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

func TestRoomService_FindRoom_InternalErrorIsOpaque(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	rooms := service.NewRoomService(mockRepo)

	ctx := context.Background()
	mockRepo.On("FindByRoomID", ctx, "room-1").
		Return(nil, errors.New("deadlock")).
		Once()

	_, err := rooms.FindRoom(ctx, "room-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInternalServer))
}
