package repository

import (
	"context"
	"time"

	"codecast/internal/domain"
)

// RoomRepository is the durable store contract for rooms. Mutation methods
// against a room id that has no durable record are silent no-ops: ephemeral
// rooms produce ghost writes by design and the store must tolerate them.
type RoomRepository interface {
	// FindByRoomID returns ErrRoomNotFound when no durable record exists.
	FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error)

	// Create persists a named room. Returns ErrDuplicateEntry when the
	// room id is already taken.
	Create(ctx context.Context, room *domain.Room) error

	// UpdateFileContent replaces the content of one file in the room.
	UpdateFileContent(ctx context.Context, roomID, fileID, content string) error

	// AddFile appends a file to the room's collection. Adding a file whose
	// id already exists replaces it, keeping ids unique per room.
	AddFile(ctx context.Context, roomID string, file domain.File) error

	// ReplaceFile swaps the whole file sub-document matched by file.ID.
	ReplaceFile(ctx context.Context, roomID string, file domain.File) error

	// RenameFile updates only the name of the matched file.
	RenameFile(ctx context.Context, roomID, fileID, name string) error

	// RemoveFile deletes the matched file from the collection.
	RemoveFile(ctx context.Context, roomID, fileID string) error

	// ReplaceWhiteboard swaps the room's entire element collection.
	ReplaceWhiteboard(ctx context.Context, roomID string, elements []domain.WhiteboardElement) error

	// TouchLastActive bumps the room's last-active timestamp.
	TouchLastActive(ctx context.Context, roomID string, at time.Time) error
}

// MessageRepository is the append-only chat log.
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.ChatMessage) error

	// ListByRoom returns up to limit most recent messages in chronological
	// order.
	ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
}
