package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"codecast/internal/domain"
	"codecast/internal/repository"
)

// SyncService loads the durable snapshot delivered to a joining client before
// any live state is forwarded.
type SyncService struct {
	rooms repository.RoomRepository
}

func NewSyncService(rooms repository.RoomRepository) *SyncService {
	if rooms == nil {
		panic("RoomRepository cannot be nil for SyncService")
	}
	return &SyncService{rooms: rooms}
}

// LoadSnapshot returns the room's durable files and whiteboard elements.
// Rooms with no durable record, and read failures, both degrade to empty
// collections: the join sync proceeds either way and live reconciliation
// fills the gap.
func (s *SyncService) LoadSnapshot(ctx context.Context, roomID string) ([]domain.File, []domain.WhiteboardElement) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, repository.ErrRoomNotFound) {
			logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load durable snapshot, joining client starts empty")
		}
		return []domain.File{}, []domain.WhiteboardElement{}
	}
	files := room.Files
	if files == nil {
		files = []domain.File{}
	}
	elements := room.WhiteboardElements
	if elements == nil {
		elements = []domain.WhiteboardElement{}
	}
	return files, elements
}
