package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"codecast/internal/domain"
	"codecast/internal/repository"
)

// RoomService backs the HTTP room API. Rooms created here have a durable
// record from the start; rooms that only ever exist through websocket joins
// stay ephemeral and never pass through this service.
type RoomService struct {
	rooms repository.RoomRepository
}

func NewRoomService(rooms repository.RoomRepository) *RoomService {
	if rooms == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{rooms: rooms}
}

func (s *RoomService) CreateRoom(ctx context.Context, roomID, name, owner string) (*domain.Room, error) {
	if roomID == "" {
		return nil, ErrInvalidPayload
	}
	room := &domain.Room{
		RoomID:             roomID,
		Name:               name,
		Owner:              owner,
		LastActive:         time.Now(),
		Files:              domain.FileList{},
		WhiteboardElements: domain.ElementList{},
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrRoomExists
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to create room")
		return nil, ErrInternalServer
	}
	logrus.WithFields(logrus.Fields{"room_id": roomID, "owner": owner}).Info("Room created")
	return room, nil
}

func (s *RoomService) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.rooms.FindByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to look up room")
		return nil, ErrInternalServer
	}
	return room, nil
}
