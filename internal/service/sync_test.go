package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codecast/internal/domain"
	"codecast/internal/repository"
	"codecast/internal/repository/mocks"
	"codecast/internal/service"
)

func TestSyncService_LoadSnapshot_ReturnsDurableCollections(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	sync := service.NewSyncService(mockRepo)

	ctx := context.Background()
	mockRepo.On("FindByRoomID", ctx, "room-1").
		Return(&domain.Room{
			RoomID: "room-1",
			Files: domain.FileList{
				{ID: "f1", Name: "main.go", Language: "go", Content: "package main"},
			},
			WhiteboardElements: domain.ElementList{
				{ID: "e1", Type: "rect"},
			},
		}, nil).
		Once()

	files, elements := sync.LoadSnapshot(ctx, "room-1")

	mockRepo.AssertExpectations(t)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Name)
	require.Len(t, elements, 1)
	assert.Equal(t, "rect", elements[0].Type)
}

func TestSyncService_LoadSnapshot_UnknownRoomStartsEmpty(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	sync := service.NewSyncService(mockRepo)

	ctx := context.Background()
	mockRepo.On("FindByRoomID", ctx, "ephemeral").
		Return(nil, repository.ErrRoomNotFound).
		Once()

	files, elements := sync.LoadSnapshot(ctx, "ephemeral")

	assert.NotNil(t, files)
	assert.Empty(t, files)
	assert.NotNil(t, elements)
	assert.Empty(t, elements)
}

func TestSyncService_LoadSnapshot_ReadFailureDegradesToEmpty(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	sync := service.NewSyncService(mockRepo)

	ctx := context.Background()
	mockRepo.On("FindByRoomID", ctx, "room-1").
		Return(nil, errors.New("connection refused")).
		Once()

	files, elements := sync.LoadSnapshot(ctx, "room-1")

	assert.Empty(t, files)
	assert.Empty(t, elements)
}

func TestSyncService_LoadSnapshot_NilCollectionsComeBackEmpty(t *testing.T) {
	mockRepo := new(mocks.RoomRepository)
	sync := service.NewSyncService(mockRepo)

	ctx := context.Background()
	mockRepo.On("FindByRoomID", ctx, "room-1").
		Return(&domain.Room{RoomID: "room-1"}, nil).
		Once()

	files, elements := sync.LoadSnapshot(ctx, "room-1")

	assert.NotNil(t, files)
	assert.NotNil(t, elements)
}
