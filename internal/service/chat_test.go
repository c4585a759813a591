package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codecast/internal/domain"
	"codecast/internal/protocol"
	"codecast/internal/repository/mocks"
	"codecast/internal/service"
	"codecast/internal/tasks"
)

func TestChatService_Persist_EnqueuesChatTask(t *testing.T) {
	mockRepo := new(mocks.MessageRepository)
	mockEnq := new(mocks.Enqueuer)
	chat := service.NewChatService(mockRepo, mockEnq)

	var captured *asynq.Task
	mockEnq.On("Enqueue", mock.AnythingOfType("*asynq.Task"), mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(0).(*asynq.Task) }).
		Return(&asynq.TaskInfo{}, nil).
		Once()

	chat.Persist(protocol.SendMessagePayload{
		RoomID:   "room-1",
		Username: "alice",
		Message:  "hello",
		Time:     "10:15",
	})

	mockEnq.AssertExpectations(t)
	require.NotNil(t, captured)
	assert.Equal(t, tasks.TypeChatPersist, captured.Type())

	var payload tasks.ChatPersistPayload
	require.NoError(t, json.Unmarshal(captured.Payload(), &payload))
	assert.Equal(t, "room-1", payload.RoomID)
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, "hello", payload.Message)
}

func TestChatService_Persist_EnqueueFailureIsDropped(t *testing.T) {
	mockRepo := new(mocks.MessageRepository)
	mockEnq := new(mocks.Enqueuer)
	chat := service.NewChatService(mockRepo, mockEnq)

	mockEnq.On("Enqueue", mock.AnythingOfType("*asynq.Task"), mock.Anything).
		Return(nil, errors.New("broker unavailable")).
		Once()

	assert.NotPanics(t, func() {
		chat.Persist(protocol.SendMessagePayload{RoomID: "room-1", Message: "hi"})
	})
	mockEnq.AssertExpectations(t)
}

func TestChatService_History_ReturnsMessagesInOrder(t *testing.T) {
	mockRepo := new(mocks.MessageRepository)
	mockEnq := new(mocks.Enqueuer)
	chat := service.NewChatService(mockRepo, mockEnq)

	ctx := context.Background()
	mockRepo.On("ListByRoom", ctx, "room-1", mock.AnythingOfType("int")).
		Return([]domain.ChatMessage{
			{RoomID: "room-1", Username: "alice", Message: "first", Time: "10:00"},
			{RoomID: "room-1", Username: "bob", Message: "second", Time: "10:01"},
		}, nil).
		Once()

	history := chat.History(ctx, "room-1")

	mockRepo.AssertExpectations(t)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Message)
	assert.Equal(t, "alice", history[0].Username)
	assert.Equal(t, "second", history[1].Message)
}

func TestChatService_History_ReadFailureDegradesToEmptyBacklog(t *testing.T) {
	mockRepo := new(mocks.MessageRepository)
	mockEnq := new(mocks.Enqueuer)
	chat := service.NewChatService(mockRepo, mockEnq)

	ctx := context.Background()
	mockRepo.On("ListByRoom", ctx, "room-1", mock.AnythingOfType("int")).
		Return(nil, errors.New("db gone")).
		Once()

	history := chat.History(ctx, "room-1")

	assert.NotNil(t, history)
	assert.Empty(t, history)
}
