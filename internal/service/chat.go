package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"codecast/internal/protocol"
	"codecast/internal/repository"
	"codecast/internal/tasks"
)

// historyLimit caps the backlog replayed to a joining client.
const historyLimit = 100

// ChatService persists chat messages best-effort after broadcast and serves
// the history backlog for the join sync.
type ChatService struct {
	messages repository.MessageRepository
	enq      Enqueuer
}

func NewChatService(messages repository.MessageRepository, enq Enqueuer) *ChatService {
	if messages == nil || enq == nil {
		panic("MessageRepository and Enqueuer cannot be nil for ChatService")
	}
	return &ChatService{messages: messages, enq: enq}
}

// Persist hands the message to the task queue. Failures are logged and
// dropped; delivery to live peers already happened and is never revoked.
func (s *ChatService) Persist(p protocol.SendMessagePayload) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "username": p.Username})
	task, err := tasks.NewChatPersistTask(tasks.ChatPersistPayload{
		RoomID:   p.RoomID,
		Username: p.Username,
		Message:  p.Message,
		Time:     p.Time,
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to build chat persistence task, message dropped from history")
		return
	}
	if _, err := s.enq.Enqueue(task); err != nil {
		logCtx.WithError(err).Error("Failed to enqueue chat persistence task, message dropped from history")
	}
}

// History returns the room's recent messages oldest-first. A read failure
// degrades to an empty backlog so the join sync never stalls on the chat log.
func (s *ChatService) History(ctx context.Context, roomID string) []protocol.ReceiveMessagePayload {
	records, err := s.messages.ListByRoom(ctx, roomID, historyLimit)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load chat history, joining client gets empty backlog")
		return []protocol.ReceiveMessagePayload{}
	}
	out := make([]protocol.ReceiveMessagePayload, 0, len(records))
	for _, m := range records {
		out = append(out, protocol.ReceiveMessagePayload{
			Username: m.Username,
			Message:  m.Message,
			Time:     m.Time,
		})
	}
	return out
}
