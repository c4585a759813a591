package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"codecast/internal/domain"
	"codecast/internal/repository"
	"codecast/internal/tasks"
)

// PersistenceHandler executes the durable writes behind each mutation
// family. Every failure is terminal: the live broadcast already propagated
// correctness to all connected peers, so a lost write is logged and dropped,
// never retried and never surfaced to a client.
type PersistenceHandler struct {
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
}

func NewPersistenceHandler(roomRepo repository.RoomRepository, messageRepo repository.MessageRepository) *PersistenceHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for PersistenceHandler")
	}
	if messageRepo == nil {
		panic("MessageRepository cannot be nil for PersistenceHandler")
	}
	return &PersistenceHandler{roomRepo: roomRepo, messageRepo: messageRepo}
}

func (h *PersistenceHandler) ProcessCodePersist(ctx context.Context, t *asynq.Task) error {
	var p tasks.CodePersistPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry("unmarshal code persist payload", err)
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "file_id": p.FileID, "task_type": t.Type()})
	if err := h.roomRepo.UpdateFileContent(ctx, p.RoomID, p.FileID, p.Content); err != nil {
		logCtx.WithError(err).Error("Durable code update failed, dropping")
		return skipRetry("update file content", err)
	}
	logCtx.Debug("Durable code update applied")
	return nil
}

func (h *PersistenceHandler) ProcessFilePersist(ctx context.Context, t *asynq.Task) error {
	var p tasks.FilePersistPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry("unmarshal file persist payload", err)
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "op": p.Op, "task_type": t.Type()})

	var err error
	switch p.Op {
	case tasks.FileOpCreate:
		err = h.roomRepo.AddFile(ctx, p.RoomID, p.File)
	case tasks.FileOpUpdate:
		err = h.roomRepo.ReplaceFile(ctx, p.RoomID, p.File)
	case tasks.FileOpRename:
		err = h.roomRepo.RenameFile(ctx, p.RoomID, p.FileID, p.Name)
	case tasks.FileOpDelete:
		err = h.roomRepo.RemoveFile(ctx, p.RoomID, p.FileID)
	default:
		return skipRetry("file persist", fmt.Errorf("unknown op %q", p.Op))
	}
	if err != nil {
		logCtx.WithError(err).Error("Durable file mutation failed, dropping")
		return skipRetry("file persist", err)
	}
	logCtx.Debug("Durable file mutation applied")
	return nil
}

func (h *PersistenceHandler) ProcessWhiteboardPersist(ctx context.Context, t *asynq.Task) error {
	var p tasks.WhiteboardPersistPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry("unmarshal whiteboard persist payload", err)
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "elements": len(p.Elements), "task_type": t.Type()})
	if err := h.roomRepo.ReplaceWhiteboard(ctx, p.RoomID, p.Elements); err != nil {
		logCtx.WithError(err).Error("Durable whiteboard replace failed, dropping")
		return skipRetry("replace whiteboard", err)
	}
	logCtx.Debug("Durable whiteboard replace applied")
	return nil
}

func (h *PersistenceHandler) ProcessChatPersist(ctx context.Context, t *asynq.Task) error {
	var p tasks.ChatPersistPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return skipRetry("unmarshal chat persist payload", err)
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "username": p.Username, "task_type": t.Type()})
	msg := &domain.ChatMessage{
		RoomID:   p.RoomID,
		Username: p.Username,
		Message:  p.Message,
		Time:     p.Time,
	}
	if err := h.messageRepo.Append(ctx, msg); err != nil {
		logCtx.WithError(err).Error("Durable chat append failed, dropping")
		return skipRetry("append chat message", err)
	}
	logCtx.Debug("Chat message appended")
	return nil
}

// TouchSweepHandler bumps last-active on every room that currently has live
// members, so the dashboard's recency ordering stays honest even when a room
// is all reads and no writes.
type TouchSweepHandler struct {
	roomRepo repository.RoomRepository
	lister   RoomLister
}

func NewTouchSweepHandler(roomRepo repository.RoomRepository, lister RoomLister) *TouchSweepHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for TouchSweepHandler")
	}
	if lister == nil {
		panic("RoomLister cannot be nil for TouchSweepHandler")
	}
	return &TouchSweepHandler{roomRepo: roomRepo, lister: lister}
}

func (h *TouchSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	roomIDs := h.lister.ActiveRoomIDs()
	if len(roomIDs) == 0 {
		logCtx.Debug("No active rooms, skipping touch sweep")
		return nil
	}
	now := time.Now().UTC()
	for _, roomID := range roomIDs {
		if err := h.roomRepo.TouchLastActive(ctx, roomID, now); err != nil {
			// Per-room failures do not fail the sweep.
			logCtx.WithError(err).WithField("room_id", roomID).Warn("Touch last-active failed")
		}
	}
	logCtx.WithField("rooms", len(roomIDs)).Info("Touch sweep complete")
	return nil
}

func skipRetry(what string, err error) error {
	return fmt.Errorf("%s: %v: %w", what, err, asynq.SkipRetry)
}
