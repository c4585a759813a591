package service

import (
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"codecast/internal/protocol"
	"codecast/internal/tasks"
)

// CollabService owns the persistence side of the mutation broadcaster: each
// accepted mutation is handed to the task queue so the durable write never
// sits on the broadcast path. Enqueue failures are logged and dropped —
// live correctness must not be gated on storage health.
type CollabService struct {
	enq Enqueuer
}

func NewCollabService(enq Enqueuer) *CollabService {
	if enq == nil {
		panic("Enqueuer cannot be nil for CollabService")
	}
	return &CollabService{enq: enq}
}

func (s *CollabService) PersistCodeChange(p protocol.CodeChangePayload) {
	task, err := tasks.NewCodePersistTask(tasks.CodePersistPayload{
		RoomID:  p.RoomID,
		FileID:  p.FileID,
		Content: p.Code,
	})
	s.enqueue(task, err, p.RoomID, "code-change")
}

func (s *CollabService) PersistFileCreated(p protocol.FilePayload) {
	task, err := tasks.NewFilePersistTask(tasks.FilePersistPayload{
		RoomID: p.RoomID,
		Op:     tasks.FileOpCreate,
		File:   p.File,
	})
	s.enqueue(task, err, p.RoomID, "file-created")
}

func (s *CollabService) PersistFileUpdated(p protocol.FilePayload) {
	task, err := tasks.NewFilePersistTask(tasks.FilePersistPayload{
		RoomID: p.RoomID,
		Op:     tasks.FileOpUpdate,
		File:   p.File,
	})
	s.enqueue(task, err, p.RoomID, "file-updated")
}

func (s *CollabService) PersistFileRenamed(p protocol.FileRenamedPayload) {
	task, err := tasks.NewFilePersistTask(tasks.FilePersistPayload{
		RoomID: p.RoomID,
		Op:     tasks.FileOpRename,
		FileID: p.FileID,
		Name:   p.Name,
	})
	s.enqueue(task, err, p.RoomID, "file-renamed")
}

func (s *CollabService) PersistFileDeleted(p protocol.FileDeletedPayload) {
	task, err := tasks.NewFilePersistTask(tasks.FilePersistPayload{
		RoomID: p.RoomID,
		Op:     tasks.FileOpDelete,
		FileID: p.FileID,
	})
	s.enqueue(task, err, p.RoomID, "file-deleted")
}

func (s *CollabService) PersistWhiteboard(p protocol.ElementUpdatePayload) {
	task, err := tasks.NewWhiteboardPersistTask(tasks.WhiteboardPersistPayload{
		RoomID:   p.BoardID,
		Elements: p.Elements,
	})
	s.enqueue(task, err, p.BoardID, "element-update")
}

func (s *CollabService) enqueue(task *asynq.Task, err error, roomID, event string) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "event": event})
	if err != nil {
		logCtx.WithError(err).Error("Failed to build persistence task, durable write dropped")
		return
	}
	if _, err := s.enq.Enqueue(task); err != nil {
		logCtx.WithError(err).Error("Failed to enqueue persistence task, durable write dropped")
		return
	}
	logCtx.Debug("Persistence task enqueued")
}
