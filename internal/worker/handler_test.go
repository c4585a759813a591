package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codecast/internal/domain"
	"codecast/internal/repository/mocks"
	"codecast/internal/tasks"
	"codecast/internal/worker"
)

type stubLister struct {
	rooms []string
}

func (s *stubLister) ActiveRoomIDs() []string { return s.rooms }

func newHandler(t *testing.T) (*worker.PersistenceHandler, *mocks.RoomRepository, *mocks.MessageRepository) {
	t.Helper()
	roomRepo := new(mocks.RoomRepository)
	messageRepo := new(mocks.MessageRepository)
	return worker.NewPersistenceHandler(roomRepo, messageRepo), roomRepo, messageRepo
}

func TestPersistenceHandler_ProcessCodePersist_AppliesUpdate(t *testing.T) {
	handler, roomRepo, _ := newHandler(t)

	task, err := tasks.NewCodePersistTask(tasks.CodePersistPayload{
		RoomID:  "room-1",
		FileID:  "f1",
		Content: "package main",
	})
	require.NoError(t, err)

	roomRepo.On("UpdateFileContent", mock.Anything, "room-1", "f1", "package main").
		Return(nil).
		Once()

	assert.NoError(t, handler.ProcessCodePersist(context.Background(), task))
	roomRepo.AssertExpectations(t)
}

func TestPersistenceHandler_StoreFailureIsNeverRetried(t *testing.T) {
	handler, roomRepo, _ := newHandler(t)

	task, err := tasks.NewCodePersistTask(tasks.CodePersistPayload{RoomID: "room-1", FileID: "f1"})
	require.NoError(t, err)

	roomRepo.On("UpdateFileContent", mock.Anything, "room-1", "f1", "").
		Return(errors.New("connection lost")).
		Once()

	err = handler.ProcessCodePersist(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	roomRepo.AssertExpectations(t)
}

func TestPersistenceHandler_MalformedPayloadIsNeverRetried(t *testing.T) {
	handler, _, _ := newHandler(t)

	task := asynq.NewTask(tasks.TypeCodePersist, []byte("not json"))

	err := handler.ProcessCodePersist(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestPersistenceHandler_ProcessFilePersist_DispatchesOnOperation(t *testing.T) {
	cases := []struct {
		op     string
		expect func(*mocks.RoomRepository)
	}{
		{
			op: tasks.FileOpCreate,
			expect: func(r *mocks.RoomRepository) {
				r.On("AddFile", mock.Anything, "room-1", mock.AnythingOfType("domain.File")).Return(nil).Once()
			},
		},
		{
			op: tasks.FileOpUpdate,
			expect: func(r *mocks.RoomRepository) {
				r.On("ReplaceFile", mock.Anything, "room-1", mock.AnythingOfType("domain.File")).Return(nil).Once()
			},
		},
		{
			op: tasks.FileOpRename,
			expect: func(r *mocks.RoomRepository) {
				r.On("RenameFile", mock.Anything, "room-1", "f1", "app.go").Return(nil).Once()
			},
		},
		{
			op: tasks.FileOpDelete,
			expect: func(r *mocks.RoomRepository) {
				r.On("RemoveFile", mock.Anything, "room-1", "f1").Return(nil).Once()
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			handler, roomRepo, _ := newHandler(t)
			tc.expect(roomRepo)

			task, err := tasks.NewFilePersistTask(tasks.FilePersistPayload{
				RoomID: "room-1",
				Op:     tc.op,
				File:   domain.File{ID: "f1"},
				FileID: "f1",
				Name:   "app.go",
			})
			require.NoError(t, err)

			assert.NoError(t, handler.ProcessFilePersist(context.Background(), task))
			roomRepo.AssertExpectations(t)
		})
	}
}

func TestPersistenceHandler_ProcessFilePersist_UnknownOpIsNeverRetried(t *testing.T) {
	handler, _, _ := newHandler(t)

	task, err := tasks.NewFilePersistTask(tasks.FilePersistPayload{RoomID: "room-1", Op: "truncate"})
	require.NoError(t, err)

	err = handler.ProcessFilePersist(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestPersistenceHandler_ProcessWhiteboardPersist_ReplacesCollection(t *testing.T) {
	handler, roomRepo, _ := newHandler(t)

	task, err := tasks.NewWhiteboardPersistTask(tasks.WhiteboardPersistPayload{
		RoomID:   "room-1",
		Elements: []domain.WhiteboardElement{{ID: "e1", Type: "rect"}},
	})
	require.NoError(t, err)

	roomRepo.On("ReplaceWhiteboard", mock.Anything, "room-1", mock.MatchedBy(func(elements []domain.WhiteboardElement) bool {
		return len(elements) == 1 && elements[0].ID == "e1"
	})).
		Return(nil).
		Once()

	assert.NoError(t, handler.ProcessWhiteboardPersist(context.Background(), task))
	roomRepo.AssertExpectations(t)
}

func TestPersistenceHandler_ProcessChatPersist_AppendsMessage(t *testing.T) {
	handler, _, messageRepo := newHandler(t)

	task, err := tasks.NewChatPersistTask(tasks.ChatPersistPayload{
		RoomID:   "room-1",
		Username: "alice",
		Message:  "hello",
		Time:     "10:15",
	})
	require.NoError(t, err)

	messageRepo.On("Append", mock.Anything, mock.MatchedBy(func(msg *domain.ChatMessage) bool {
		return msg.RoomID == "room-1" && msg.Username == "alice" && msg.Message == "hello"
	})).
		Return(nil).
		Once()

	assert.NoError(t, handler.ProcessChatPersist(context.Background(), task))
	messageRepo.AssertExpectations(t)
}

func TestTouchSweepHandler_TouchesEveryActiveRoom(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	handler := worker.NewTouchSweepHandler(roomRepo, &stubLister{rooms: []string{"room-1", "room-2"}})

	task, err := tasks.NewRoomTouchSweepTask()
	require.NoError(t, err)

	roomRepo.On("TouchLastActive", mock.Anything, "room-1", mock.AnythingOfType("time.Time")).Return(nil).Once()
	roomRepo.On("TouchLastActive", mock.Anything, "room-2", mock.AnythingOfType("time.Time")).Return(nil).Once()

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	roomRepo.AssertExpectations(t)
}

func TestTouchSweepHandler_PerRoomFailureDoesNotFailSweep(t *testing.T) {
	roomRepo := new(mocks.RoomRepository)
	handler := worker.NewTouchSweepHandler(roomRepo, &stubLister{rooms: []string{"room-1", "room-2"}})

	task, err := tasks.NewRoomTouchSweepTask()
	require.NoError(t, err)

	roomRepo.On("TouchLastActive", mock.Anything, "room-1", mock.AnythingOfType("time.Time")).
		Return(errors.New("ghost room")).
		Once()
	roomRepo.On("TouchLastActive", mock.Anything, "room-2", mock.AnythingOfType("time.Time")).Return(nil).Once()

	assert.NoError(t, handler.ProcessTask(context.Background(), task))
	roomRepo.AssertExpectations(t)
}
