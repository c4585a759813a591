package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"codecast/internal/repository"
	"codecast/internal/tasks"
)

// RoomLister reports the rooms that currently have live connections; the
// hub satisfies it.
type RoomLister interface {
	ActiveRoomIDs() []string
}

// WorkerServer runs the asynq consumers that execute the durable writes the
// broadcast path enqueued.
type WorkerServer struct {
	server      *asynq.Server
	log         *logrus.Entry
	roomRepo    repository.RoomRepository
	messageRepo repository.MessageRepository
	lister      RoomLister
}

func NewWorkerServer(
	redisOpt asynq.RedisClientOpt,
	roomRepo repository.RoomRepository,
	messageRepo repository.MessageRepository,
	lister RoomLister,
	logger *logrus.Logger,
) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:      server,
		log:         logEntry,
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		lister:      lister,
	}
}

// Start runs the worker server. It should be called in its own goroutine.
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	persistence := NewPersistenceHandler(ws.roomRepo, ws.messageRepo)
	mux.HandleFunc(tasks.TypeCodePersist, persistence.ProcessCodePersist)
	mux.HandleFunc(tasks.TypeFilePersist, persistence.ProcessFilePersist)
	mux.HandleFunc(tasks.TypeWhiteboardPersist, persistence.ProcessWhiteboardPersist)
	mux.HandleFunc(tasks.TypeChatPersist, persistence.ProcessChatPersist)

	sweep := NewTouchSweepHandler(ws.roomRepo, ws.lister)
	mux.HandleFunc(tasks.TypeRoomTouchSweep, sweep.ProcessTask)

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown stops the worker server gracefully.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
