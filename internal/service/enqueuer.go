package service

import "github.com/hibiken/asynq"

// Enqueuer is the slice of *asynq.Client the services need. Kept narrow so
// tests can run without a Redis broker.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
