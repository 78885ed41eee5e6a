package queue

import (
	"context"
)

// Task is a background job with a stable type name and an opaque payload.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. Handlers must be idempotent; backends may retry
// on error.
type Handler func(ctx context.Context, task Task) error

type Client interface {
	Enqueue(ctx context.Context, task Task) (id string, err error)
	Close() error
}

// Server dispatches tasks to registered handlers. Run blocks until ctx is
// cancelled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
}
