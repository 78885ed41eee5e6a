package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/utils"
)

var (
	_ Client = (*InlineQueue)(nil)
	_ Server = (*InlineQueue)(nil)
)

const defaultInlineTimeout = time.Minute

// InlineQueue runs each task on its own goroutine inside the current
// process. It is used when no Redis backend is configured.
type InlineQueue struct {
	logger   *zap.Logger
	timeout  time.Duration
	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
	closed   bool
}

func NewInlineQueue(logger *zap.Logger) *InlineQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InlineQueue{
		logger:   logger,
		timeout:  defaultInlineTimeout,
		handlers: make(map[string]Handler),
	}
}

func (q *InlineQueue) Register(taskType string, h Handler) {
	q.mu.Lock()
	q.handlers[taskType] = h
	q.mu.Unlock()
}

// Enqueue detaches the task from ctx; the task keeps running after the
// enqueuing request returns.
func (q *InlineQueue) Enqueue(_ context.Context, task Task) (string, error) {
	if task.Type == "" {
		return "", fmt.Errorf("inline queue: task type is required")
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return "", fmt.Errorf("inline queue: closed")
	}
	h, ok := q.handlers[task.Type]
	if !ok {
		return "", fmt.Errorf("inline queue: no handler for task type %s", task.Type)
	}

	id := "task-" + utils.GenerateUUID()
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		defer cancel()

		if err := h(ctx, task); err != nil {
			q.logger.Warn("Background task failed",
				zap.String("task_id", id),
				zap.String("type", task.Type),
				zap.Error(err))
		}
	}()

	return id, nil
}

// Run blocks until ctx is done and then waits for in-flight tasks.
func (q *InlineQueue) Run(ctx context.Context) error {
	<-ctx.Done()
	return q.Close()
}

func (q *InlineQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
