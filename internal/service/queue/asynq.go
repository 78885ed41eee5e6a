package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

var (
	_ Client = (*AsynqClient)(nil)
	_ Server = (*AsynqServer)(nil)
)

const defaultMaxRetry = 3

type AsynqClient struct {
	client *asynq.Client
	queue  string
}

func NewAsynqClient(redisURL string, queueName string) (*AsynqClient, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return &AsynqClient{client: asynq.NewClient(opt), queue: queueName}, nil
}

func (a *AsynqClient) Enqueue(ctx context.Context, t Task) (string, error) {
	if t.Type == "" {
		return "", errors.New("asynq: task type is required")
	}

	opts := []asynq.Option{
		asynq.MaxRetry(defaultMaxRetry),
		asynq.Timeout(time.Minute),
	}
	if a.queue != "" {
		opts = append(opts, asynq.Queue(a.queue))
	}

	info, err := a.client.EnqueueContext(ctx, asynq.NewTask(t.Type, t.Payload), opts...)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func (a *AsynqClient) Close() error {
	return a.client.Close()
}

type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewAsynqServer(redisURL string, queueName string, concurrency int, logger *zap.Logger) (*AsynqServer, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queueName: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("Background task failed",
				zap.String("type", task.Type()),
				zap.Error(err))
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

func (s *AsynqServer) Register(taskType string, h Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		return h(ctx, Task{Type: t.Type(), Payload: t.Payload()})
	})
}

func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}
