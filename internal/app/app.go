package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/service"
)

const defaultRequestTimeout = 2 * time.Minute

type Options struct {
	Threads        *service.ThreadService
	Catalog        *service.SkillCatalog
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

// App is the HTTP facade over the thread service and skill catalogue.
type App struct {
	threads        *service.ThreadService
	catalog        *service.SkillCatalog
	logger         *zap.Logger
	requestTimeout time.Duration
}

func NewApp(opts Options) (*App, error) {
	if opts.Threads == nil {
		return nil, fmt.Errorf("thread service not initialized")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("skill catalog not initialized")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}

	return &App{
		threads:        opts.Threads,
		catalog:        opts.Catalog,
		logger:         opts.Logger,
		requestTimeout: opts.RequestTimeout,
	}, nil
}

func (a *App) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.requestTimeout)
}
