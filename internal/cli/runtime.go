package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/config"
	"github.com/zjregee/copilot/internal/service"
	"github.com/zjregee/copilot/internal/service/cache"
	"github.com/zjregee/copilot/internal/service/queue"
	"github.com/zjregee/copilot/internal/service/skills"
	"github.com/zjregee/copilot/internal/service/storage"
)

const cacheKeyPrefix = "copilot:"

// runtime holds the wired service graph for one command.
type runtime struct {
	models  *service.ModelRegistry
	skills  *skills.Registry
	catalog *service.SkillCatalog
	threads *service.ThreadService

	// worker is set only when tasks go through Redis and need a consumer.
	worker queue.Server

	closers []func() error
}

func newRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *runtime, err error) {
	rt := &runtime{}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.models, err = service.NewModelRegistry(cfg.Providers, cfg.DefaultModel)
	if err != nil {
		return nil, err
	}

	engine := skills.NewEngine(rt.models, logger.Named("skills"))
	rt.skills, err = service.NewSkillRegistry(ctx, engine, cfg.SkillsDir)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, store.Close)

	skillCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, skillCache.Close)
	rt.catalog = service.NewSkillCatalog(rt.skills, skillCache, cfg.Cache.SkillTTL, logger)
	if err := rt.catalog.Invalidate(ctx); err != nil {
		return nil, err
	}

	client, err := rt.openQueue(cfg, logger)
	if err != nil {
		return nil, err
	}

	rt.threads, err = service.NewThreadService(ctx, service.ThreadServiceOptions{
		Store:  store,
		Skills: rt.skills,
		Models: rt.models,
		Queue:  client,
		Logger: logger.Named("threads"),
	})
	if err != nil {
		return nil, err
	}

	if inline, ok := client.(*queue.InlineQueue); ok {
		rt.threads.RegisterTasks(inline)
	} else {
		rt.threads.RegisterTasks(rt.worker)
	}

	return rt, nil
}

func openStore(ctx context.Context, cfg *config.Config) (storage.ThreadStore, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		return storage.NewPgStore(ctx, cfg.Storage.DSN)
	default:
		return storage.NewBoltStore(cfg.DataDir)
	}
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	if cfg.Cache.RedisURL == "" {
		return cache.NewMemoryCache(), nil
	}

	c, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, cacheKeyPrefix)
	if err != nil {
		return nil, err
	}
	logger.Info("Using Redis skill cache")
	return c, nil
}

func (rt *runtime) openQueue(cfg *config.Config, logger *zap.Logger) (queue.Client, error) {
	if cfg.Queue.RedisURL == "" {
		inline := queue.NewInlineQueue(logger.Named("queue"))
		rt.closers = append(rt.closers, inline.Close)
		return inline, nil
	}

	client, err := queue.NewAsynqClient(cfg.Queue.RedisURL, cfg.Queue.Name)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, client.Close)

	worker, err := queue.NewAsynqServer(cfg.Queue.RedisURL, cfg.Queue.Name, cfg.Queue.Concurrency, logger.Named("queue"))
	if err != nil {
		return nil, err
	}
	rt.worker = worker

	logger.Info("Using asynq task queue", zap.String("queue", cfg.Queue.Name))
	return client, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close runtime: %w", errors.Join(errs...))
	}
	return nil
}
