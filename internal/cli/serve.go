package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zjregee/copilot/internal/app"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API. When a Redis URL is configured for the queue the
title-generation worker runs in the same process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("Shutdown incomplete", zap.Error(err))
		}
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	application, err := app.NewApp(app.Options{
		Threads:        rt.threads,
		Catalog:        rt.catalog,
		Logger:         logger.Named("http"),
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	workerDone := make(chan struct{})
	if rt.worker != nil {
		go func() {
			defer close(workerDone)
			if err := rt.worker.Run(ctx); err != nil {
				errCh <- fmt.Errorf("task worker: %w", err)
			}
		}()
	} else {
		close(workerDone)
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err = <-errCh:
		logger.Error("Server stopped", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP shutdown failed", zap.Error(shutdownErr))
	}
	<-workerDone

	return err
}
