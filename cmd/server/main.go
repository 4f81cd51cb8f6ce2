// Package main provides the entry point for the pfp-animate API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maauso/pfp-animate/internal/bootstrap"
	"github.com/maauso/pfp-animate/internal/config"
	"github.com/maauso/pfp-animate/internal/job"
	"github.com/maauso/pfp-animate/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting pfp-animate API",
		slog.Int("port", cfg.Port),
		slog.String("log_level", cfg.LogLevel),
		slog.String("replicate_base_url", cfg.ReplicateBaseURL),
		slog.String("output_dir", cfg.OutputDir),
		slog.Int("retry_max_attempts", cfg.RetryMaxAttempts),
		slog.Int("frame_attempts", cfg.FrameAttempts),
		slog.Duration("frame_inter_delay", cfg.FrameInterDelay),
		slog.Bool("publish_enabled", cfg.S3Enabled()),
	)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	handlers := server.NewHandlers(deps.Service, logger)
	router := server.NewRouter(handlers, logger, server.DefaultConfig())

	// Predictions run after POST /jobs returns 202, so no handler holds the
	// connection for the length of a render.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logUnfinishedJobs(shutdownCtx, deps.Service, logger)

	logger.Info("server stopped")
	return nil
}

// logUnfinishedJobs reports jobs still running at exit. Job state lives in
// memory, so their remote predictions are abandoned.
func logUnfinishedJobs(ctx context.Context, svc *job.Service, logger *slog.Logger) {
	jobs, err := svc.ListJobs(ctx)
	if err != nil {
		logger.Warn("failed to list jobs at shutdown", slog.String("error", err.Error()))
		return
	}
	for _, j := range jobs {
		if j.IsTerminal() {
			continue
		}
		logger.Warn("abandoning unfinished job",
			slog.String("job_id", j.ID),
			slog.String("kind", string(j.Kind)),
			slog.String("stage", j.Stage),
			slog.String("remote_state", j.RemoteState),
		)
	}
}
