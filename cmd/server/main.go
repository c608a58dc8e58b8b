package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/cardview/modelstore/internal/cleanup"
	"github.com/cardview/modelstore/internal/config"
	"github.com/cardview/modelstore/internal/handler"
	"github.com/cardview/modelstore/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel() // validated in config.Load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if cfg.AllowedOrigin == "*" {
		logger.Warn("cross-origin requests are allowed from any origin — set ALLOWED_ORIGIN to tighten")
	}

	backend, err := store.NewLocal(cfg.StorageDir)
	if err != nil {
		logger.Error("failed to initialise storage backend", "err", err)
		os.Exit(1)
	}

	// Janitor for write temp files orphaned by crashes or disconnects.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	cleanup.RunPeriodic(sweepCtx, backend.Root(), cfg.TmpTTL, cfg.TmpSweepInterval, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.New(cfg, backend, logger),
		// Generous timeouts accommodate slow disks and large uploads.
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("model store starting", "port", cfg.Port, "dir", backend.Root())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// shutdownSignals is defined in signals.go (os.Interrupt) and extended by
	// signals_unix.go (+ SIGTERM) via build tags — no OS-specific imports here.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, shutdownSignals...)
	<-quit

	logger.Info("shutdown signal received — draining connections")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("model store stopped")
}
