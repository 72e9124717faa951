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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/corebank/ledger/internal/app"
	"github.com/corebank/ledger/internal/config"
	"github.com/corebank/ledger/internal/health"
	"github.com/corebank/ledger/internal/logging"
	"github.com/corebank/ledger/internal/service/alert"
	"github.com/corebank/ledger/internal/service/ledger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("ledgerd", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ledgerd exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("ledgerd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var dispatcher *alert.Dispatcher
	a, err := app.New(ctx, cfg, func(feed *alert.Feed) ledger.EntryObserver {
		dispatcher = alert.NewDispatcher(feed, cfg.AlertQueueSize, logger)
		return dispatcher
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer a.Close()

	scanner := alert.NewScanner(a.Alerts, logger, cfg.AlertScanInterval)

	addr := fmt.Sprintf(":%d", cfg.HealthPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           health.NewHandler(a.HealthChecks()).Routes(),
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		scanner.Start(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("health server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
