package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/jobs"
	"github.com/nexo-studio/agency-api/internal/logger"
	"github.com/nexo-studio/agency-api/internal/notify"
	"go.uber.org/zap"
)

// The worker delivers the staff notifications queued by the API when queue.enabled is set.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required by the worker")
	}

	notifier, err := notify.New(&cfg.Notify, log)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	log.Info("Starting worker",
		zap.String("env", cfg.App.Environment),
		zap.String("notify_mode", cfg.Notify.Mode),
		zap.Int("concurrency", cfg.Queue.Concurrency))

	worker := jobs.NewWorker(jobs.RedisOpt(&cfg.Redis), cfg.Queue.Concurrency, jobs.NewNotifyHandler(notifier, log), log)
	return worker.Run(ctx)
}
