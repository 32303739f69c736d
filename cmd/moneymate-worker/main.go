package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneymate/internal/amqp"
	"moneymate/internal/config"
	applog "moneymate/internal/log"
	"moneymate/internal/pipeline"
	"moneymate/internal/remote"
	"moneymate/internal/storage"
	"moneymate/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting moneymate-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if cfg.RemoteBaseURL == "" {
		logger.Error("REMOTE_STORE_URL is required: the worker has nothing to submit to without it")
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	session := remote.NewTokenSession(cfg.RemoteToken)
	store := remote.NewClient(cfg.RemoteBaseURL, session.Token)

	ingestor := pipeline.New(nil, repo, store, session, pipeline.Config{
		ReadLimit:   cfg.ReadLimit,
		MaxParallel: cfg.MaxParallel,
		MaxAttempts: cfg.MaxAttempts,
	})
	syncWorker := worker.NewSyncWorker(ingestor, repo)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, reconcile with the remote store and finish anything
	// a previous run left queued.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		if err := amqpClient.ConsumeSyncRequests(ctx, syncWorker.HandleSyncRequest); err != nil {
			if err != context.Canceled {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic backup scan for anything a sync message never arrived for.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					logger.Error("Periodic sync failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight submissions a moment to settle
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
