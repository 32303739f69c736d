package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"moneymate/internal/amqp"
	"moneymate/internal/config"
	apphttp "moneymate/internal/http"
	applog "moneymate/internal/log"
	"moneymate/internal/pipeline"
	"moneymate/internal/remote"
	"moneymate/internal/sms"
	"moneymate/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	source := &sms.FileSource{Path: cfg.InboxPath}

	// Remote store is optional: without it the service still ingests
	// and serves reads, and queued items wait for a worker.
	var (
		store   remote.Store
		session remote.Session
	)
	if cfg.RemoteBaseURL != "" {
		tokenSession := remote.NewTokenSession(cfg.RemoteToken)
		store = remote.NewClient(cfg.RemoteBaseURL, tokenSession.Token)
		session = tokenSession
		logger.Info("Remote store configured", "url", cfg.RemoteBaseURL)
	} else {
		logger.Info("Remote store disabled - no REMOTE_STORE_URL provided")
	}

	ingestor := pipeline.New(source, repo, store, session, pipeline.Config{
		ReadLimit:   cfg.ReadLimit,
		MaxParallel: cfg.MaxParallel,
		MaxAttempts: cfg.MaxAttempts,
	})

	// AMQP client is optional; it backs the sync trigger endpoint.
	var syncer apphttp.SyncRequester
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, sync trigger disabled", "error", err)
		} else {
			defer amqpClient.Close()
			syncer = amqpClient
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, syncer)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Startup ingestion pass, then periodic passes.
	ingestLog := logger.WithComponent(applog.ComponentPipeline)
	go func() {
		runIngestion(ctx, ingestor, ingestLog)

		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runIngestion(ctx, ingestor, ingestLog)
			}
		}
	}()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting moneymate server", "port", cfg.Port, "inbox", cfg.InboxPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

func runIngestion(ctx context.Context, ingestor *pipeline.Ingestor, logger *applog.Logger) {
	report, err := ingestor.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Ingestion run failed", "error", err, "run_id", report.RunID)
		}
		return
	}
	if report.AuthHalted {
		logger.Warn("Ingestion run halted on auth fault, re-authentication required", "run_id", report.RunID)
	}
}
