package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pesso/internal/amqp"
	"pesso/internal/challenge"
	"pesso/internal/config"
	apphttp "pesso/internal/http"
	"pesso/internal/ledger"
	"pesso/internal/memory"
	"pesso/internal/notify"
	"pesso/internal/storage"
	"pesso/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose data backend (default: memory).
	var (
		ledgerStore    store.LedgerStore
		challengeStore store.ChallengeStore
		notifStore     store.NotificationStore
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := storage.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		ledgerStore, challengeStore, notifStore = repo, repo, repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		mem := memory.New()
		ledgerStore, challengeStore, notifStore = mem, mem, mem
		logger.Info("Initialized memory backend")
	}

	// Activity export publishing is best effort. A missing broker never
	// blocks local operation.
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, activity export disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	notifier := notify.NewLog(notifStore, publisher)

	ledgerEngine := ledger.New(ledgerStore, notifier)
	challengeEngine := challenge.New(challengeStore, notifier)

	startCtx, startCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer startCancel()
	if err := ledgerEngine.Load(startCtx); err != nil {
		logger.Error("Failed to load ledger state", "error", err)
		os.Exit(1)
	}
	if err := challengeEngine.Load(startCtx); err != nil {
		logger.Error("Failed to load challenge state", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledgerEngine, challengeEngine, notifStore)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	logger.Info("Starting pesso server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
