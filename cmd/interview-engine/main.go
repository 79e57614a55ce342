package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/crisp-labs/interview-engine/internal/api"
	"github.com/crisp-labs/interview-engine/internal/cleanup"
	"github.com/crisp-labs/interview-engine/internal/config"
	"github.com/crisp-labs/interview-engine/internal/evaluator"
	"github.com/crisp-labs/interview-engine/internal/interview"
	"github.com/crisp-labs/interview-engine/internal/questions"
	"github.com/crisp-labs/interview-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load .env if present (development convenience)
	if err := godotenv.Load(); err == nil {
		slog.Info(".env file loaded")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting interview-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	slog.Info("running database migrations")
	if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected successfully")

	// Active-session tracker: Redis keeps resume offers alive across
	// engine restarts; without it offers only last for the process
	// lifetime.
	var tracker interface {
		interview.ActiveTracker
		Close() error
	}
	redisTracker, err := storage.NewRedisActiveTracker(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("redis unavailable, resume offers will not survive restarts", "error", err)
		tracker = storage.NewMemoryActiveTracker()
	} else {
		tracker = redisTracker
		slog.Info("redis connected successfully")
	}

	// Load the fallback question bank
	bank := questions.DefaultBank()
	if cfg.Questions.BankFile != "" {
		loaded, err := questions.LoadBank(cfg.Questions.BankFile)
		if err != nil {
			slog.Error("failed to load question bank", "file", cfg.Questions.BankFile, "error", err)
			os.Exit(1)
		}
		bank = loaded
		slog.Info("question bank loaded", "file", cfg.Questions.BankFile)
	}

	// Evaluator client and question source
	evalClient := evaluator.NewClient(cfg.Evaluator.BaseURL, evaluator.WithTimeout(cfg.Evaluator.Timeout))
	source := questions.NewSource(evalClient, bank)

	// Interview orchestrator
	orchestrator := interview.New(repo, evalClient, source, tracker, interview.Options{
		TickInterval:    cfg.Interview.TickInterval,
		GreetingDelay:   cfg.Interview.GreetingDelay,
		TransitionDelay: cfg.Interview.TransitionDelay,
		CompletionDelay: cfg.Interview.CompletionDelay,
		DefaultRole:     cfg.Questions.DefaultRole,
	})

	// Idle-session sweeper
	sweeper := cleanup.NewSweeper(orchestrator, cfg.Cleanup.Interval, cfg.Cleanup.MaxIdle)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start sweeper
	sweeper.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, orchestrator, evalClient, repo)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Halt live session runtimes (durable state is already persisted)
	if err := orchestrator.Close(); err != nil {
		slog.Error("orchestrator close error", "error", err)
	}

	if err := tracker.Close(); err != nil {
		slog.Error("tracker close error", "error", err)
	}
	repo.Close()

	slog.Info("interview-engine stopped")
}
