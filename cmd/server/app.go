package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/coursepulse/classifier-api/internal/config"
	"github.com/coursepulse/classifier-api/internal/inference"
	"github.com/coursepulse/classifier-api/internal/platform/logger"
	"github.com/coursepulse/classifier-api/internal/platform/postgres"
	"github.com/coursepulse/classifier-api/internal/queue"
	"github.com/coursepulse/classifier-api/internal/scheduler"
	"github.com/coursepulse/classifier-api/internal/service"
	"github.com/coursepulse/classifier-api/internal/service/auth"
	"github.com/coursepulse/classifier-api/internal/worker"
)

// application holds the wired components of the running server.
type application struct {
	config *config.Config
	logger *slog.Logger

	db     *sql.DB
	broker *queue.MemoryQueue

	classificationService service.ClassificationService
	jwtService            auth.JWTService

	pool  *worker.Pool
	sched *scheduler.Scheduler
}

// newApplication loads configuration and builds every component of the
// pipeline: stores, broker, classifier, worker pool, scheduler and the
// request-facing services.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"inference_provider", cfg.Inference.Provider,
		"worker_count", cfg.Worker.Count)

	db, err := setupDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, log); err != nil {
		return nil, err
	}

	classifier, err := setupClassifier(cfg, log)
	if err != nil {
		return nil, err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to set up JWT service: %w", err)
	}

	tasks := postgres.NewTaskStore(db)
	results := postgres.NewResultCache(db)
	broker := queue.NewMemoryQueue(cfg.Queue.Size, cfg.Queue.VisibilityTimeout, log)

	pool := worker.NewPool(broker, tasks, results, classifier, worker.Config{
		Count:            cfg.Worker.Count,
		MaxAttempts:      cfg.Worker.MaxAttempts,
		InferenceTimeout: cfg.Worker.InferenceTimeout,
		BackoffInitial:   cfg.Worker.BackoffInitial,
		BackoffMax:       cfg.Worker.BackoffMax,
		ResultTTL:        cfg.Cache.ResultTTL,
	}, log)

	sched := scheduler.New(tasks, results, broker, scheduler.Config{
		Interval:      cfg.Scheduler.Interval,
		StaleTaskAge:  cfg.Scheduler.StaleTaskAge,
		TaskRetention: cfg.Scheduler.TaskRetention,
		MaxAttempts:   cfg.Worker.MaxAttempts,
	}, log)

	return &application{
		config: cfg,
		logger: log,
		db:     db,
		broker: broker,
		classificationService: service.NewClassificationService(
			tasks, results, broker, cfg.Server.MaxTextLength),
		jwtService: jwtService,
		pool:       pool,
		sched:      sched,
	}, nil
}

// setupClassifier selects the inference backend by configured provider.
func setupClassifier(cfg *config.Config, log *slog.Logger) (inference.Classifier, error) {
	switch cfg.Inference.Provider {
	case "gemini":
		classifier, err := inference.NewGeminiClassifier(
			context.Background(), cfg.Inference.GeminiAPIKey, cfg.Inference.Model, log)
		if err != nil {
			return nil, fmt.Errorf("failed to set up gemini classifier: %w", err)
		}
		return classifier, nil
	case "lexicon":
		return inference.NewLexiconClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Inference.Provider)
	}
}

// run starts the background components and serves HTTP until shutdown.
func (app *application) run() error {
	app.pool.Start()
	app.sched.Start()

	return app.startHTTPServer(app.setupRouter())
}

// cleanup stops background components in dependency order: stop feeding
// workers before closing the broker, then release the database.
func (app *application) cleanup() {
	app.sched.Stop()
	app.pool.Stop()

	app.broker.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("Failed to close database", "error", err)
	}
}
