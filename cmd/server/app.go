package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasklane-api/internal/background"
	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/config"
	"github.com/phrazzld/tasklane-api/internal/events"
	"github.com/phrazzld/tasklane-api/internal/platform/postgres"
	"github.com/phrazzld/tasklane-api/internal/service"
	"github.com/phrazzld/tasklane-api/internal/service/auth"
	"github.com/phrazzld/tasklane-api/internal/store"
)

// shutdownTimeout bounds HTTP drain plus write-back drain on shutdown.
const shutdownTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil when the application was built over a caller-supplied store.
	db           *sql.DB
	closeBackend func() error

	taskStore  store.TaskStore
	queryCache *cache.QueryCache
	counters   *cache.CounterStore

	writebackQueue *background.Queue
	writebackPool  *background.WorkerPool

	eventEmitter *events.InMemoryEventEmitter
	jwtService   auth.JWTService
	taskService  service.TaskService
}

// newApplication wires the application over a PostgreSQL task store.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	backend cache.Backend,
	closeBackend func() error,
) (*application, error) {
	app, err := buildApplication(cfg, logger, postgres.NewPostgresTaskStore(db), backend)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.closeBackend = closeBackend
	return app, nil
}

// buildApplication wires every component over the given task store and cache
// backend and starts the write-back workers.
func buildApplication(
	cfg *config.Config,
	logger *slog.Logger,
	tasks store.TaskStore,
	backend cache.Backend,
) (*application, error) {
	app := &application{
		config:    cfg,
		logger:    logger,
		taskStore: tasks,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.queryCache = cache.NewQueryCache(backend, cfg.Cache.QueryTTL, logger)
	app.counters = cache.NewCounterStore(backend, cfg.Cache.CounterTTL, logger)

	app.writebackQueue = background.NewQueue(cfg.Writeback.QueueSize, logger)
	poolCfg := background.DefaultWorkerPoolConfig()
	poolCfg.WorkerCount = cfg.Writeback.WorkerCount
	app.writebackPool = background.NewWorkerPool(app.writebackQueue, poolCfg, logger)
	app.writebackPool.SetErrorHandler(func(job background.Job, err error) {
		logger.Warn("counter write-back failed", "job", job.Name(), "error", err)
	})
	app.writebackPool.Start()

	aggregator := service.NewCounterAggregator(tasks, app.counters, app.writebackQueue, service.AggregatorConfig{
		Timeout: cfg.Cache.CounterTimeout,
		Fanout:  cfg.Cache.CounterFanout,
	}, logger)

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(service.NewProjectCacheInvalidator(app.queryCache, logger))

	app.taskService, err = service.NewTaskService(tasks, app.queryCache, aggregator, app.eventEmitter, logger)
	if err != nil {
		app.stopWriteback(context.Background())
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("Application initialized successfully",
		"query_ttl", cfg.Cache.QueryTTL,
		"counter_ttl", cfg.Cache.CounterTTL,
		"writeback_workers", cfg.Writeback.WorkerCount)
	return app, nil
}

// Run serves HTTP until ctx is canceled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// stopWriteback closes the write-back queue and waits for pending writes.
func (app *application) stopWriteback(ctx context.Context) {
	if app.writebackQueue == nil {
		return
	}
	app.writebackQueue.Close()
	if err := app.writebackPool.Stop(ctx); err != nil {
		app.logger.Warn("write-back workers did not drain before shutdown",
			"error", err,
			"pending", app.writebackQueue.Len())
	}
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup(ctx context.Context) {
	app.stopWriteback(ctx)

	if app.closeBackend != nil {
		if err := app.closeBackend(); err != nil {
			app.logger.Error("Error closing cache backend", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
