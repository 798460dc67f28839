package internal

import (
	"context"
	"fmt"
	"strconv"

	"log/slog"

	"github.com/gofiber/fiber/v2"

	"shoplens/internal/config"
	"shoplens/internal/database"
	"shoplens/internal/extraction"
	"shoplens/internal/jobs"
	"shoplens/internal/logging"
	"shoplens/internal/metrics"
	"shoplens/internal/seeder"
)

// Application bundles the long-lived pieces of the service: config, logging,
// the database manager, the fiber app, and the background scheduler.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.DBManager
	Fiber     *fiber.App
	Scheduler *jobs.Scheduler

	source extraction.DataSource
}

// Option customizes application construction.
type Option func(*Application)

// WithDataSource overrides the extraction data source. The default is the
// synthetic demo source, which keeps development self-contained.
func WithDataSource(source extraction.DataSource) Option {
	return func(app *Application) {
		app.source = source
	}
}

// NewApp builds the application and opens the database.
func NewApp(opts ...Option) (*Application, error) {
	cfg := config.GetConfig()
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
		source:    seeder.NewSource(),
	}
	for _, opt := range opts {
		opt(app)
	}

	app.Fiber = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	MountRoutes(app.Fiber, dbManager, app.source, logger)

	scheduler, err := jobs.NewScheduler(dbManager, app.source, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	app.Scheduler = scheduler

	return app, nil
}

// StartAsync starts the metrics listener, the background jobs, and the API
// server, all without blocking the caller.
func (app *Application) StartAsync() error {
	metrics.Init()

	metricsPort, err := strconv.Atoi(app.Config.MetricsPort)
	if err != nil {
		return fmt.Errorf("invalid metrics port %q: %w", app.Config.MetricsPort, err)
	}
	go func() {
		if err := metrics.Serve(metricsPort, app.Logger); err != nil {
			app.Logger.Error("Metrics listener stopped", slog.Any("error", err))
		}
	}()

	if err := app.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	go func() {
		addr := ":" + app.Config.AppPort
		app.Logger.Info("API server started", slog.String("addr", addr))
		if err := app.Fiber.Listen(addr); err != nil {
			app.Logger.Error("API server stopped", slog.Any("error", err))
		}
	}()

	return nil
}

// Shutdown stops the scheduler and drains the API server.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Scheduler.Stop()

	if err := app.Fiber.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}

	if db := app.DBManager.GetConnection(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				app.Logger.Warn("Failed to close database", slog.Any("error", err))
			}
		}
	}
	return nil
}
