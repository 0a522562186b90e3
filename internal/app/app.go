// Package app provides application initialization and dependency injection.
//
// App is the container that wires the intake orchestrator together: the
// Gemini model client, the SendGrid report sender, the state backend, and
// optional OTLP tracing. Commands call Setup once and Close on shutdown.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opcc-pilot/complaint-intake/db"
	"github.com/opcc-pilot/complaint-intake/internal/config"
	"github.com/opcc-pilot/complaint-intake/internal/gemini"
	"github.com/opcc-pilot/complaint-intake/internal/intake"
	"github.com/opcc-pilot/complaint-intake/internal/log"
	"github.com/opcc-pilot/complaint-intake/internal/observability"
	"github.com/opcc-pilot/complaint-intake/internal/report"
	"github.com/opcc-pilot/complaint-intake/internal/state"
)

const closeTimeout = 5 * time.Second

// App is the core application container.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Orchestrator *intake.Orchestrator

	pool            *pgxpool.Pool
	tracingShutdown func(context.Context) error
}

// Setup assembles all services from a validated configuration.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.Tracing.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			Environment: cfg.Tracing.Environment,
			ServiceName: cfg.Tracing.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.tracingShutdown = shutdown
	}

	model, err := gemini.New(ctx, gemini.Config{
		APIKey:            cfg.GeminiAPIKey,
		Model:             cfg.ModelName,
		SystemInstruction: intake.SystemInstruction,
	})
	if err != nil {
		return nil, fmt.Errorf("creating model client: %w", err)
	}

	mailer, err := report.NewSendGrid(report.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.FromEmail,
		Logger:    logger.With("component", "sendgrid"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating mail sender: %w", err)
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	orch, err := intake.New(intake.Config{
		Model:         model,
		Mailer:        mailer,
		Store:         store,
		Logger:        logger.With("component", "intake"),
		MaxRoundTrips: cfg.MaxRoundTrips,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orch

	return a, nil
}

// openStore selects the state backend from configuration. Postgres runs the
// embedded migrations before the pool is handed to the store.
func (a *App) openStore(ctx context.Context) (state.Store, error) {
	cfg := a.Config

	switch cfg.StateBackend {
	case config.BackendPostgres:
		if err := db.Migrate(cfg.PostgresURL()); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
		if err != nil {
			return nil, fmt.Errorf("creating connection pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.pool = pool

		a.Logger.Info("state backend ready", "backend", "postgres", "host", cfg.PostgresHost)
		return state.NewPostgresStore(pool), nil

	case config.BackendFile:
		dir := cfg.DataDir
		if dir == "" {
			var err error
			dir, err = state.DefaultDir()
			if err != nil {
				return nil, fmt.Errorf("resolving data directory: %w", err)
			}
		}
		store, err := state.NewFileStore(dir)
		if err != nil {
			return nil, fmt.Errorf("opening file store: %w", err)
		}

		a.Logger.Info("state backend ready", "backend", "file", "dir", dir)
		return store, nil

	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.pool != nil {
		a.pool.Close()
		a.Logger.Info("database pool closed")
	}

	if a.tracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := a.tracingShutdown(ctx); err != nil {
			return fmt.Errorf("shutting down tracing: %w", err)
		}
	}
	return nil
}
