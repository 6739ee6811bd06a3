package bootstrap

import (
	"context"
	"fmt"

	"github.com/resumecraft/cv-upload-client/internal/config"
	"github.com/resumecraft/cv-upload-client/internal/core/ports"
	"github.com/resumecraft/cv-upload-client/internal/core/usecase"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/cvapi"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/queue/nats"
	"github.com/resumecraft/cv-upload-client/internal/infrastructure/repository/postgres"
	"github.com/resumecraft/cv-upload-client/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Client  *cvapi.Client
	Archive ports.JobArchive
	Events  ports.EventPublisher
	Metrics *metrics.LifecycleMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	client := cvapi.New(cfg.APIBaseURL)

	app := &App{
		Config:  cfg,
		Client:  client,
		Metrics: metrics.NewLifecycleMetrics("cv-upload-client"),
	}

	var closers []func()

	if cfg.ArchiveEnabled {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewJobRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		app.Archive = repo
		closers = append(closers, func() { _ = db.Close() })
	}

	if cfg.EventsEnabled {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			for _, closeFn := range closers {
				closeFn()
			}
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		app.Events = publisher
		closers = append(closers, publisher.Close)
	}

	app.closeFn = func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
	return app, nil
}

// NewLifecycle builds one orchestrator instance around the shared
// client. One lifecycle per submitted file.
func (a *App) NewLifecycle() *usecase.Lifecycle {
	return usecase.NewLifecycle(a.Client, a.Client, a.Client, a.Client)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
