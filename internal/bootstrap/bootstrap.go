package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/annotation-compare/internal/config"
	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
	"github.com/kirillkom/annotation-compare/internal/core/usecase"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/datasetfile"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/hashing"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/queue/nats"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/resilience"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/storage/localfs"
)

// Core holds the in-process comparison stack over local dataset storage. The
// CLI and the MCP server need nothing more.
type Core struct {
	Config         config.Config
	CompareOptions domain.CompareOptions

	Storage    *localfs.Storage
	Source     *datasetfile.Source
	Comparator ports.DatasetComparator
	Statistics ports.StatisticsCalculator
	Validator  ports.DatasetValidator
}

func NewCore(cfg config.Config, logger *slog.Logger) (*Core, error) {
	opts, err := cfg.CompareOptions()
	if err != nil {
		return nil, fmt.Errorf("load compare options: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	source := datasetfile.NewSource(storage, logger)
	stats := usecase.NewStatisticsUseCase(hashing.NewMediaHasher(storage), opts.Workers)
	validator := usecase.NewValidationUseCase(opts.Workers)

	return &Core{
		Config:         cfg,
		CompareOptions: opts,
		Storage:        storage,
		Source:         source,
		Comparator:     usecase.NewComparisonUseCase(stats, validator),
		Statistics:     stats,
		Validator:      validator,
	}, nil
}

// App adds run persistence and the run queue for the api and worker services.
type App struct {
	*Core

	Queue     *nats.Queue
	Repo      ports.RunRepository
	RunsUC    *usecase.ComparisonRunsUseCase
	ProcessUC ports.ComparisonProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.RunObserver) (*App, error) {
	core, err := NewCore(cfg, logger)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilience.ConfigFromEnv(), logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewRunRepository(db, executor)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Core:      core,
		Queue:     queue,
		Repo:      repo,
		RunsUC:    usecase.NewComparisonRunsUseCase(repo, queue),
		ProcessUC: usecase.NewProcessComparisonUseCase(repo, core.Source, core.Comparator, observer, logger),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
