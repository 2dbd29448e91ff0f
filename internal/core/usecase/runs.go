package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

type ComparisonRunsUseCase struct {
	repo  ports.RunRepository
	queue ports.RunQueue
}

func NewComparisonRunsUseCase(repo ports.RunRepository, queue ports.RunQueue) *ComparisonRunsUseCase {
	return &ComparisonRunsUseCase{repo: repo, queue: queue}
}

// Submit records a queued run and announces it. Invalid options are rejected
// before anything is stored.
func (uc *ComparisonRunsUseCase) Submit(
	ctx context.Context,
	datasetA, datasetB string,
	opts domain.CompareOptions,
) (*domain.ComparisonRun, error) {
	datasetA = strings.TrimSpace(datasetA)
	datasetB = strings.TrimSpace(datasetB)
	if datasetA == "" || datasetB == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit comparison", errors.New("both dataset references are required"))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run := &domain.ComparisonRun{
		ID:        uuid.NewString(),
		DatasetA:  datasetA,
		DatasetB:  datasetB,
		Options:   opts,
		Status:    domain.RunQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create comparison run: %w", err)
	}
	if err := uc.queue.PublishRunRequested(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("publish run requested event: %w", err)
	}
	return run, nil
}

func (uc *ComparisonRunsUseCase) Get(ctx context.Context, runID string) (*domain.ComparisonRun, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get comparison run", errors.New("run id is required"))
	}
	return uc.repo.GetByID(ctx, runID)
}

type ProcessComparisonUseCase struct {
	repo       ports.RunRepository
	source     ports.DatasetSource
	comparator ports.DatasetComparator
	observer   ports.RunObserver
	logger     *slog.Logger
}

func NewProcessComparisonUseCase(
	repo ports.RunRepository,
	source ports.DatasetSource,
	comparator ports.DatasetComparator,
	observer ports.RunObserver,
	logger *slog.Logger,
) *ProcessComparisonUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessComparisonUseCase{
		repo:       repo,
		source:     source,
		comparator: comparator,
		observer:   observer,
		logger:     logger,
	}
}

func (uc *ProcessComparisonUseCase) ProcessByID(ctx context.Context, runID string) error {
	run, err := uc.repo.GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("fetch comparison run: %w", err)
	}
	if run.Status == domain.RunSucceeded {
		uc.logger.Info("comparison_run_skipped", "run_id", runID, "reason", "already succeeded")
		return nil
	}
	if err := uc.repo.UpdateStatus(ctx, runID, domain.RunRunning, ""); err != nil {
		return fmt.Errorf("set status=running: %w", err)
	}

	uc.logger.Info("comparison_run_started", "run_id", runID, "dataset_a", run.DatasetA, "dataset_b", run.DatasetB)
	if uc.observer != nil {
		var lag time.Duration
		if !run.CreatedAt.IsZero() {
			lag = time.Since(run.CreatedAt)
		}
		uc.observer.StartRun(lag)
	}
	started := time.Now()
	report, err := uc.execute(ctx, run)
	if uc.observer != nil {
		uc.observer.FinishRun(time.Since(started), report, err)
	}

	if err != nil {
		uc.logger.Error("comparison_run_failed", "run_id", runID, "error", err)
		if failErr := uc.repo.UpdateStatus(ctx, runID, domain.RunFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveReport(ctx, runID, report); err != nil {
		return fmt.Errorf("save comparison report: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, runID, domain.RunSucceeded, ""); err != nil {
		return fmt.Errorf("set status=succeeded: %w", err)
	}
	uc.logger.Info("comparison_run_finished",
		"run_id", runID,
		"matched_pairs", report.Summary.MatchedPairs,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func (uc *ProcessComparisonUseCase) execute(ctx context.Context, run *domain.ComparisonRun) (*domain.ComparisonReport, error) {
	a, err := uc.source.Load(ctx, run.DatasetA)
	if err != nil {
		return nil, fmt.Errorf("load dataset a: %w", err)
	}
	b, err := uc.source.Load(ctx, run.DatasetB)
	if err != nil {
		return nil, fmt.Errorf("load dataset b: %w", err)
	}
	report, err := uc.comparator.Compare(ctx, a, b, run.Options)
	if err != nil {
		return nil, err
	}
	return report, nil
}
