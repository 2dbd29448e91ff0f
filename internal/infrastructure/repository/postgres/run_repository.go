package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/resilience"
)

type RunRepository struct {
	db       *sql.DB
	executor *resilience.Executor
	now      func() time.Time
}

// NewRunRepository returns a repository over db. executor may be nil.
func NewRunRepository(db *sql.DB, executor *resilience.Executor) *RunRepository {
	return &RunRepository{
		db:       db,
		executor: executor,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *RunRepository) Create(ctx context.Context, run *domain.ComparisonRun) error {
	optionsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	return r.exec(ctx, "postgres.runs.create", func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `
INSERT INTO comparison_runs (
	id, dataset_a, dataset_b, options, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
			run.ID, run.DatasetA, run.DatasetB, optionsJSON, string(run.Status), run.Error, run.CreatedAt, run.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert comparison run: %w", err)
		}
		return nil
	})
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.ComparisonRun, error) {
	run, err := resilience.Call(ctx, r.executor, "postgres.runs.get", func(ctx context.Context) (*domain.ComparisonRun, error) {
		row := r.db.QueryRowContext(ctx, `
SELECT id, dataset_a, dataset_b, options, status, COALESCE(error_message, ''), report, created_at, updated_at
FROM comparison_runs
WHERE id = $1
`, id)
		return scanRun(row, id)
	}, classifyDBError)
	if err != nil {
		return nil, wrapCircuitOpen("postgres.runs.get", err)
	}
	return run, nil
}

func scanRun(row *sql.Row, id string) (*domain.ComparisonRun, error) {
	var run domain.ComparisonRun
	var optionsRaw, reportRaw []byte
	var status string

	err := row.Scan(
		&run.ID, &run.DatasetA, &run.DatasetB, &optionsRaw, &status, &run.Error, &reportRaw, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "get comparison run", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan comparison run: %w", err)
	}

	if err := json.Unmarshal(optionsRaw, &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if len(reportRaw) > 0 {
		var report domain.ComparisonReport
		if err := json.Unmarshal(reportRaw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		run.Report = &report
	}
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	return r.exec(ctx, "postgres.runs.update_status", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
UPDATE comparison_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, r.now())
		if err != nil {
			return fmt.Errorf("update comparison run status: %w", err)
		}
		return requireRow(res, id)
	})
}

func (r *RunRepository) SaveReport(ctx context.Context, id string, report *domain.ComparisonReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return r.exec(ctx, "postgres.runs.save_report", func(ctx context.Context) error {
		res, err := r.db.ExecContext(ctx, `
UPDATE comparison_runs
SET report = $2, updated_at = $3
WHERE id = $1
`, id, reportJSON, r.now())
		if err != nil {
			return fmt.Errorf("save comparison report: %w", err)
		}
		return requireRow(res, id)
	})
}

func (r *RunRepository) exec(ctx context.Context, operation string, fn func(context.Context) error) error {
	if r.executor == nil {
		return fn(ctx)
	}
	return wrapCircuitOpen(operation, r.executor.Execute(ctx, operation, fn, classifyDBError))
}

// wrapCircuitOpen reports a tripped breaker as a temporary failure.
func wrapCircuitOpen(operation string, err error) error {
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRunNotFound, "update comparison run", fmt.Errorf("id %s", id))
	}
	return nil
}
