package ports

import (
	"context"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// DatasetComparator is the inbound contract for a synchronous two-dataset comparison.
type DatasetComparator interface {
	Compare(ctx context.Context, a, b *domain.Dataset, opts domain.CompareOptions) (*domain.ComparisonReport, error)
}

// StatisticsCalculator computes descriptive statistics over one dataset.
type StatisticsCalculator interface {
	Compute(ctx context.Context, ds *domain.Dataset, filter domain.StatisticsFilter) (*domain.DatasetStatistics, error)
}

// DatasetValidator checks a dataset against a category schema.
type DatasetValidator interface {
	Validate(ctx context.Context, ds *domain.Dataset, schema domain.CategorySet, filter domain.StatisticsFilter) (*domain.ValidationReport, error)
}

// ComparisonSubmitter queues comparisons between stored datasets.
type ComparisonSubmitter interface {
	Submit(ctx context.Context, datasetA, datasetB string, opts domain.CompareOptions) (*domain.ComparisonRun, error)
}

// RunReader fetches comparison runs by id.
type RunReader interface {
	Get(ctx context.Context, runID string) (*domain.ComparisonRun, error)
}

// ComparisonProcessor executes a queued comparison run.
type ComparisonProcessor interface {
	ProcessByID(ctx context.Context, runID string) error
}
