package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// DatasetSource resolves a dataset reference into a normalized in-memory model.
type DatasetSource interface {
	Load(ctx context.Context, ref string) (*domain.Dataset, error)
}

// ObjectStorage stores dataset documents and media.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ContentHasher supplies media content hashes for duplicate detection.
type ContentHasher interface {
	Hash(ctx context.Context, item *domain.Item) (string, error)
}

// RunRepository persists comparison runs and their reports.
type RunRepository interface {
	Create(ctx context.Context, run *domain.ComparisonRun) error
	GetByID(ctx context.Context, id string) (*domain.ComparisonRun, error)
	UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error
	SaveReport(ctx context.Context, id string, report *domain.ComparisonReport) error
}

// RunQueue publishes/consumes comparison run events.
type RunQueue interface {
	PublishRunRequested(ctx context.Context, runID string) error
	SubscribeRunRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// RunObserver receives run lifecycle signals, typically for metrics.
type RunObserver interface {
	StartRun(queueLag time.Duration)
	FinishRun(duration time.Duration, report *domain.ComparisonReport, err error)
}

// ReportExporter renders a report for external consumers.
type ReportExporter interface {
	Export(ctx context.Context, report *domain.ComparisonReport, w io.Writer) error
}
