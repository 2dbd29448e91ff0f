package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

type statusCall struct {
	status domain.RunStatus
	errMsg string
}

type runRepoFake struct {
	run         *domain.ComparisonRun
	created     []*domain.ComparisonRun
	createErr   error
	getErr      error
	saveErr     error
	statusCalls []statusCall
	saved       *domain.ComparisonReport
}

func (f *runRepoFake) Create(_ context.Context, run *domain.ComparisonRun) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, run)
	return nil
}

func (f *runRepoFake) GetByID(context.Context, string) (*domain.ComparisonRun, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyRun := *f.run
	return &copyRun, nil
}

func (f *runRepoFake) UpdateStatus(_ context.Context, _ string, status domain.RunStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return nil
}

func (f *runRepoFake) SaveReport(_ context.Context, _ string, report *domain.ComparisonReport) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = report
	return nil
}

type runQueueFake struct {
	published []string
	err       error
}

func (f *runQueueFake) PublishRunRequested(_ context.Context, runID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, runID)
	return nil
}

func (f *runQueueFake) SubscribeRunRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type sourceFake struct {
	datasets map[string]*domain.Dataset
}

func (f *sourceFake) Load(_ context.Context, ref string) (*domain.Dataset, error) {
	ds, ok := f.datasets[ref]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load dataset", errors.New("unknown dataset "+ref))
	}
	return ds, nil
}

type observerFake struct {
	started  int
	finished int
	lastErr  error
}

func (f *observerFake) StartRun(time.Duration) { f.started++ }

func (f *observerFake) FinishRun(_ time.Duration, _ *domain.ComparisonReport, err error) {
	f.finished++
	f.lastErr = err
}

func TestSubmitCreatesAndPublishes(t *testing.T) {
	repo := &runRepoFake{}
	queue := &runQueueFake{}
	uc := NewComparisonRunsUseCase(repo, queue)

	run, err := uc.Submit(context.Background(), " a.json ", "b.json", domain.DefaultCompareOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if run.Status != domain.RunQueued || run.DatasetA != "a.json" || run.ID == "" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(repo.created) != 1 || len(queue.published) != 1 || queue.published[0] != run.ID {
		t.Fatalf("expected run stored and announced, created=%d published=%v", len(repo.created), queue.published)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	repo := &runRepoFake{}
	uc := NewComparisonRunsUseCase(repo, &runQueueFake{})

	if _, err := uc.Submit(context.Background(), "", "b", domain.DefaultCompareOptions()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	opts := domain.DefaultCompareOptions()
	opts.Assignment = "random"
	if _, err := uc.Submit(context.Background(), "a", "b", opts); !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected nothing stored, got %d runs", len(repo.created))
	}
}

func TestSubmitPublishFailure(t *testing.T) {
	uc := NewComparisonRunsUseCase(&runRepoFake{}, &runQueueFake{err: errors.New("nats down")})
	_, err := uc.Submit(context.Background(), "a", "b", domain.DefaultCompareOptions())
	if err == nil || !strings.Contains(err.Error(), "publish run requested event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestProcessByIDSuccess(t *testing.T) {
	cats := categories("cat")
	repo := &runRepoFake{run: &domain.ComparisonRun{
		ID: "run-1", DatasetA: "a", DatasetB: "b", Options: domain.DefaultCompareOptions(), Status: domain.RunQueued,
	}}
	source := &sourceFake{datasets: map[string]*domain.Dataset{
		"a": dataset("a", cats, item("train", "img1", bbox("cat", 0, 0, 10, 10))),
		"b": dataset("b", cats, item("train", "img1", bbox("cat", 1, 1, 10, 10))),
	}}
	observer := &observerFake{}
	uc := NewProcessComparisonUseCase(repo, source, newComparison(), observer, nil)

	if err := uc.ProcessByID(context.Background(), "run-1"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[0].status != domain.RunRunning || repo.statusCalls[1].status != domain.RunSucceeded {
		t.Fatalf("unexpected status calls: %+v", repo.statusCalls)
	}
	if repo.saved == nil || repo.saved.Summary.MatchedPairs != 1 {
		t.Fatalf("expected saved report with one pair, got %+v", repo.saved)
	}
	if observer.started != 1 || observer.finished != 1 || observer.lastErr != nil {
		t.Fatalf("unexpected observer calls: %+v", observer)
	}
}

func TestProcessByIDMarksFailed(t *testing.T) {
	repo := &runRepoFake{run: &domain.ComparisonRun{
		ID: "run-2", DatasetA: "a", DatasetB: "missing", Options: domain.DefaultCompareOptions(),
	}}
	source := &sourceFake{datasets: map[string]*domain.Dataset{"a": dataset("a", categories())}}
	observer := &observerFake{}
	uc := NewProcessComparisonUseCase(repo, source, newComparison(), observer, nil)

	err := uc.ProcessByID(context.Background(), "run-2")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last.status != domain.RunFailed || !strings.Contains(last.errMsg, "missing") {
		t.Fatalf("expected failed status with message, got %+v", last)
	}
	if observer.lastErr == nil {
		t.Fatalf("expected observer to see the failure")
	}
}

func TestProcessByIDSkipsSucceededRun(t *testing.T) {
	repo := &runRepoFake{run: &domain.ComparisonRun{ID: "run-3", Status: domain.RunSucceeded}}
	uc := NewProcessComparisonUseCase(repo, &sourceFake{}, newComparison(), nil, nil)
	if err := uc.ProcessByID(context.Background(), "run-3"); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("expected no status change, got %+v", repo.statusCalls)
	}
}

func TestGetRunRequiresID(t *testing.T) {
	uc := NewComparisonRunsUseCase(&runRepoFake{}, &runQueueFake{})
	if _, err := uc.Get(context.Background(), " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
