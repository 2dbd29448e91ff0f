package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// crowdedPair builds datasets with many overlapping boxes so that tie-breaks
// and assignment order matter.
func crowdedPair() (*domain.Dataset, *domain.Dataset) {
	cats := categories("cat", "dog")
	var itemsA, itemsB []domain.Item
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("img%02d", i)
		var annsA, annsB []domain.Annotation
		for k := 0; k < 6; k++ {
			label := "cat"
			if k%3 == 0 {
				label = "dog"
			}
			off := float64((i + k) % 4)
			annsA = append(annsA, bbox(label, float64(k*3), 0, 10, 10))
			annsB = append(annsB, bbox(label, float64(k*3)+off, off/2, 10, 10))
		}
		itemsA = append(itemsA, item("train", id, annsA...))
		itemsB = append(itemsB, item("train", id, annsB...))
	}
	itemsA = append(itemsA, item("val", "only-a", bbox("cat", 0, 0, 5, 5)))
	itemsB = append(itemsB, item("val", "only-b", bbox("dog", 0, 0, 5, 5)))
	return dataset("a", cats, itemsA...), dataset("b", cats, itemsB...)
}

var ignoreLabelMapIndex = cmpopts.IgnoreUnexported(domain.LabelMap{})

func TestCompareDeterministicAcrossWorkerCounts(t *testing.T) {
	a, b := crowdedPair()
	uc := newComparison()

	opts := domain.DefaultCompareOptions()
	opts.Workers = 1
	first, err := uc.Compare(context.Background(), a, b, opts)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	for _, workers := range []int{1, 3, 16} {
		opts.Workers = workers
		again, err := uc.Compare(context.Background(), a, b, opts)
		if err != nil {
			t.Fatalf("compare with %d workers: %v", workers, err)
		}
		again.Options.Workers = 1
		if diff := cmp.Diff(first, again, ignoreLabelMapIndex); diff != "" {
			t.Fatalf("report differs with %d workers (-first +again):\n%s", workers, diff)
		}
	}
}

func TestCompareThresholdMonotonicity(t *testing.T) {
	a, b := crowdedPair()
	uc := newComparison()

	for _, strategy := range []domain.AssignmentStrategy{domain.AssignGreedy, domain.AssignOptimal} {
		prev := -1
		for _, threshold := range []float64{0, 0.2, 0.4, 0.5, 0.6, 0.8, 0.95, 1} {
			opts := domain.DefaultCompareOptions()
			opts.IoUThreshold = threshold
			opts.Assignment = strategy
			report, err := uc.Compare(context.Background(), a, b, opts)
			if err != nil {
				t.Fatalf("compare: %v", err)
			}
			matched := report.Summary.MatchedPairs
			if prev >= 0 && matched > prev {
				t.Fatalf("%s: matched pairs grew from %d to %d at threshold %v", strategy, prev, matched, threshold)
			}
			prev = matched
		}
	}
}

func TestCompareEmptyAgainstNonEmpty(t *testing.T) {
	cats := categories("cat")
	empty := dataset("empty", domain.CategorySet{})
	full := dataset("full", cats,
		item("train", "1", bbox("cat", 0, 0, 10, 10), bbox("cat", 5, 5, 10, 10)),
		item("train", "2"),
	)

	report, err := newComparison().Compare(context.Background(), empty, full, domain.DefaultCompareOptions())
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.Summary.MatchedPairs != 0 {
		t.Fatalf("expected zero matched pairs, got %d", report.Summary.MatchedPairs)
	}
	if report.Summary.UnmatchedB != 2 {
		t.Fatalf("expected both annotations unmatched, got %d", report.Summary.UnmatchedB)
	}
	if len(report.UnmatchedItemsB) != 2 || len(report.UnmatchedItemsA) != 0 {
		t.Fatalf("unexpected unmatched items a=%v b=%v", report.UnmatchedItemsA, report.UnmatchedItemsB)
	}
	if report.Confusion.Get(domain.NoMatch, "cat") != 2 {
		t.Fatalf("unexpected confusion: %v", report.Confusion)
	}

	stats := report.StatisticsA
	if stats.ItemsCount != 0 || stats.AnnotationsCount != 0 || stats.UndefinedLabels.Percent != 0 {
		t.Fatalf("expected zero statistics for the empty side, got %+v", stats)
	}
	if !report.ValidationA.OK() {
		t.Fatalf("expected no findings for the empty side, got %+v", report.ValidationA.Findings)
	}
}

func TestCompareNilDatasets(t *testing.T) {
	report, err := newComparison().Compare(context.Background(), nil, nil, domain.DefaultCompareOptions())
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(report.ItemMatches) != 0 || report.LabelMap == nil {
		t.Fatalf("expected an empty report, got %+v", report)
	}
}

func TestCompareRejectsInvalidOptions(t *testing.T) {
	opts := domain.DefaultCompareOptions()
	opts.IoUThreshold = -0.1

	stats := &statsCalculatorSpy{}
	uc := NewComparisonUseCase(stats, NewValidationUseCase(0))
	_, err := uc.Compare(context.Background(), dataset("a", categories()), dataset("b", categories()), opts)
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
	if stats.calls != 0 {
		t.Fatalf("expected no computation before rejecting options, got %d calls", stats.calls)
	}
}

func TestCompareScenarioReport(t *testing.T) {
	cats := categories("cat")
	a := dataset("a", cats, item("train", "img1", bbox("cat", 0, 0, 10, 10)))
	b := dataset("b", cats, item("train", "img1", bbox("cat", 1, 1, 10, 10)))

	report, err := newComparison().Compare(context.Background(), a, b, domain.DefaultCompareOptions())
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(report.ItemMatches) != 1 || len(report.ItemMatches[0].Pairs) != 1 {
		t.Fatalf("expected one item with one pair, got %+v", report.ItemMatches)
	}
	if report.Confusion.Get("cat", "cat") != 1 {
		t.Fatalf("unexpected confusion: %v", report.Confusion)
	}
	if report.Summary.LabelAgreement != 1 {
		t.Fatalf("expected full label agreement, got %v", report.Summary.LabelAgreement)
	}
	if got := report.Summary.ByType[domain.AnnotationBBox].MeanScore; got < 0.68 || got > 0.681 {
		t.Fatalf("unexpected mean bbox score %v", got)
	}
}

func TestCompareDuplicateKeysAreStructural(t *testing.T) {
	cats := categories("cat")
	a := dataset("a", cats,
		item("train", "1", bbox("cat", 0, 0, 10, 10)),
		item("train", "1", bbox("cat", 0, 0, 10, 10)),
	)
	b := dataset("b", cats, item("train", "1", bbox("cat", 0, 0, 10, 10)))

	report, err := newComparison().Compare(context.Background(), a, b, domain.DefaultCompareOptions())
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(report.ItemMatches) != 2 {
		t.Fatalf("expected two item results, got %d", len(report.ItemMatches))
	}
	if report.ItemMatches[0].Status != domain.ItemCorresponding || len(report.ItemMatches[0].Pairs) != 1 {
		t.Fatalf("expected first occurrence to match, got %+v", report.ItemMatches[0])
	}
	dup := report.ItemMatches[1]
	if dup.Status != domain.ItemStructural || len(dup.Diagnostics) != 1 || len(dup.UnmatchedA) != 1 {
		t.Fatalf("expected duplicate flagged structural, got %+v", dup)
	}
	if report.Summary.StructuralItems != 1 {
		t.Fatalf("expected one structural item, got %d", report.Summary.StructuralItems)
	}
}

func TestCompareStructuralItemDoesNotAbortRun(t *testing.T) {
	cats := categories("cat")
	a := dataset("a", cats,
		item("train", "1", bbox("ghost", 0, 0, 10, 10)),
		item("train", "2", bbox("cat", 0, 0, 10, 10)),
	)
	b := dataset("b", cats,
		item("train", "1", bbox("cat", 0, 0, 10, 10)),
		item("train", "2", bbox("cat", 0, 0, 10, 10)),
	)
	report, err := newComparison().Compare(context.Background(), a, b, domain.DefaultCompareOptions())
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.ItemMatches[0].Status != domain.ItemStructural {
		t.Fatalf("expected first item structural, got %s", report.ItemMatches[0].Status)
	}
	if report.Summary.MatchedPairs != 1 {
		t.Fatalf("expected the second item to match, got %d pairs", report.Summary.MatchedPairs)
	}
	if got := report.ValidationA.OfKind(domain.FindingUndefinedLabel); len(got) != 1 {
		t.Fatalf("expected one undefined label finding, got %d", len(got))
	}
}

func TestCompareSubsetFilterRestrictsStatisticsOnly(t *testing.T) {
	cats := categories("cat")
	a := dataset("a", cats,
		item("train", "1", bbox("cat", 0, 0, 10, 10)),
		item("val", "1", bbox("cat", 0, 0, 10, 10)),
	)
	b := dataset("b", cats,
		item("train", "1", bbox("cat", 0, 0, 10, 10)),
		item("val", "1", bbox("cat", 0, 0, 10, 10)),
	)
	opts := domain.DefaultCompareOptions()
	opts.SubsetFilter = []string{"val"}

	report, err := newComparison().Compare(context.Background(), a, b, opts)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if report.StatisticsA.ItemsCount != 1 || report.StatisticsA.ItemsBySubset["val"] != 1 {
		t.Fatalf("expected statistics over val only, got %+v", report.StatisticsA.ItemsBySubset)
	}
	if report.Summary.MatchedPairs != 2 {
		t.Fatalf("expected matching over every subset, got %d", report.Summary.MatchedPairs)
	}
}

func TestCompareCanceledContext(t *testing.T) {
	a, b := crowdedPair()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newComparison().Compare(ctx, a, b, domain.DefaultCompareOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

type statsCalculatorSpy struct {
	calls int
}

func (s *statsCalculatorSpy) Compute(context.Context, *domain.Dataset, domain.StatisticsFilter) (*domain.DatasetStatistics, error) {
	s.calls++
	return domain.NewDatasetStatistics(), nil
}
