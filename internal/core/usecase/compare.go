package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

// ComparisonUseCase runs a full two-dataset comparison: reconciliation,
// per-item matching, and statistics plus validation for both sides.
type ComparisonUseCase struct {
	stats     ports.StatisticsCalculator
	validator ports.DatasetValidator
}

func NewComparisonUseCase(stats ports.StatisticsCalculator, validator ports.DatasetValidator) *ComparisonUseCase {
	return &ComparisonUseCase{stats: stats, validator: validator}
}

func (uc *ComparisonUseCase) Compare(
	ctx context.Context,
	a, b *domain.Dataset,
	opts domain.CompareOptions,
) (*domain.ComparisonReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if a == nil {
		a = &domain.Dataset{}
	}
	if b == nil {
		b = &domain.Dataset{}
	}

	labels := NewLabelReconciler(opts.AutoAcceptRenamedLabels).Reconcile(a.Categories, b.Categories)
	matcher := NewAnnotationMatcher(opts, labels, a.Categories, b.Categories)
	plan := planItems(a, b)
	filter := domain.StatisticsFilter{Subsets: opts.SubsetFilter}

	var parts reportParts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches, err := matchAll(gctx, matcher, plan, opts.Workers)
		parts.matches = matches
		return err
	})
	g.Go(func() (err error) {
		parts.statsA, err = uc.stats.Compute(gctx, a, filter)
		return err
	})
	g.Go(func() (err error) {
		parts.statsB, err = uc.stats.Compute(gctx, b, filter)
		return err
	})
	g.Go(func() (err error) {
		parts.validationA, err = uc.validator.Validate(gctx, a, a.Categories, filter)
		return err
	})
	g.Go(func() (err error) {
		parts.validationB, err = uc.validator.Validate(gctx, b, b.Categories, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compare datasets: %w", err)
	}

	parts.nameA, parts.nameB = a.Name, b.Name
	parts.opts = opts
	parts.labels = labels
	parts.confusion, parts.summary = reduceMatches(parts.matches, labels)
	return buildReport(parts), nil
}

// itemPair is one unit of matching work. A non-empty diagnostic marks a
// duplicate key that cannot take part in the identity join.
type itemPair struct {
	a, b       *domain.Item
	diagnostic string
}

// planItems joins items by key: A items in dataset order, then B-only items in
// B order. Only the first occurrence of a key joins.
func planItems(a, b *domain.Dataset) []itemPair {
	firstB := make(map[domain.ItemKey]int, len(b.Items))
	for j := range b.Items {
		if _, ok := firstB[b.Items[j].Key()]; !ok {
			firstB[b.Items[j].Key()] = j
		}
	}

	joined := make([]bool, len(b.Items))
	seenA := make(map[domain.ItemKey]bool, len(a.Items))
	plan := make([]itemPair, 0, len(a.Items)+len(b.Items))
	for i := range a.Items {
		item := &a.Items[i]
		key := item.Key()
		if seenA[key] {
			plan = append(plan, itemPair{a: item, diagnostic: fmt.Sprintf("duplicate item key %s in dataset A", key)})
			continue
		}
		seenA[key] = true
		if j, ok := firstB[key]; ok {
			joined[j] = true
			plan = append(plan, itemPair{a: item, b: &b.Items[j]})
			continue
		}
		plan = append(plan, itemPair{a: item})
	}
	for j := range b.Items {
		if joined[j] {
			continue
		}
		item := &b.Items[j]
		if firstB[item.Key()] != j {
			plan = append(plan, itemPair{b: item, diagnostic: fmt.Sprintf("duplicate item key %s in dataset B", item.Key())})
			continue
		}
		plan = append(plan, itemPair{b: item})
	}
	return plan
}

// matchAll runs one work unit per planned pair. Results land at the pair's
// position, so completion order never shows in the output.
func matchAll(ctx context.Context, matcher *AnnotationMatcher, plan []itemPair, workers int) ([]domain.ItemMatch, error) {
	results := make([]domain.ItemMatch, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(workers))
	for i, pair := range plan {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if pair.diagnostic != "" {
				results[i] = matcher.structuralItem(pair, pair.diagnostic)
				return nil
			}
			results[i] = matcher.MatchItem(pair.a, pair.b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (m *AnnotationMatcher) structuralItem(pair itemPair, diagnostic string) domain.ItemMatch {
	var res domain.ItemMatch
	switch {
	case pair.a != nil:
		res = newItemMatch(pair.a.Key(), domain.ItemStructural)
		res.UnmatchedA = allRefs(pair.a, m.schemaA)
	case pair.b != nil:
		res = newItemMatch(pair.b.Key(), domain.ItemStructural)
		res.UnmatchedB = allRefs(pair.b, m.schemaB)
	}
	res.Diagnostics = []string{diagnostic}
	return res
}

func reduceMatches(matches []domain.ItemMatch, labels *domain.LabelMap) (domain.ConfusionMatrix, domain.MatchSummary) {
	confusion := domain.ConfusionMatrix{}
	summary := domain.NewMatchSummary()
	for _, m := range matches {
		c, s := tally(m, labels)
		confusion.Merge(c)
		summary.Merge(s)
	}
	summary.Finalize()
	return confusion, summary
}

type reportParts struct {
	nameA, nameB string
	opts         domain.CompareOptions
	labels       *domain.LabelMap
	matches      []domain.ItemMatch
	confusion    domain.ConfusionMatrix
	summary      domain.MatchSummary
	statsA       *domain.DatasetStatistics
	statsB       *domain.DatasetStatistics
	validationA  *domain.ValidationReport
	validationB  *domain.ValidationReport
}

// buildReport assembles already computed parts into a report.
func buildReport(parts reportParts) *domain.ComparisonReport {
	report := &domain.ComparisonReport{
		DatasetA:        parts.nameA,
		DatasetB:        parts.nameB,
		Options:         parts.opts,
		LabelMap:        parts.labels,
		ItemMatches:     parts.matches,
		UnmatchedItemsA: []domain.ItemKey{},
		UnmatchedItemsB: []domain.ItemKey{},
		Confusion:       parts.confusion,
		Summary:         parts.summary,
		StatisticsA:     parts.statsA,
		StatisticsB:     parts.statsB,
		ValidationA:     parts.validationA,
		ValidationB:     parts.validationB,
	}
	if report.ItemMatches == nil {
		report.ItemMatches = []domain.ItemMatch{}
	}
	if report.Confusion == nil {
		report.Confusion = domain.ConfusionMatrix{}
	}
	for _, m := range parts.matches {
		switch m.Status {
		case domain.ItemOnlyA:
			report.UnmatchedItemsA = append(report.UnmatchedItemsA, m.Key)
		case domain.ItemOnlyB:
			report.UnmatchedItemsB = append(report.UnmatchedItemsB, m.Key)
		}
	}
	return report
}
