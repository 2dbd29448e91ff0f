package usecase

import (
	"fmt"
	"sort"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// AnnotationMatcher pairs annotations of corresponding items, type by type.
type AnnotationMatcher struct {
	opts     domain.CompareOptions
	labels   *domain.LabelMap
	assigner Assigner
	schemaA  domain.CategorySet
	schemaB  domain.CategorySet
}

func NewAnnotationMatcher(
	opts domain.CompareOptions,
	labels *domain.LabelMap,
	schemaA, schemaB domain.CategorySet,
) *AnnotationMatcher {
	return &AnnotationMatcher{
		opts:     opts,
		labels:   labels,
		assigner: NewAssigner(opts.Assignment),
		schemaA:  schemaA,
		schemaB:  schemaB,
	}
}

// MatchItem matches the annotations of two items that share a key. A nil
// side is an exclusive item: everything on the other side is unmatched.
func (m *AnnotationMatcher) MatchItem(a, b *domain.Item) domain.ItemMatch {
	switch {
	case a == nil && b == nil:
		return domain.ItemMatch{}
	case b == nil:
		res := newItemMatch(a.Key(), domain.ItemOnlyA)
		res.UnmatchedA = allRefs(a, m.schemaA)
		return res
	case a == nil:
		res := newItemMatch(b.Key(), domain.ItemOnlyB)
		res.UnmatchedB = allRefs(b, m.schemaB)
		return res
	}

	res := newItemMatch(a.Key(), domain.ItemCorresponding)
	if diags := m.structuralIssues(a, b); len(diags) > 0 {
		res.Status = domain.ItemStructural
		res.Diagnostics = diags
		res.UnmatchedA = allRefs(a, m.schemaA)
		res.UnmatchedB = allRefs(b, m.schemaB)
		return res
	}

	candsA := prepareAll(a, m.schemaA)
	candsB := prepareAll(b, m.schemaB)
	usedA := make([]bool, len(candsA))
	usedB := make([]bool, len(candsB))

	for _, t := range domain.AnnotationTypes {
		groupA := wellFormedOfType(candsA, t)
		groupB := wellFormedOfType(candsB, t)
		if len(groupA) == 0 || len(groupB) == 0 {
			continue
		}

		scores := make([][]float64, len(groupA))
		for i, ca := range groupA {
			scores[i] = make([]float64, len(groupB))
			for j, cb := range groupB {
				if m.opts.LabelAwareMatching && !m.labels.Compatible(ca.ann.Label, cb.ann.Label) {
					continue
				}
				scores[i][j] = similarity(m.labels, ca, cb)
			}
		}

		for _, p := range m.assigner.Assign(scores, m.opts.Threshold(t)) {
			ca, cb := groupA[p.A], groupB[p.B]
			usedA[ca.index] = true
			usedB[cb.index] = true
			res.Pairs = append(res.Pairs, domain.MatchedPair{
				A:     domain.RefOf(ca.index, *ca.ann),
				B:     domain.RefOf(cb.index, *cb.ann),
				Score: p.Score,
			})
		}
	}

	sort.Slice(res.Pairs, func(i, j int) bool { return res.Pairs[i].A.Index < res.Pairs[j].A.Index })
	res.UnmatchedA = leftovers(candsA, usedA)
	res.UnmatchedB = leftovers(candsB, usedB)
	return res
}

// structuralIssues lists structural problems that make label-aware matching of the
// item meaningless: labels referencing categories absent from their own dataset.
// Label-agnostic matching never reads labels, so it skips the check.
func (m *AnnotationMatcher) structuralIssues(a, b *domain.Item) []string {
	if !m.opts.LabelAwareMatching {
		return nil
	}
	var diags []string
	for i, ann := range a.Annotations {
		if ann.HasLabel() && !m.schemaA.Has(ann.Label) {
			diags = append(diags, fmt.Sprintf("dataset A annotation %d references undeclared category %q", i, ann.Label))
		}
	}
	for i, ann := range b.Annotations {
		if ann.HasLabel() && !m.schemaB.Has(ann.Label) {
			diags = append(diags, fmt.Sprintf("dataset B annotation %d references undeclared category %q", i, ann.Label))
		}
	}
	return diags
}

func newItemMatch(key domain.ItemKey, status domain.ItemStatus) domain.ItemMatch {
	return domain.ItemMatch{
		Key:        key,
		Status:     status,
		Pairs:      []domain.MatchedPair{},
		UnmatchedA: []domain.AnnotationRef{},
		UnmatchedB: []domain.AnnotationRef{},
	}
}

// prepareAll also marks annotations with out-of-domain attribute values as
// malformed, which keeps them out of matching.
func prepareAll(item *domain.Item, schema domain.CategorySet) []candidate {
	out := make([]candidate, len(item.Annotations))
	for i := range item.Annotations {
		out[i] = prepareCandidate(i, &item.Annotations[i])
		if out[i].malformed == nil {
			out[i].malformed = item.Annotations[i].CheckAttributeValues(schema)
		}
	}
	return out
}

func wellFormedOfType(cands []candidate, t domain.AnnotationType) []candidate {
	var out []candidate
	for _, c := range cands {
		if c.ann.Type == t && c.malformed == nil {
			out = append(out, c)
		}
	}
	return out
}

func leftovers(cands []candidate, used []bool) []domain.AnnotationRef {
	out := []domain.AnnotationRef{}
	for i, c := range cands {
		if used[i] {
			continue
		}
		ref := domain.RefOf(c.index, *c.ann)
		ref.Malformed = c.malformed != nil
		out = append(out, ref)
	}
	return out
}

func allRefs(item *domain.Item, schema domain.CategorySet) []domain.AnnotationRef {
	out := make([]domain.AnnotationRef, len(item.Annotations))
	for i, ann := range item.Annotations {
		out[i] = domain.RefOf(i, ann)
		out[i].Malformed = ann.CheckWellFormed(schema) != nil
	}
	return out
}

// tally folds one item outcome into a confusion matrix and a match summary.
func tally(res domain.ItemMatch, labels *domain.LabelMap) (domain.ConfusionMatrix, domain.MatchSummary) {
	confusion := domain.ConfusionMatrix{}
	summary := domain.NewMatchSummary()
	if res.Status == domain.ItemStructural {
		summary.StructuralItems++
	}
	for _, p := range res.Pairs {
		confusion.Add(labelOrUnlabeled(p.A.Label), labelOrUnlabeled(p.B.Label), 1)
		summary.MatchedPairs++
		if labels.Compatible(p.A.Label, p.B.Label) {
			summary.AgreeingPairs++
		}
		ts := summary.ByType[p.A.Type]
		ts.Matched++
		ts.ScoreSum += p.Score
		summary.ByType[p.A.Type] = ts
	}
	for _, ref := range res.UnmatchedA {
		confusion.Add(labelOrUnlabeled(ref.Label), domain.NoMatch, 1)
		summary.UnmatchedA++
		ts := summary.ByType[ref.Type]
		ts.UnmatchedA++
		summary.ByType[ref.Type] = ts
	}
	for _, ref := range res.UnmatchedB {
		confusion.Add(domain.NoMatch, labelOrUnlabeled(ref.Label), 1)
		summary.UnmatchedB++
		ts := summary.ByType[ref.Type]
		ts.UnmatchedB++
		summary.ByType[ref.Type] = ts
	}
	return confusion, summary
}

func labelOrUnlabeled(label string) string {
	if label == "" {
		return domain.Unlabeled
	}
	return label
}
