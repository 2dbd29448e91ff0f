package domain

import "sort"

// NoMatch is the confusion bucket for an annotation without a counterpart.
const NoMatch = "<no match>"

// Unlabeled stands in for an absent label in confusion tallies.
const Unlabeled = "<unlabeled>"

type ItemStatus string

const (
	ItemCorresponding ItemStatus = "corresponding"
	ItemOnlyA         ItemStatus = "only_a"
	ItemOnlyB         ItemStatus = "only_b"
	// ItemStructural marks a corresponding item whose data model invariants are
	// broken; all of its annotations are reported unmatched.
	ItemStructural ItemStatus = "structural_inconsistency"
)

// AnnotationRef points at an annotation by its position in the owning item.
type AnnotationRef struct {
	Index     int            `json:"index" yaml:"index"`
	ID        string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type      AnnotationType `json:"type" yaml:"type"`
	Label     string         `json:"label,omitempty" yaml:"label,omitempty"`
	Group     int            `json:"group,omitempty" yaml:"group,omitempty"`
	Malformed bool           `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

func RefOf(index int, a Annotation) AnnotationRef {
	return AnnotationRef{
		Index: index,
		ID:    a.ID,
		Type:  a.Type,
		Label: a.Label,
		Group: a.Group,
	}
}

type MatchedPair struct {
	A     AnnotationRef `json:"a" yaml:"a"`
	B     AnnotationRef `json:"b" yaml:"b"`
	Score float64       `json:"score" yaml:"score"`
}

// ItemMatch is the per-item outcome of annotation matching.
type ItemMatch struct {
	Key         ItemKey         `json:"key" yaml:"key"`
	Status      ItemStatus      `json:"status" yaml:"status"`
	Pairs       []MatchedPair   `json:"pairs" yaml:"pairs"`
	UnmatchedA  []AnnotationRef `json:"unmatched_a" yaml:"unmatched_a"`
	UnmatchedB  []AnnotationRef `json:"unmatched_b" yaml:"unmatched_b"`
	Diagnostics []string        `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// ConfusionMatrix tallies label pairs: rows are A labels, columns are B labels,
// with NoMatch on either axis for unmatched annotations.
type ConfusionMatrix map[string]map[string]int

func (c ConfusionMatrix) Add(labelA, labelB string, n int) {
	row, ok := c[labelA]
	if !ok {
		row = make(map[string]int)
		c[labelA] = row
	}
	row[labelB] += n
}

func (c ConfusionMatrix) Get(labelA, labelB string) int {
	return c[labelA][labelB]
}

// Merge adds other into c. Addition keeps the reduction order-independent.
func (c ConfusionMatrix) Merge(other ConfusionMatrix) {
	for a, row := range other {
		for b, n := range row {
			c.Add(a, b, n)
		}
	}
}

type ConfusionCell struct {
	LabelA string `json:"label_a" yaml:"label_a"`
	LabelB string `json:"label_b" yaml:"label_b"`
	Count  int    `json:"count" yaml:"count"`
}

// Cells lists non-zero cells sorted by A label, then B label.
func (c ConfusionMatrix) Cells() []ConfusionCell {
	cells := make([]ConfusionCell, 0, len(c))
	for a, row := range c {
		for b, n := range row {
			if n != 0 {
				cells = append(cells, ConfusionCell{LabelA: a, LabelB: b, Count: n})
			}
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].LabelA != cells[j].LabelA {
			return cells[i].LabelA < cells[j].LabelA
		}
		return cells[i].LabelB < cells[j].LabelB
	})
	return cells
}

type TypeMatchSummary struct {
	Matched    int     `json:"matched" yaml:"matched"`
	UnmatchedA int     `json:"unmatched_a" yaml:"unmatched_a"`
	UnmatchedB int     `json:"unmatched_b" yaml:"unmatched_b"`
	ScoreSum   float64 `json:"score_sum" yaml:"score_sum"`
	MeanScore  float64 `json:"mean_score" yaml:"mean_score"`
}

// MatchSummary aggregates matching outcomes across all items.
type MatchSummary struct {
	MatchedPairs    int                                 `json:"matched_pairs" yaml:"matched_pairs"`
	UnmatchedA      int                                 `json:"unmatched_a" yaml:"unmatched_a"`
	UnmatchedB      int                                 `json:"unmatched_b" yaml:"unmatched_b"`
	AgreeingPairs   int                                 `json:"agreeing_pairs" yaml:"agreeing_pairs"`
	LabelAgreement  float64                             `json:"label_agreement" yaml:"label_agreement"`
	StructuralItems int                                 `json:"structural_items" yaml:"structural_items"`
	ByType          map[AnnotationType]TypeMatchSummary `json:"by_type" yaml:"by_type"`
}

func NewMatchSummary() MatchSummary {
	return MatchSummary{ByType: make(map[AnnotationType]TypeMatchSummary)}
}

// Merge sums counters; derived ratios are recomputed by Finalize.
func (s *MatchSummary) Merge(other MatchSummary) {
	s.MatchedPairs += other.MatchedPairs
	s.UnmatchedA += other.UnmatchedA
	s.UnmatchedB += other.UnmatchedB
	s.AgreeingPairs += other.AgreeingPairs
	s.StructuralItems += other.StructuralItems
	if s.ByType == nil {
		s.ByType = make(map[AnnotationType]TypeMatchSummary)
	}
	for t, o := range other.ByType {
		cur := s.ByType[t]
		cur.Matched += o.Matched
		cur.UnmatchedA += o.UnmatchedA
		cur.UnmatchedB += o.UnmatchedB
		cur.ScoreSum += o.ScoreSum
		s.ByType[t] = cur
	}
}

func (s *MatchSummary) Finalize() {
	s.LabelAgreement = ratio(float64(s.AgreeingPairs), float64(s.MatchedPairs))
	for t, cur := range s.ByType {
		cur.MeanScore = ratio(cur.ScoreSum, float64(cur.Matched))
		s.ByType[t] = cur
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
