package domain

type MatchStatus string

const (
	StatusMatched          MatchStatus = "matched"
	StatusRenamedCandidate MatchStatus = "renamed_candidate"
	StatusUnmatched        MatchStatus = "unmatched"
)

// NameMatch pairs one name from side A with its counterpart on side B.
// Accepted is true for exact matches and for renamed candidates taken up by policy.
type NameMatch struct {
	Source   string      `json:"source" yaml:"source"`
	Target   string      `json:"target,omitempty" yaml:"target,omitempty"`
	Status   MatchStatus `json:"status" yaml:"status"`
	Accepted bool        `json:"accepted" yaml:"accepted"`
}

// AttributeMap reconciles the attribute schemas of one accepted label pair.
type AttributeMap struct {
	LabelA  string      `json:"label_a" yaml:"label_a"`
	LabelB  string      `json:"label_b" yaml:"label_b"`
	Entries []NameMatch `json:"entries" yaml:"entries"`
	OnlyA   []string    `json:"only_a,omitempty" yaml:"only_a,omitempty"`
	OnlyB   []string    `json:"only_b,omitempty" yaml:"only_b,omitempty"`
}

// LabelMap is the bidirectional label correspondence produced by reconciliation.
type LabelMap struct {
	Entries           []NameMatch    `json:"entries" yaml:"entries"`
	Matched           []string       `json:"matched" yaml:"matched"`
	RenamedCandidates []NameMatch    `json:"renamed_candidates" yaml:"renamed_candidates"`
	OnlyA             []string       `json:"only_a" yaml:"only_a"`
	OnlyB             []string       `json:"only_b" yaml:"only_b"`
	Attributes        []AttributeMap `json:"attributes,omitempty" yaml:"attributes,omitempty"`

	forward map[string]string
	reverse map[string]string
}

// NewLabelMap indexes accepted entries for lookups in both directions.
func NewLabelMap(entries []NameMatch) *LabelMap {
	m := &LabelMap{
		Entries:           entries,
		Matched:           []string{},
		RenamedCandidates: []NameMatch{},
		OnlyA:             []string{},
		OnlyB:             []string{},
		forward:           make(map[string]string),
		reverse:           make(map[string]string),
	}
	for _, e := range entries {
		switch e.Status {
		case StatusMatched:
			m.Matched = append(m.Matched, e.Source)
		case StatusRenamedCandidate:
			m.RenamedCandidates = append(m.RenamedCandidates, e)
		}
		if e.Accepted && e.Target != "" {
			m.forward[e.Source] = e.Target
			m.reverse[e.Target] = e.Source
		}
	}
	return m
}

// Target returns the accepted B label for an A label. A decoded map without
// indexes falls back to scanning Entries.
func (m *LabelMap) Target(labelA string) (string, bool) {
	if m == nil {
		return "", false
	}
	if m.forward != nil {
		t, ok := m.forward[labelA]
		return t, ok
	}
	for _, e := range m.Entries {
		if e.Accepted && e.Source == labelA && e.Target != "" {
			return e.Target, true
		}
	}
	return "", false
}

// Source returns the accepted A label for a B label.
func (m *LabelMap) Source(labelB string) (string, bool) {
	if m == nil {
		return "", false
	}
	if m.reverse != nil {
		s, ok := m.reverse[labelB]
		return s, ok
	}
	for _, e := range m.Entries {
		if e.Accepted && e.Target == labelB {
			return e.Source, true
		}
	}
	return "", false
}

// Compatible reports whether two annotation labels are mapped to each other.
// Two unlabeled annotations are compatible.
func (m *LabelMap) Compatible(labelA, labelB string) bool {
	if labelA == "" || labelB == "" {
		return labelA == labelB
	}
	t, ok := m.Target(labelA)
	return ok && t == labelB
}

func (m *LabelMap) AttributesFor(labelA string) (AttributeMap, bool) {
	if m == nil {
		return AttributeMap{}, false
	}
	for _, am := range m.Attributes {
		if am.LabelA == labelA {
			return am, true
		}
	}
	return AttributeMap{}, false
}
