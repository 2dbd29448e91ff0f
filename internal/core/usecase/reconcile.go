package usecase

import (
	"strings"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// LabelReconciler maps one dataset's label and attribute vocabulary onto another's.
// Exact names match first; case- and whitespace-insensitive equal names become
// renamed candidates, accepted only when autoAccept is set.
type LabelReconciler struct {
	autoAccept bool
}

func NewLabelReconciler(autoAcceptRenamed bool) *LabelReconciler {
	return &LabelReconciler{autoAccept: autoAcceptRenamed}
}

// Reconcile never fails: disjoint vocabularies simply yield OnlyA/OnlyB entries.
func (r *LabelReconciler) Reconcile(a, b domain.CategorySet) *domain.LabelMap {
	entries, onlyA, onlyB := matchNames(a.Names(), b.Names(), r.autoAccept)
	m := domain.NewLabelMap(entries)
	m.OnlyA = onlyA
	m.OnlyB = onlyB

	for _, e := range entries {
		if !e.Accepted {
			continue
		}
		catA, _ := a.Get(e.Source)
		catB, _ := b.Get(e.Target)
		m.Attributes = append(m.Attributes, r.reconcileAttributes(catA, catB))
	}
	return m
}

func (r *LabelReconciler) reconcileAttributes(a, b domain.Category) domain.AttributeMap {
	entries, onlyA, onlyB := matchNames(attributeNames(a), attributeNames(b), r.autoAccept)
	return domain.AttributeMap{
		LabelA:  a.Name,
		LabelB:  b.Name,
		Entries: entries,
		OnlyA:   onlyA,
		OnlyB:   onlyB,
	}
}

// matchNames returns one entry per name in as (in order), the A names left
// unmatched, and the B names neither matched nor proposed as a candidate.
func matchNames(as, bs []string, autoAccept bool) ([]domain.NameMatch, []string, []string) {
	claimed := make([]bool, len(bs))
	exact := make(map[string]int, len(bs))
	for j, name := range bs {
		if _, seen := exact[name]; !seen {
			exact[name] = j
		}
	}

	entries := make([]domain.NameMatch, len(as))
	for i, name := range as {
		entries[i] = domain.NameMatch{Source: name, Status: domain.StatusUnmatched}
		if j, ok := exact[name]; ok && !claimed[j] {
			claimed[j] = true
			entries[i].Target = name
			entries[i].Status = domain.StatusMatched
			entries[i].Accepted = true
		}
	}

	for i := range entries {
		if entries[i].Status != domain.StatusUnmatched {
			continue
		}
		key := normalizeName(entries[i].Source)
		for j, name := range bs {
			if claimed[j] || normalizeName(name) != key {
				continue
			}
			claimed[j] = true
			entries[i].Target = name
			entries[i].Status = domain.StatusRenamedCandidate
			entries[i].Accepted = autoAccept
			break
		}
	}

	onlyA := []string{}
	for _, e := range entries {
		if e.Status == domain.StatusUnmatched {
			onlyA = append(onlyA, e.Source)
		}
	}
	onlyB := []string{}
	for j, name := range bs {
		if !claimed[j] {
			onlyB = append(onlyB, name)
		}
	}
	return entries, onlyA, onlyB
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func attributeNames(c domain.Category) []string {
	names := make([]string, len(c.Attributes))
	for i, spec := range c.Attributes {
		names[i] = spec.Name
	}
	return names
}

// MergeCategories builds the union schema: A's categories with attribute specs
// extended by their accepted B counterparts, then B-only categories in B order.
func MergeCategories(a, b domain.CategorySet, m *domain.LabelMap) domain.CategorySet {
	merged := make([]domain.Category, 0, a.Len()+b.Len())
	for _, catA := range a.Categories() {
		out := catA
		out.Attributes = append([]domain.AttributeSpec(nil), catA.Attributes...)
		if target, ok := m.Target(catA.Name); ok {
			if catB, found := b.Get(target); found {
				out.Attributes = mergeAttributes(out.Attributes, catB, m)
				if out.Parent == "" && catB.Parent != "" {
					out.Parent = translateParent(catB.Parent, m)
				}
			}
		}
		merged = append(merged, out)
	}
	for _, catB := range b.Categories() {
		if _, mapped := m.Source(catB.Name); mapped || a.Has(catB.Name) {
			continue
		}
		out := catB
		out.Parent = translateParent(catB.Parent, m)
		merged = append(merged, out)
	}
	set, _ := domain.NewCategorySet(merged...)
	return set
}

func mergeAttributes(specs []domain.AttributeSpec, catB domain.Category, m *domain.LabelMap) []domain.AttributeSpec {
	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.Name] = true
	}
	mapped := make(map[string]bool)
	for _, am := range m.Attributes {
		if am.LabelB != catB.Name {
			continue
		}
		for _, e := range am.Entries {
			if e.Accepted {
				mapped[e.Target] = true
			}
		}
	}
	for _, s := range catB.Attributes {
		if known[s.Name] || mapped[s.Name] {
			continue
		}
		specs = append(specs, s)
	}
	return specs
}

func translateParent(parent string, m *domain.LabelMap) string {
	if parent == "" {
		return ""
	}
	if src, ok := m.Source(parent); ok {
		return src
	}
	return parent
}
