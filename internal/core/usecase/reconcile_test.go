package usecase

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

func TestReconcileExactAndOnlySides(t *testing.T) {
	m := NewLabelReconciler(false).Reconcile(categories("cat", "dog", "bird"), categories("dog", "cat", "fish"))

	if diff := cmp.Diff([]string{"cat", "dog"}, m.Matched); diff != "" {
		t.Fatalf("unexpected matched labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bird"}, m.OnlyA); diff != "" {
		t.Fatalf("unexpected only-A labels (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"fish"}, m.OnlyB); diff != "" {
		t.Fatalf("unexpected only-B labels (-want +got):\n%s", diff)
	}
	if target, ok := m.Target("dog"); !ok || target != "dog" {
		t.Fatalf("expected dog mapped to dog, got %q %v", target, ok)
	}
}

func TestReconcileRenamedCandidates(t *testing.T) {
	cases := []struct {
		name       string
		autoAccept bool
		wantMapped bool
	}{
		{name: "proposed only", autoAccept: false, wantMapped: false},
		{name: "auto accepted", autoAccept: true, wantMapped: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewLabelReconciler(tc.autoAccept).Reconcile(categories("traffic light"), categories(" Traffic Light"))
			if len(m.RenamedCandidates) != 1 {
				t.Fatalf("expected one renamed candidate, got %+v", m.RenamedCandidates)
			}
			if len(m.OnlyA) != 0 || len(m.OnlyB) != 0 {
				t.Fatalf("candidates must not be reported as exclusive: a=%v b=%v", m.OnlyA, m.OnlyB)
			}
			_, mapped := m.Target("traffic light")
			if mapped != tc.wantMapped {
				t.Fatalf("expected mapped=%v, got %v", tc.wantMapped, mapped)
			}
		})
	}
}

func TestReconcileExactNameWinsOverNormalized(t *testing.T) {
	m := NewLabelReconciler(true).Reconcile(categories("Cat", "cat"), categories("cat"))
	if target, ok := m.Target("cat"); !ok || target != "cat" {
		t.Fatalf("expected exact mapping for cat, got %q", target)
	}
	if _, ok := m.Target("Cat"); ok {
		t.Fatalf("expected Cat left unmapped once cat is claimed")
	}
	if diff := cmp.Diff([]string{"Cat"}, m.OnlyA); diff != "" {
		t.Fatalf("unexpected only-A labels (-want +got):\n%s", diff)
	}
}

func TestReconcileAttributes(t *testing.T) {
	a, _ := domain.NewCategorySet(domain.Category{Name: "car", Attributes: []domain.AttributeSpec{
		{Name: "color"}, {Name: "Occluded"}, {Name: "speed"},
	}})
	b, _ := domain.NewCategorySet(domain.Category{Name: "car", Attributes: []domain.AttributeSpec{
		{Name: "color"}, {Name: "occluded"}, {Name: "doors"},
	}})

	m := NewLabelReconciler(false).Reconcile(a, b)
	am, ok := m.AttributesFor("car")
	if !ok {
		t.Fatalf("expected attribute map for car")
	}
	want := []domain.NameMatch{
		{Source: "color", Target: "color", Status: domain.StatusMatched, Accepted: true},
		{Source: "Occluded", Target: "occluded", Status: domain.StatusRenamedCandidate},
		{Source: "speed", Status: domain.StatusUnmatched},
	}
	if diff := cmp.Diff(want, am.Entries); diff != "" {
		t.Fatalf("unexpected attribute entries (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"doors"}, am.OnlyB); diff != "" {
		t.Fatalf("unexpected only-B attributes (-want +got):\n%s", diff)
	}
}

func TestReconcileDisjointIsNotAnError(t *testing.T) {
	m := NewLabelReconciler(false).Reconcile(categories("a"), categories("b"))
	if len(m.Matched) != 0 || len(m.OnlyA) != 1 || len(m.OnlyB) != 1 {
		t.Fatalf("unexpected disjoint result: %+v", m)
	}
	empty := NewLabelReconciler(false).Reconcile(domain.CategorySet{}, domain.CategorySet{})
	if len(empty.Entries) != 0 || empty.OnlyA == nil || empty.OnlyB == nil {
		t.Fatalf("expected empty but initialized map, got %+v", empty)
	}
}

func TestMergeCategories(t *testing.T) {
	a, _ := domain.NewCategorySet(
		domain.Category{Name: "vehicle"},
		domain.Category{Name: "car", Parent: "vehicle", Attributes: []domain.AttributeSpec{{Name: "color"}}},
	)
	b, _ := domain.NewCategorySet(
		domain.Category{Name: "Vehicle"},
		domain.Category{Name: "car", Attributes: []domain.AttributeSpec{{Name: "color"}, {Name: "doors"}}},
		domain.Category{Name: "truck", Parent: "Vehicle"},
	)
	m := NewLabelReconciler(true).Reconcile(a, b)
	merged := MergeCategories(a, b, m)

	if diff := cmp.Diff([]string{"vehicle", "car", "truck"}, merged.Names()); diff != "" {
		t.Fatalf("unexpected merged names (-want +got):\n%s", diff)
	}
	car, _ := merged.Get("car")
	if len(car.Attributes) != 2 || car.Attributes[1].Name != "doors" {
		t.Fatalf("expected union of car attributes, got %+v", car.Attributes)
	}
	truck, _ := merged.Get("truck")
	if truck.Parent != "vehicle" {
		t.Fatalf("expected truck parent translated to A naming, got %q", truck.Parent)
	}
}
