package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

func ptr(v float64) *float64 { return &v }

func vehicleSchema() domain.CategorySet {
	set, _ := domain.NewCategorySet(
		domain.Category{Name: "car", Attributes: []domain.AttributeSpec{
			{Name: "color", Kind: domain.AttributeEnum, Values: []string{"red", "blue"}},
			{Name: "occluded", Kind: domain.AttributeBool},
			{Name: "score", Kind: domain.AttributeNumber, Min: ptr(0), Max: ptr(1)},
		}},
		domain.Category{Name: "bike"},
	)
	return set
}

func TestValidateUndefinedLabelOncePerAnnotation(t *testing.T) {
	ds := dataset("a", categories("cat"),
		item("s", "1", bbox("cat", 0, 0, 1, 1), bbox("ghost", 0, 0, 1, 1), bbox("ghost", 0, 0, -1, 1)),
		item("s", "2", domain.Annotation{Type: domain.AnnotationLabel, Label: "phantom"}, bbox("", 0, 0, 1, 1)),
	)
	report, err := NewValidationUseCase(0).Validate(context.Background(), ds, ds.Categories, domain.StatisticsFilter{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	undefined := report.OfKind(domain.FindingUndefinedLabel)
	if len(undefined) != 3 {
		t.Fatalf("expected 3 undefined label findings, got %d: %+v", len(undefined), undefined)
	}
	type ref struct {
		key   domain.ItemKey
		index int
	}
	seen := map[ref]bool{}
	for _, f := range undefined {
		r := ref{f.Item, f.Annotation}
		if seen[r] {
			t.Fatalf("annotation %+v reported twice", r)
		}
		seen[r] = true
	}
	if report.ByKind[domain.FindingMalformedGeometry] != 1 {
		t.Fatalf("expected one malformed geometry finding, got %d", report.ByKind[domain.FindingMalformedGeometry])
	}
	if report.ByLabel["ghost"] != 3 {
		t.Fatalf("expected ghost findings grouped by label, got %v", report.ByLabel)
	}
}

func TestValidateAttributes(t *testing.T) {
	schema := vehicleSchema()
	car := bbox("car", 0, 0, 1, 1)
	car.Attributes = map[string]any{
		"color":    "green",
		"occluded": true,
		"score":    1.5,
		"wheels":   4,
	}
	ds := dataset("a", schema, item("s", "1", car))

	report, err := NewValidationUseCase(0).Validate(context.Background(), ds, schema, domain.StatisticsFilter{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	want := map[domain.FindingKind]int{
		domain.FindingOutOfDomainValue:   2,
		domain.FindingUndefinedAttribute: 1,
	}
	for kind, n := range want {
		if report.ByKind[kind] != n {
			t.Fatalf("expected %d %s findings, got %d (%+v)", n, kind, report.ByKind[kind], report.Findings)
		}
	}
	if len(report.Findings) != 3 {
		t.Fatalf("expected 3 findings, got %+v", report.Findings)
	}
	if report.Findings[0].Detail == "" || report.Findings[0].Label != "car" {
		t.Fatalf("expected labelled finding with detail, got %+v", report.Findings[0])
	}
}

func TestValidateMissingAttributeAndAnnotation(t *testing.T) {
	schema := vehicleSchema()
	car := bbox("car", 0, 0, 1, 1)
	car.Attributes = map[string]any{"color": "red"}
	ds := dataset("a", schema, item("s", "1", car, bbox("bike", 0, 0, 1, 1)), item("s", "2"))

	report, err := NewValidationUseCase(0).Validate(context.Background(), ds, schema, domain.StatisticsFilter{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := report.ByKind[domain.FindingMissingAttribute]; got != 2 {
		t.Fatalf("expected occluded and score missing, got %d", got)
	}
	missing := report.OfKind(domain.FindingMissingAnnotation)
	if len(missing) != 1 || missing[0].Annotation != domain.ItemLevel || missing[0].Item.ID != "2" {
		t.Fatalf("unexpected missing annotation findings: %+v", missing)
	}
}

func TestValidateCleanDatasetIsOK(t *testing.T) {
	schema := vehicleSchema()
	car := bbox("car", 0, 0, 1, 1)
	car.Attributes = map[string]any{"color": "blue", "occluded": false, "score": 0.5}
	ds := dataset("a", schema, item("s", "1", car))

	report, err := NewValidationUseCase(0).Validate(context.Background(), ds, schema, domain.StatisticsFilter{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected no findings, got %+v", report.Findings)
	}
	if len(ds.Items[0].Annotations[0].Attributes) != 3 {
		t.Fatalf("validation must not mutate annotations")
	}
}

func TestValidateAgainstMergedSchema(t *testing.T) {
	a := categories("cat")
	b := categories("cat", "dog")
	merged := MergeCategories(a, b, NewLabelReconciler(false).Reconcile(a, b))
	ds := dataset("a", a, item("s", "1", bbox("dog", 0, 0, 1, 1)))

	own, err := NewValidationUseCase(0).Validate(context.Background(), ds, ds.Categories, domain.StatisticsFilter{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	union, err := NewValidationUseCase(0).Validate(context.Background(), ds, merged, domain.StatisticsFilter{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if own.OK() || !union.OK() {
		t.Fatalf("expected dog undefined only in the own schema: own=%d union=%d", len(own.Findings), len(union.Findings))
	}
}

func TestValidateSubsetFilter(t *testing.T) {
	ds := dataset("a", categories(), item("train", "1"), item("val", "2"))
	report, err := NewValidationUseCase(0).Validate(context.Background(), ds, ds.Categories,
		domain.StatisticsFilter{Subsets: []string{"val"}})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(report.Findings) != 1 || report.Findings[0].Item.Subset != "val" {
		t.Fatalf("expected a single val finding, got %+v", report.Findings)
	}
}
