package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/usecase"
)

type sourceFake map[string]*domain.Dataset

func (f sourceFake) Load(_ context.Context, ref string) (*domain.Dataset, error) {
	ds, ok := f[ref]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load dataset", errors.New("unknown "+ref))
	}
	return ds, nil
}

func box(label string, x, y float64) domain.Annotation {
	return domain.Annotation{Type: domain.AnnotationBBox, Label: label, BBox: &domain.BBox{X: x, Y: y, W: 10, H: 10}}
}

func newTools() *Tools {
	cats, _ := domain.NewCategorySet(domain.Category{Name: "cat"})
	catsB, _ := domain.NewCategorySet(domain.Category{Name: "cat"}, domain.Category{Name: "dog"})
	source := sourceFake{
		"a": {Name: "a", Categories: cats, Items: []domain.Item{{Subset: "train", ID: "img1", Annotations: []domain.Annotation{box("cat", 0, 0)}}}},
		"b": {Name: "b", Categories: catsB, Items: []domain.Item{{Subset: "train", ID: "img1", Annotations: []domain.Annotation{box("cat", 1, 1), box("dog", 50, 50)}}}},
	}
	stats := usecase.NewStatisticsUseCase(nil, 1)
	validator := usecase.NewValidationUseCase(1)
	return NewTools(source, usecase.NewComparisonUseCase(stats, validator), stats, validator, domain.DefaultCompareOptions(), nil)
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestCompareTool(t *testing.T) {
	res, err := newTools().compare(context.Background(), call(map[string]any{"dataset_a": "a", "dataset_b": "b"}))
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var report domain.ComparisonReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Summary.MatchedPairs != 1 || report.Summary.UnmatchedB != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
}

func TestCompareToolRaisedThreshold(t *testing.T) {
	res, err := newTools().compare(context.Background(), call(map[string]any{"dataset_a": "a", "dataset_b": "b", "iou_threshold": 0.9}))
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	var report domain.ComparisonReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Summary.MatchedPairs != 0 {
		t.Fatalf("expected no pairs at 0.9, got %d", report.Summary.MatchedPairs)
	}
}

func TestCompareToolReportsErrors(t *testing.T) {
	tools := newTools()
	res, err := tools.compare(context.Background(), call(map[string]any{"dataset_a": "a"}))
	if err != nil || !res.IsError {
		t.Fatalf("expected tool error for missing argument, got %+v (%v)", res, err)
	}
	res, _ = tools.compare(context.Background(), call(map[string]any{"dataset_a": "a", "dataset_b": "zzz"}))
	if !res.IsError {
		t.Fatalf("expected tool error for unknown dataset")
	}
	res, _ = tools.compare(context.Background(), call(map[string]any{"dataset_a": "a", "dataset_b": "b", "assignment": "auction"}))
	if !res.IsError {
		t.Fatalf("expected tool error for invalid assignment")
	}
}

func TestValidateToolWithForeignSchema(t *testing.T) {
	res, err := newTools().validate(context.Background(), call(map[string]any{"dataset": "b", "schema_dataset": "a"}))
	if err != nil || res.IsError {
		t.Fatalf("validate failed: %+v (%v)", res, err)
	}
	var report domain.ValidationReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.ByKind[domain.FindingUndefinedLabel] != 1 {
		t.Fatalf("expected dog flagged, got %+v", report.ByKind)
	}
}

func TestStatisticsToolLabelFilter(t *testing.T) {
	res, err := newTools().statistics(context.Background(), call(map[string]any{"dataset": "b", "labels": "cat"}))
	if err != nil || res.IsError {
		t.Fatalf("statistics failed: %+v (%v)", res, err)
	}
	var stats domain.DatasetStatistics
	if err := json.Unmarshal([]byte(resultText(t, res)), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.AnnotationsCount != 1 {
		t.Fatalf("expected label filter to keep one annotation, got %d", stats.AnnotationsCount)
	}
}

func TestServerRegistersTools(t *testing.T) {
	if s := newTools().Server("test"); s == nil {
		t.Fatalf("expected server")
	}
}
