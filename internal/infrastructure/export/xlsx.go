package export

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// XLSXExporter writes one sheet per report section.
type XLSXExporter struct{}

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

func (XLSXExporter) Export(ctx context.Context, report *domain.ComparisonReport, w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sheets := []sheet{
		summarySheet(report),
		labelSheet(report),
		pairSheet(report),
		unmatchedSheet(report),
		confusionSheet(report),
		statisticsSheet(report),
		findingSheet(report),
	}
	for i, s := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeRows(f, s); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, s sheet) error {
	rows := append([][]any{s.header}, s.rows...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", s.name, i+1, err)
		}
	}
	return nil
}

func summarySheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Summary", header: []any{"metric", "value"}}
	add := func(k string, v any) { s.rows = append(s.rows, []any{k, v}) }
	add("dataset_a", r.DatasetA)
	add("dataset_b", r.DatasetB)
	add("iou_threshold", r.Options.IoUThreshold)
	add("points_threshold", r.Options.PointsThreshold)
	add("label_aware_matching", r.Options.LabelAwareMatching)
	add("assignment", string(r.Options.Assignment))
	add("matched_pairs", r.Summary.MatchedPairs)
	add("unmatched_a", r.Summary.UnmatchedA)
	add("unmatched_b", r.Summary.UnmatchedB)
	add("label_agreement", r.Summary.LabelAgreement)
	add("structural_items", r.Summary.StructuralItems)
	add("unmatched_items_a", len(r.UnmatchedItemsA))
	add("unmatched_items_b", len(r.UnmatchedItemsB))
	for _, t := range domain.AnnotationTypes {
		ts, ok := r.Summary.ByType[t]
		if !ok {
			continue
		}
		add(string(t)+"_matched", ts.Matched)
		add(string(t)+"_mean_score", ts.MeanScore)
	}
	return s
}

func labelSheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Labels", header: []any{"label_a", "label_b", "status", "accepted"}}
	if r.LabelMap == nil {
		return s
	}
	for _, e := range r.LabelMap.Entries {
		s.rows = append(s.rows, []any{e.Source, e.Target, string(e.Status), e.Accepted})
	}
	for _, name := range r.LabelMap.OnlyB {
		s.rows = append(s.rows, []any{"", name, string(domain.StatusUnmatched), false})
	}
	return s
}

func pairSheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Pairs", header: []any{"subset", "item", "type", "index_a", "label_a", "index_b", "label_b", "score"}}
	for _, m := range r.ItemMatches {
		for _, p := range m.Pairs {
			s.rows = append(s.rows, []any{m.Key.Subset, m.Key.ID, string(p.A.Type), p.A.Index, p.A.Label, p.B.Index, p.B.Label, p.Score})
		}
	}
	return s
}

func unmatchedSheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Unmatched", header: []any{"subset", "item", "item_status", "side", "index", "type", "label", "malformed"}}
	for _, m := range r.ItemMatches {
		for _, ref := range m.UnmatchedA {
			s.rows = append(s.rows, []any{m.Key.Subset, m.Key.ID, string(m.Status), "a", ref.Index, string(ref.Type), ref.Label, ref.Malformed})
		}
		for _, ref := range m.UnmatchedB {
			s.rows = append(s.rows, []any{m.Key.Subset, m.Key.ID, string(m.Status), "b", ref.Index, string(ref.Type), ref.Label, ref.Malformed})
		}
	}
	return s
}

func confusionSheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Confusion", header: []any{"label_a", "label_b", "count"}}
	for _, c := range r.Confusion.Cells() {
		s.rows = append(s.rows, []any{c.LabelA, c.LabelB, c.Count})
	}
	return s
}

func statisticsSheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Statistics", header: []any{"side", "metric", "key", "value"}}
	for _, side := range []struct {
		name  string
		stats *domain.DatasetStatistics
	}{{"a", r.StatisticsA}, {"b", r.StatisticsB}} {
		st := side.stats
		if st == nil {
			continue
		}
		add := func(metric, key string, v any) { s.rows = append(s.rows, []any{side.name, metric, key, v}) }
		add("items", "", st.ItemsCount)
		add("annotations", "", st.AnnotationsCount)
		add("unannotated_items", "", st.UnannotatedItemsCount)
		add("malformed_annotations", "", st.MalformedCount)
		add("undefined_labels", "", st.UndefinedLabels.Count)
		for _, k := range sortedKeys(st.ItemsBySubset) {
			add("items_by_subset", k, st.ItemsBySubset[k])
		}
		for _, t := range domain.AnnotationTypes {
			if n, ok := st.AnnotationsByType[t]; ok {
				add("annotations_by_type", string(t), n)
			}
		}
		for _, k := range sortedKeys(st.AnnotationsByLabel) {
			add("label_percent", k, st.AnnotationsByLabel[k].Percent)
		}
		for _, t := range domain.AnnotationTypes {
			shape, ok := st.Shapes[t]
			if !ok {
				continue
			}
			add("mean_width", string(t), shape.Width.Mean)
			add("mean_height", string(t), shape.Height.Mean)
			add("median_area", string(t), shape.Area.Median)
			add("mean_aspect_ratio", string(t), shape.AspectRatio.Mean)
		}
		add("duplicate_groups", "", len(st.Duplicates))
	}
	return s
}

func findingSheet(r *domain.ComparisonReport) sheet {
	s := sheet{name: "Findings", header: []any{"side", "subset", "item", "annotation", "kind", "label", "detail"}}
	for _, side := range []struct {
		name string
		rep  *domain.ValidationReport
	}{{"a", r.ValidationA}, {"b", r.ValidationB}} {
		if side.rep == nil {
			continue
		}
		for _, f := range side.rep.Findings {
			s.rows = append(s.rows, []any{side.name, f.Item.Subset, f.Item.ID, f.Annotation, string(f.Kind), f.Label, f.Detail})
		}
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
