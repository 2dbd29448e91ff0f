package usecase

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// ValidationUseCase checks datasets against a category schema. It only reports;
// offending annotations are never changed or dropped.
type ValidationUseCase struct {
	workers int
}

func NewValidationUseCase(workers int) *ValidationUseCase {
	return &ValidationUseCase{workers: workers}
}

func (uc *ValidationUseCase) Validate(
	ctx context.Context,
	ds *domain.Dataset,
	schema domain.CategorySet,
	filter domain.StatisticsFilter,
) (*domain.ValidationReport, error) {
	report := domain.NewValidationReport()
	if ds == nil {
		return report, nil
	}

	perItem := make([][]domain.Finding, len(ds.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(uc.workers))
	for i := range ds.Items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perItem[i] = validateItem(schema, &ds.Items[i], filter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, findings := range perItem {
		report.Add(findings...)
	}
	return report, nil
}

func validateItem(schema domain.CategorySet, item *domain.Item, filter domain.StatisticsFilter) []domain.Finding {
	if !domain.InSubsets(item.Subset, filter.Subsets) {
		return nil
	}
	key := item.Key()
	if len(item.Annotations) == 0 {
		return []domain.Finding{{
			Item:       key,
			Annotation: domain.ItemLevel,
			Kind:       domain.FindingMissingAnnotation,
			Detail:     "item has no annotations",
		}}
	}

	var out []domain.Finding
	for i, ann := range item.Annotations {
		if !filter.AllowsLabel(ann.Label) {
			continue
		}
		finding := func(kind domain.FindingKind, detail string) domain.Finding {
			return domain.Finding{Item: key, Annotation: i, Kind: kind, Label: ann.Label, Detail: detail}
		}

		if err := ann.CheckGeometry(); err != nil {
			out = append(out, finding(domain.FindingMalformedGeometry, err.Error()))
		}
		if !ann.HasLabel() {
			continue
		}
		cat, ok := schema.Get(ann.Label)
		if !ok {
			out = append(out, finding(domain.FindingUndefinedLabel,
				fmt.Sprintf("label %q is not declared", ann.Label)))
			continue
		}

		for _, name := range sortedKeys(ann.Attributes) {
			spec, declared := cat.Attribute(name)
			if !declared {
				out = append(out, finding(domain.FindingUndefinedAttribute,
					fmt.Sprintf("attribute %q is not declared for %q", name, cat.Name)))
				continue
			}
			if value := ann.Attributes[name]; !spec.Accepts(value) {
				out = append(out, finding(domain.FindingOutOfDomainValue,
					fmt.Sprintf("attribute %q value %v is outside its %s domain", name, value, spec.Kind)))
			}
		}
		for _, spec := range cat.Attributes {
			if _, present := ann.Attributes[spec.Name]; !present {
				out = append(out, finding(domain.FindingMissingAttribute,
					fmt.Sprintf("declared attribute %q is absent", spec.Name)))
			}
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
