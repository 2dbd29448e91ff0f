package usecase

import (
	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

func categories(names ...string) domain.CategorySet {
	cats := make([]domain.Category, len(names))
	for i, n := range names {
		cats[i] = domain.Category{Name: n}
	}
	set, _ := domain.NewCategorySet(cats...)
	return set
}

func bbox(label string, x, y, w, h float64) domain.Annotation {
	return domain.Annotation{
		Type:  domain.AnnotationBBox,
		Label: label,
		BBox:  &domain.BBox{X: x, Y: y, W: w, H: h},
	}
}

func polygon(label string, pts ...float64) domain.Annotation {
	ann := domain.Annotation{Type: domain.AnnotationPolygon, Label: label}
	for i := 0; i+1 < len(pts); i += 2 {
		ann.Points = append(ann.Points, domain.Point{X: pts[i], Y: pts[i+1]})
	}
	return ann
}

func item(subset, id string, anns ...domain.Annotation) domain.Item {
	return domain.Item{Subset: subset, ID: id, Annotations: anns}
}

func dataset(name string, cats domain.CategorySet, items ...domain.Item) *domain.Dataset {
	return &domain.Dataset{Name: name, Categories: cats, Items: items}
}

func newComparison() *ComparisonUseCase {
	return NewComparisonUseCase(NewStatisticsUseCase(nil, 0), NewValidationUseCase(0))
}
