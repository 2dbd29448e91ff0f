package usecase

import (
	"math"
	"strings"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// candidate is an annotation prepared for pairwise scoring within one item.
type candidate struct {
	index     int
	ann       *domain.Annotation
	shape     domain.Shape
	malformed error
}

func prepareCandidate(index int, ann *domain.Annotation) candidate {
	c := candidate{index: index, ann: ann, malformed: ann.CheckGeometry()}
	if c.malformed != nil {
		return c
	}
	switch ann.Type {
	case domain.AnnotationPolygon:
		c.shape = domain.NewPolygonShape(ann.Points)
	case domain.AnnotationMask:
		c.shape = domain.NewMaskShape(*ann.Mask)
	}
	return c
}

// similarity scores two annotations of the same type in [0,1]. Each variant
// has exactly one scoring rule.
func similarity(labels *domain.LabelMap, a, b candidate) float64 {
	switch a.ann.Type {
	case domain.AnnotationBBox:
		return a.ann.BBox.IoU(*b.ann.BBox)
	case domain.AnnotationPolygon, domain.AnnotationMask:
		return domain.ShapeIoU(a.shape, b.shape)
	case domain.AnnotationPoints:
		return pointsSimilarity(a.ann.Points, b.ann.Points)
	case domain.AnnotationLabel:
		if labels.Compatible(a.ann.Label, b.ann.Label) {
			return 1
		}
		return 0
	case domain.AnnotationCaption:
		// Labeled captions score like classification labels; unlabeled ones
		// fall back to their text.
		if a.ann.Label != "" || b.ann.Label != "" {
			if labels.Compatible(a.ann.Label, b.ann.Label) {
				return 1
			}
			return 0
		}
		if strings.TrimSpace(a.ann.Caption) == strings.TrimSpace(b.ann.Caption) {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// pointsSimilarity is one minus the mean keypoint distance normalized by the
// diagonal of the joint bounding box, clipped to [0,1]. Point sets of
// different sizes never match.
func pointsSimilarity(a, b []domain.Point) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var total float64
	for i := range a {
		total += math.Hypot(a[i].X-b[i].X, a[i].Y-b[i].Y)
	}
	mean := total / float64(len(a))

	joint := make([]domain.Point, 0, len(a)+len(b))
	joint = append(joint, a...)
	joint = append(joint, b...)
	bounds := domain.Bounds(joint)
	scale := math.Hypot(bounds.W, bounds.H)
	if scale == 0 {
		if mean == 0 {
			return 1
		}
		return 0
	}
	return clampUnit(1 - mean/scale)
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
