package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type AssignmentStrategy string

const (
	// AssignGreedy commits the highest-scoring free pair first; ties resolve by A index then B index.
	AssignGreedy AssignmentStrategy = "greedy"
	// AssignOptimal maximizes the total score of the one-to-one assignment.
	AssignOptimal AssignmentStrategy = "optimal"
)

// CompareOptions are the recognized knobs of one comparison run.
type CompareOptions struct {
	IoUThreshold            float64            `json:"iou_threshold" yaml:"iou_threshold"`
	PointsThreshold         float64            `json:"points_threshold" yaml:"points_threshold"`
	LabelAwareMatching      bool               `json:"label_aware_matching" yaml:"label_aware_matching"`
	AutoAcceptRenamedLabels bool               `json:"auto_accept_renamed_labels" yaml:"auto_accept_renamed_labels"`
	SubsetFilter            []string           `json:"subset_filter,omitempty" yaml:"subset_filter,omitempty"`
	Assignment              AssignmentStrategy `json:"assignment" yaml:"assignment"`
	Workers                 int                `json:"workers,omitempty" yaml:"workers,omitempty"`
}

func DefaultCompareOptions() CompareOptions {
	return CompareOptions{
		IoUThreshold:       0.5,
		PointsThreshold:    0.5,
		LabelAwareMatching: true,
		Assignment:         AssignGreedy,
	}
}

// Threshold returns the minimum similarity a candidate pair of type t must reach.
func (o CompareOptions) Threshold(t AnnotationType) float64 {
	switch t {
	case AnnotationPoints:
		return o.PointsThreshold
	case AnnotationBBox, AnnotationPolygon, AnnotationMask:
		return o.IoUThreshold
	default:
		return 0
	}
}

// Validate rejects option values before any computation starts.
func (o CompareOptions) Validate() error {
	var errs []error
	if !unitInterval(o.IoUThreshold) {
		errs = append(errs, fmt.Errorf("iou_threshold must be within [0,1], got %v", o.IoUThreshold))
	}
	if !unitInterval(o.PointsThreshold) {
		errs = append(errs, fmt.Errorf("points_threshold must be within [0,1], got %v", o.PointsThreshold))
	}
	switch o.Assignment {
	case AssignGreedy, AssignOptimal:
	default:
		errs = append(errs, fmt.Errorf("unknown assignment strategy %q", o.Assignment))
	}
	if o.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative, got %d", o.Workers))
	}
	for _, s := range o.SubsetFilter {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, errors.New("subset_filter contains an empty subset name"))
			break
		}
	}
	if len(errs) > 0 {
		return WrapError(ErrInvalidConfig, "validate compare options", errors.Join(errs...))
	}
	return nil
}

func unitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
