package domain

// StatisticsFilter restricts statistics and validation to named subsets and labels.
// Empty slices mean no restriction.
type StatisticsFilter struct {
	Subsets []string `json:"subsets,omitempty" yaml:"subsets,omitempty"`
	Labels  []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

func (f StatisticsFilter) AllowsLabel(label string) bool {
	if len(f.Labels) == 0 {
		return true
	}
	for _, l := range f.Labels {
		if l == label {
			return true
		}
	}
	return false
}

type LabelFrequency struct {
	Count   int     `json:"count" yaml:"count"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Summary describes one measured quantity across a set of shapes.
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
}

type ShapeStatistics struct {
	Count       int     `json:"count" yaml:"count"`
	Width       Summary `json:"width" yaml:"width"`
	Height      Summary `json:"height" yaml:"height"`
	Area        Summary `json:"area" yaml:"area"`
	AspectRatio Summary `json:"aspect_ratio" yaml:"aspect_ratio"`
}

// DuplicateGroup lists items sharing one media content hash.
type DuplicateGroup struct {
	Hash  string    `json:"hash" yaml:"hash"`
	Items []ItemKey `json:"items" yaml:"items"`
}

type DatasetStatistics struct {
	ItemsCount            int                                           `json:"items_count" yaml:"items_count"`
	AnnotationsCount      int                                           `json:"annotations_count" yaml:"annotations_count"`
	UnannotatedItemsCount int                                           `json:"unannotated_items_count" yaml:"unannotated_items_count"`
	MalformedCount        int                                           `json:"malformed_annotations_count" yaml:"malformed_annotations_count"`
	ItemsBySubset         map[string]int                                `json:"items_by_subset" yaml:"items_by_subset"`
	AnnotationsByType     map[AnnotationType]int                        `json:"annotations_by_type" yaml:"annotations_by_type"`
	AnnotationsByLabel    map[string]LabelFrequency                     `json:"annotations_by_label" yaml:"annotations_by_label"`
	UndefinedLabels       LabelFrequency                                `json:"undefined_labels" yaml:"undefined_labels"`
	Shapes                map[AnnotationType]ShapeStatistics            `json:"shapes" yaml:"shapes"`
	ShapesByLabel         map[AnnotationType]map[string]ShapeStatistics `json:"shapes_by_label" yaml:"shapes_by_label"`
	Duplicates            []DuplicateGroup                              `json:"duplicates" yaml:"duplicates"`
}

func NewDatasetStatistics() *DatasetStatistics {
	return &DatasetStatistics{
		ItemsBySubset:      make(map[string]int),
		AnnotationsByType:  make(map[AnnotationType]int),
		AnnotationsByLabel: make(map[string]LabelFrequency),
		Shapes:             make(map[AnnotationType]ShapeStatistics),
		ShapesByLabel:      make(map[AnnotationType]map[string]ShapeStatistics),
		Duplicates:         []DuplicateGroup{},
	}
}
