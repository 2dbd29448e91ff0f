package domain

import (
	"fmt"
	"math"
)

type AnnotationType string

const (
	AnnotationLabel   AnnotationType = "label"
	AnnotationBBox    AnnotationType = "bbox"
	AnnotationPolygon AnnotationType = "polygon"
	AnnotationMask    AnnotationType = "mask"
	AnnotationPoints  AnnotationType = "points"
	AnnotationCaption AnnotationType = "caption"
)

// AnnotationTypes lists the closed variant set in reporting order.
var AnnotationTypes = []AnnotationType{
	AnnotationLabel,
	AnnotationBBox,
	AnnotationPolygon,
	AnnotationMask,
	AnnotationPoints,
	AnnotationCaption,
}

func (t AnnotationType) Valid() bool {
	for _, known := range AnnotationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Geometric reports whether matching for the type is driven by a region or point payload.
func (t AnnotationType) Geometric() bool {
	switch t {
	case AnnotationBBox, AnnotationPolygon, AnnotationMask, AnnotationPoints:
		return true
	default:
		return false
	}
}

type AttributeKind string

const (
	AttributeEnum   AttributeKind = "enum"
	AttributeNumber AttributeKind = "number"
	AttributeText   AttributeKind = "text"
	AttributeBool   AttributeKind = "bool"
)

// AttributeSpec declares one attribute of a category and the domain of its values.
type AttributeSpec struct {
	Name   string        `json:"name" yaml:"name"`
	Kind   AttributeKind `json:"kind" yaml:"kind"`
	Values []string      `json:"values,omitempty" yaml:"values,omitempty"`
	Min    *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max    *float64      `json:"max,omitempty" yaml:"max,omitempty"`
}

// Accepts reports whether value lies inside the declared domain. An empty Kind
// accepts anything.
func (s AttributeSpec) Accepts(value any) bool {
	switch s.Kind {
	case "":
		return true
	case AttributeText:
		_, ok := value.(string)
		return ok
	case AttributeBool:
		_, ok := value.(bool)
		return ok
	case AttributeEnum:
		text, ok := value.(string)
		if !ok {
			return false
		}
		for _, allowed := range s.Values {
			if allowed == text {
				return true
			}
		}
		return false
	case AttributeNumber:
		n, ok := numericValue(value)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			return false
		}
		if s.Min != nil && n < *s.Min {
			return false
		}
		if s.Max != nil && n > *s.Max {
			return false
		}
		return true
	default:
		return false
	}
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

type Category struct {
	Name       string          `json:"name" yaml:"name"`
	Parent     string          `json:"parent,omitempty" yaml:"parent,omitempty"`
	Attributes []AttributeSpec `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

func (c Category) Attribute(name string) (AttributeSpec, bool) {
	for _, spec := range c.Attributes {
		if spec.Name == name {
			return spec, true
		}
	}
	return AttributeSpec{}, false
}

// CategorySet is an ordered label vocabulary with unique names.
type CategorySet struct {
	categories []Category
	index      map[string]int
}

// NewCategorySet keeps the first occurrence of each name; later duplicates are
// returned so callers can report them.
func NewCategorySet(categories ...Category) (CategorySet, []string) {
	set := CategorySet{index: make(map[string]int, len(categories))}
	var duplicates []string
	for _, c := range categories {
		if _, exists := set.index[c.Name]; exists {
			duplicates = append(duplicates, c.Name)
			continue
		}
		set.index[c.Name] = len(set.categories)
		set.categories = append(set.categories, c)
	}
	return set, duplicates
}

func (s CategorySet) Len() int { return len(s.categories) }

func (s CategorySet) Categories() []Category {
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

func (s CategorySet) Names() []string {
	out := make([]string, len(s.categories))
	for i, c := range s.categories {
		out[i] = c.Name
	}
	return out
}

func (s CategorySet) Get(name string) (Category, bool) {
	i, ok := s.index[name]
	if !ok {
		return Category{}, false
	}
	return s.categories[i], true
}

func (s CategorySet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// ItemKey identifies an item within a dataset and joins corresponding items across datasets.
type ItemKey struct {
	Subset string `json:"subset" yaml:"subset"`
	ID     string `json:"id" yaml:"id"`
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%s/%s", k.Subset, k.ID)
}

type Annotation struct {
	ID         string         `json:"id,omitempty"`
	Type       AnnotationType `json:"type"`
	Label      string         `json:"label,omitempty"`
	Group      int            `json:"group,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`

	BBox    *BBox   `json:"bbox,omitempty"`
	Points  []Point `json:"points,omitempty"`
	Mask    *Mask   `json:"mask,omitempty"`
	Caption string  `json:"caption,omitempty"`
}

func (a Annotation) HasLabel() bool { return a.Label != "" }

// CheckGeometry reports why the payload is inconsistent with the declared type,
// or nil when it is well formed.
func (a Annotation) CheckGeometry() error {
	switch a.Type {
	case AnnotationBBox:
		if a.BBox == nil {
			return fmt.Errorf("bbox payload is missing")
		}
		return a.BBox.Check()
	case AnnotationPolygon:
		if len(a.Points) < 3 {
			return fmt.Errorf("polygon has %d points, need at least 3", len(a.Points))
		}
		return checkPoints(a.Points)
	case AnnotationPoints:
		if len(a.Points) == 0 {
			return fmt.Errorf("points payload is empty")
		}
		return checkPoints(a.Points)
	case AnnotationMask:
		if a.Mask == nil {
			return fmt.Errorf("mask payload is missing")
		}
		return a.Mask.Check()
	case AnnotationLabel:
		if !a.HasLabel() {
			return fmt.Errorf("label annotation has no label")
		}
		return nil
	case AnnotationCaption:
		return nil
	default:
		return fmt.Errorf("unknown annotation type %q", a.Type)
	}
}

// CheckAttributeValues reports the first declared attribute, in schema order,
// whose value lies outside its domain. Undeclared labels and attributes pass;
// the validator reports those separately.
func (a Annotation) CheckAttributeValues(schema CategorySet) error {
	if !a.HasLabel() || len(a.Attributes) == 0 {
		return nil
	}
	cat, ok := schema.Get(a.Label)
	if !ok {
		return nil
	}
	for _, spec := range cat.Attributes {
		value, present := a.Attributes[spec.Name]
		if present && !spec.Accepts(value) {
			return fmt.Errorf("attribute %q value %v is outside its %s domain", spec.Name, value, spec.Kind)
		}
	}
	return nil
}

// CheckWellFormed combines the geometry and attribute domain checks.
func (a Annotation) CheckWellFormed(schema CategorySet) error {
	if err := a.CheckGeometry(); err != nil {
		return err
	}
	return a.CheckAttributeValues(schema)
}

type Item struct {
	Subset      string       `json:"subset"`
	ID          string       `json:"id"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
	ContentHash string       `json:"content_hash,omitempty"`
	MediaPath   string       `json:"media_path,omitempty"`
	Annotations []Annotation `json:"annotations"`
}

func (it *Item) Key() ItemKey {
	return ItemKey{Subset: it.Subset, ID: it.ID}
}

// Dataset is an immutable snapshot for the duration of a comparison run.
type Dataset struct {
	Name       string
	Categories CategorySet
	Items      []Item
}

// InSubsets reports whether the item passes an optional subset filter.
func InSubsets(subset string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, s := range filter {
		if s == subset {
			return true
		}
	}
	return false
}
