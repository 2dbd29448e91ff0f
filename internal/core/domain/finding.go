package domain

type FindingKind string

const (
	FindingUndefinedLabel     FindingKind = "undefined_label"
	FindingUndefinedAttribute FindingKind = "undefined_attribute"
	FindingOutOfDomainValue   FindingKind = "out_of_domain_value"
	FindingMalformedGeometry  FindingKind = "malformed_geometry"
	FindingMissingAttribute   FindingKind = "missing_attribute"
	FindingMissingAnnotation  FindingKind = "missing_annotation"
)

// ItemLevel is the annotation index of findings that concern a whole item.
const ItemLevel = -1

type Finding struct {
	Item       ItemKey     `json:"item" yaml:"item"`
	Annotation int         `json:"annotation" yaml:"annotation"`
	Kind       FindingKind `json:"kind" yaml:"kind"`
	Label      string      `json:"label,omitempty" yaml:"label,omitempty"`
	Detail     string      `json:"detail" yaml:"detail"`
}

type ValidationReport struct {
	Findings []Finding           `json:"findings" yaml:"findings"`
	ByKind   map[FindingKind]int `json:"by_kind" yaml:"by_kind"`
	ByLabel  map[string]int      `json:"by_label" yaml:"by_label"`
}

func NewValidationReport() *ValidationReport {
	return &ValidationReport{
		Findings: []Finding{},
		ByKind:   make(map[FindingKind]int),
		ByLabel:  make(map[string]int),
	}
}

// Add appends findings and updates the groupings.
func (r *ValidationReport) Add(findings ...Finding) {
	for _, f := range findings {
		r.Findings = append(r.Findings, f)
		r.ByKind[f.Kind]++
		label := f.Label
		if label == "" {
			label = Unlabeled
		}
		r.ByLabel[label]++
	}
}

func (r *ValidationReport) OK() bool { return len(r.Findings) == 0 }

func (r *ValidationReport) OfKind(kind FindingKind) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}
