package datasetfile

import "github.com/kirillkom/annotation-compare/internal/core/domain"

// Document is the normalized dataset file: one JSON or YAML object holding the
// category schema and the items with their annotations.
type Document struct {
	Name       string            `json:"name" yaml:"name"`
	Categories []domain.Category `json:"categories" yaml:"categories"`
	Items      []ItemDocument    `json:"items" yaml:"items"`
}

type ItemDocument struct {
	Subset      string               `json:"subset" yaml:"subset"`
	ID          string               `json:"id" yaml:"id"`
	Width       int                  `json:"width,omitempty" yaml:"width,omitempty"`
	Height      int                  `json:"height,omitempty" yaml:"height,omitempty"`
	ContentHash string               `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	MediaPath   string               `json:"media_path,omitempty" yaml:"media_path,omitempty"`
	Annotations []AnnotationDocument `json:"annotations" yaml:"annotations"`
}

type AnnotationDocument struct {
	ID         string                `json:"id,omitempty" yaml:"id,omitempty"`
	Type       domain.AnnotationType `json:"type" yaml:"type"`
	Label      string                `json:"label,omitempty" yaml:"label,omitempty"`
	Group      int                   `json:"group,omitempty" yaml:"group,omitempty"`
	Attributes map[string]any        `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	BBox       *domain.BBox          `json:"bbox,omitempty" yaml:"bbox,omitempty"`
	Points     []domain.Point        `json:"points,omitempty" yaml:"points,omitempty"`
	Mask       *domain.Mask          `json:"mask,omitempty" yaml:"mask,omitempty"`
	Caption    string                `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Dataset converts the document into the in-memory model. Repeated category
// names keep their first declaration and are returned alongside.
func (d *Document) Dataset() (*domain.Dataset, []string) {
	cats, duplicates := domain.NewCategorySet(d.Categories...)
	ds := &domain.Dataset{
		Name:       d.Name,
		Categories: cats,
		Items:      make([]domain.Item, len(d.Items)),
	}
	for i, it := range d.Items {
		item := domain.Item{
			Subset:      it.Subset,
			ID:          it.ID,
			Width:       it.Width,
			Height:      it.Height,
			ContentHash: it.ContentHash,
			MediaPath:   it.MediaPath,
			Annotations: make([]domain.Annotation, len(it.Annotations)),
		}
		for j, a := range it.Annotations {
			item.Annotations[j] = domain.Annotation{
				ID:         a.ID,
				Type:       a.Type,
				Label:      a.Label,
				Group:      a.Group,
				Attributes: a.Attributes,
				BBox:       a.BBox,
				Points:     a.Points,
				Mask:       a.Mask,
				Caption:    a.Caption,
			}
		}
		ds.Items[i] = item
	}
	return ds, duplicates
}

// FromDataset is the inverse of Dataset, used when storing uploaded datasets.
func FromDataset(ds *domain.Dataset) *Document {
	doc := &Document{
		Name:       ds.Name,
		Categories: ds.Categories.Categories(),
		Items:      make([]ItemDocument, len(ds.Items)),
	}
	for i, it := range ds.Items {
		item := ItemDocument{
			Subset:      it.Subset,
			ID:          it.ID,
			Width:       it.Width,
			Height:      it.Height,
			ContentHash: it.ContentHash,
			MediaPath:   it.MediaPath,
			Annotations: make([]AnnotationDocument, len(it.Annotations)),
		}
		for j, a := range it.Annotations {
			item.Annotations[j] = AnnotationDocument{
				ID: a.ID, Type: a.Type, Label: a.Label, Group: a.Group, Attributes: a.Attributes,
				BBox: a.BBox, Points: a.Points, Mask: a.Mask, Caption: a.Caption,
			}
		}
		doc.Items[i] = item
	}
	return doc
}
