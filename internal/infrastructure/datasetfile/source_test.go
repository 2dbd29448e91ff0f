package datasetfile

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

const jsonDataset = `{
  "name": "a",
  "categories": [
    {"name": "cat", "attributes": [{"name": "occluded", "kind": "bool"}]},
    {"name": "dog", "parent": "animal"},
    {"name": "cat"}
  ],
  "items": [
    {"subset": "train", "id": "img1", "width": 640, "height": 480, "annotations": [
      {"type": "bbox", "label": "cat", "bbox": {"x": 0, "y": 0, "w": 10, "h": 10}, "attributes": {"occluded": false, "score": 0.9}},
      {"type": "polygon", "label": "dog", "points": [{"x": 0, "y": 0}, {"x": 4, "y": 0}, {"x": 0, "y": 3}]}
    ]}
  ]
}`

const yamlDataset = `
name: b
categories:
  - name: cat
items:
  - subset: train
    id: img1
    annotations:
      - type: mask
        label: cat
        mask: {width: 2, height: 2, counts: [1, 2, 1]}
      - type: caption
        caption: a cat
`

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[key] = raw
	return nil
}

func (m *memoryStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := m.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open object", io.ErrUnexpectedEOF)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func TestDecodeJSON(t *testing.T) {
	doc, err := Decode(strings.NewReader(jsonDataset), FormatAuto)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ds, duplicates := doc.Dataset()
	if len(duplicates) != 1 || duplicates[0] != "cat" {
		t.Fatalf("expected duplicate cat, got %v", duplicates)
	}
	if ds.Categories.Len() != 2 {
		t.Fatalf("expected 2 categories, got %d", ds.Categories.Len())
	}
	item := ds.Items[0]
	if item.Key() != (domain.ItemKey{Subset: "train", ID: "img1"}) || len(item.Annotations) != 2 {
		t.Fatalf("unexpected item %+v", item)
	}
	if _, ok := item.Annotations[0].Attributes["score"].(json.Number); !ok {
		t.Fatalf("expected json.Number attribute, got %T", item.Annotations[0].Attributes["score"])
	}
	if err := item.Annotations[1].CheckGeometry(); err != nil {
		t.Fatalf("expected well-formed polygon, got %v", err)
	}
}

func TestDecodeYAML(t *testing.T) {
	doc, err := Decode(strings.NewReader(yamlDataset), FormatFor("b.yaml"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	ds, _ := doc.Dataset()
	anns := ds.Items[0].Annotations
	if anns[0].Mask == nil || anns[0].Mask.Area() != 2 {
		t.Fatalf("unexpected mask %+v", anns[0].Mask)
	}
	if anns[1].Type != domain.AnnotationCaption || anns[1].Caption != "a cat" {
		t.Fatalf("unexpected caption %+v", anns[1])
	}
}

func TestDecodeRejectsBrokenDocument(t *testing.T) {
	if _, err := Decode(strings.NewReader(`{"items": [`), FormatJSON); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestSourceRoundTrip(t *testing.T) {
	storage := &memoryStorage{objects: map[string][]byte{"a.json": []byte(jsonDataset)}}
	src := NewSource(storage, nil)

	ds, err := src.Load(context.Background(), "a.json")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := src.Store(context.Background(), "copy.yaml", ds); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	again, err := src.Load(context.Background(), "copy.yaml")
	if err != nil {
		t.Fatalf("Load(copy) error = %v", err)
	}
	if again.Name != "a" || len(again.Items[0].Annotations) != 2 || !again.Categories.Has("dog") {
		t.Fatalf("unexpected round trip %+v", again)
	}
}

func TestSourceNamesDatasetAfterRef(t *testing.T) {
	storage := &memoryStorage{objects: map[string][]byte{"unnamed.yaml": []byte("items: []\n")}}
	ds, err := NewSource(storage, nil).Load(context.Background(), "unnamed.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if ds.Name != "unnamed.yaml" {
		t.Fatalf("expected ref as name, got %q", ds.Name)
	}
	if _, err := NewSource(storage, nil).Load(context.Background(), "absent.json"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
