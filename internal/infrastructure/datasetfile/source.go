package datasetfile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

// Source loads dataset documents from object storage by key.
type Source struct {
	storage ports.ObjectStorage
	logger  *slog.Logger
}

func NewSource(storage ports.ObjectStorage, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{storage: storage, logger: logger}
}

func (s *Source) Load(ctx context.Context, ref string) (*domain.Dataset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load dataset", fmt.Errorf("empty dataset reference"))
	}
	rc, err := s.storage.Open(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", ref, err)
	}
	defer rc.Close()

	doc, err := Decode(rc, FormatFor(ref))
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", ref, err)
	}
	ds, duplicates := doc.Dataset()
	if ds.Name == "" {
		ds.Name = ref
	}
	if len(duplicates) > 0 {
		s.logger.Warn("dataset_duplicate_categories", "dataset", ref, "categories", duplicates)
	}
	return ds, nil
}

// Store encodes ds under key, choosing the format from the key extension.
func (s *Source) Store(ctx context.Context, key string, ds *domain.Dataset) error {
	format := FormatFor(key)
	var buf strings.Builder
	if err := Encode(&buf, FromDataset(ds), format); err != nil {
		return err
	}
	if err := s.storage.Save(ctx, key, strings.NewReader(buf.String())); err != nil {
		return fmt.Errorf("store dataset %s: %w", key, err)
	}
	return nil
}
