package hashing

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
)

// MediaHasher digests item media read from object storage with xxhash64.
type MediaHasher struct {
	storage ports.ObjectStorage
}

func NewMediaHasher(storage ports.ObjectStorage) *MediaHasher {
	return &MediaHasher{storage: storage}
}

// Hash returns "" for items that carry no media path.
func (h *MediaHasher) Hash(ctx context.Context, item *domain.Item) (string, error) {
	if item.MediaPath == "" {
		return "", nil
	}
	rc, err := h.storage.Open(ctx, item.MediaPath)
	if err != nil {
		return "", fmt.Errorf("open media %s: %w", item.MediaPath, err)
	}
	defer rc.Close()

	digest := xxhash.New()
	if _, err := io.Copy(digest, rc); err != nil {
		return "", fmt.Errorf("read media %s: %w", item.MediaPath, err)
	}
	return "xxh64:" + strconv.FormatUint(digest.Sum64(), 16), nil
}
