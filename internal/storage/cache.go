package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dshills/memcontext-mcp/pkg/types"
)

// DefaultCacheMaxEntries bounds the persisted embedding cache by entry count
const DefaultCacheMaxEntries = 50000

// EmbeddingCache adapts the embedding_cache table to the embedder cache tier
// contract. Storage failures on either path degrade to a cache miss; a broken
// cache must never take recall down with it.
type EmbeddingCache struct {
	storage    Storage
	maxEntries int
	logger     *slog.Logger
}

// NewEmbeddingCache creates a persisted cache tier over the given storage.
// maxEntries <= 0 selects the default capacity.
func NewEmbeddingCache(storage Storage, maxEntries int, logger *slog.Logger) *EmbeddingCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{storage: storage, maxEntries: maxEntries, logger: logger}
}

// Get looks up a vector by content hash. Any storage failure reads as a miss.
func (c *EmbeddingCache) Get(ctx context.Context, hash string) ([]float32, bool) {
	vector, err := c.storage.GetCacheEntry(ctx, hash)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			c.logger.Warn("embedding cache read failed", "hash", hash, "error", err)
		}
		return nil, false
	}
	return vector, true
}

// Put stores a vector under its content hash, evicting least recently
// accessed entries beyond the configured capacity. Failures are logged and
// dropped.
func (c *EmbeddingCache) Put(ctx context.Context, hash string, vector []float32) {
	if err := c.storage.PutCacheEntry(ctx, hash, vector, c.maxEntries); err != nil {
		c.logger.Warn("embedding cache write failed", "hash", hash, "error", err)
	}
}
