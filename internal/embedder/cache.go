package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a content-addressed vector cache. It is a pure optimization:
// implementations absorb their own failures and report them as misses, so
// deleting or disabling a cache never changes recall correctness.
type Cache interface {
	// Get returns the cached vector for a content hash, or miss.
	Get(ctx context.Context, hash string) ([]float32, bool)

	// Put inserts a vector or refreshes its recency.
	Put(ctx context.Context, hash string, vector []float32)
}

// MemoryCache is an in-process LRU cache of embeddings by content hash.
// Capacity is a count of entries for predictable sizing.
type MemoryCache struct {
	cache *lru.Cache[string, []float32]
}

// DefaultMemoryCacheSize is used when no capacity is configured.
const DefaultMemoryCacheSize = 10000

// NewMemoryCache creates an in-process cache with LRU eviction.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultMemoryCacheSize
	}
	cache, err := lru.New[string, []float32](capacity)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		cache, _ = lru.New[string, []float32](DefaultMemoryCacheSize)
	}
	return &MemoryCache{cache: cache}
}

// Get returns a copy of the cached vector so caller mutations never
// pollute the cached value.
func (c *MemoryCache) Get(_ context.Context, hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Put stores a vector with automatic LRU eviction at capacity.
func (c *MemoryCache) Put(_ context.Context, hash string, vector []float32) {
	stored := make([]float32, len(vector))
	copy(stored, vector)
	c.cache.Add(hash, stored)
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	return c.cache.Len()
}

// Purge empties the cache.
func (c *MemoryCache) Purge() {
	c.cache.Purge()
}

// Cached wraps an Embedder with one or more cache tiers, checked in order.
// A hit in a later tier back-fills the earlier ones.
type Cached struct {
	inner Embedder
	tiers []Cache
}

// NewCached wraps inner with cache tiers. Tiers may be nil-free but empty.
func NewCached(inner Embedder, tiers ...Cache) *Cached {
	return &Cached{inner: inner, tiers: tiers}
}

func (c *Cached) lookup(ctx context.Context, hash string) ([]float32, int) {
	for i, tier := range c.tiers {
		if vec, ok := tier.Get(ctx, hash); ok {
			return vec, i
		}
	}
	return nil, -1
}

func (c *Cached) fill(ctx context.Context, hash string, vec []float32, upto int) {
	if upto < 0 {
		upto = len(c.tiers)
	}
	for i := 0; i < upto; i++ {
		c.tiers[i].Put(ctx, hash, vec)
	}
}

// GenerateEmbedding serves from cache when possible, otherwise delegates to
// the wrapped provider and populates every tier on success.
func (c *Cached) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	hash := ComputeHash(c.inner.Model(), req.Text)
	if vec, tier := c.lookup(ctx, hash); vec != nil {
		c.fill(ctx, hash, vec, tier)
		return &Embedding{
			Vector:    vec,
			Dimension: len(vec),
			Provider:  c.inner.Provider(),
			Model:     c.inner.Model(),
			Hash:      hash,
		}, nil
	}

	emb, err := c.inner.GenerateEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}
	emb.Hash = hash
	c.fill(ctx, hash, emb.Vector, -1)
	return emb, nil
}

// GenerateBatch resolves cached texts up front and only sends the misses to
// the wrapped provider.
func (c *Cached) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := c.inner.Model()
	out := make([]*Embedding, len(req.Texts))

	var missTexts []string
	var missIdx []int
	for i, text := range req.Texts {
		hash := ComputeHash(model, text)
		if vec, tier := c.lookup(ctx, hash); vec != nil {
			c.fill(ctx, hash, vec, tier)
			out[i] = &Embedding{
				Vector:    vec,
				Dimension: len(vec),
				Provider:  c.inner.Provider(),
				Model:     model,
				Hash:      hash,
			}
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		resp, err := c.inner.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: missTexts})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(missTexts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
				ErrProviderFailed, len(missTexts), len(resp.Embeddings))
		}
		for j, emb := range resp.Embeddings {
			hash := ComputeHash(model, missTexts[j])
			emb.Hash = hash
			c.fill(ctx, hash, emb.Vector, -1)
			out[missIdx[j]] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   c.inner.Provider(),
		Model:      model,
	}, nil
}

func (c *Cached) Dimension() int   { return c.inner.Dimension() }
func (c *Cached) Provider() string { return c.inner.Provider() }
func (c *Cached) Model() string    { return c.inner.Model() }
func (c *Cached) Close() error     { return c.inner.Close() }
