package reindex

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memcontext-mcp/internal/embedder"
	"github.com/dshills/memcontext-mcp/internal/keyword"
	"github.com/dshills/memcontext-mcp/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRecord(t *testing.T, store storage.Storage, id string, chunkTexts ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.CreateRecord(ctx, &storage.Record{ID: id, Content: "seed"}))
	for i, text := range chunkTexts {
		require.NoError(t, store.InsertChunk(ctx, &storage.Chunk{
			RecordID: id, Ordinal: i, Content: text,
		}))
	}
}

// capture collects published index generations
type capture struct {
	mu      sync.Mutex
	indexes []*keyword.Index
}

func (c *capture) publish(idx *keyword.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes = append(c.indexes, idx)
}

func (c *capture) latest() *keyword.Index {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.indexes) == 0 {
		return nil
	}
	return c.indexes[len(c.indexes)-1]
}

func TestReindexBuildsAndPublishes(t *testing.T) {
	store := newTestStore(t)
	seedRecord(t, store, "rec-1", "the quick brown fox", "a lazy dog sleeps")

	local, err := embedder.NewLocalProvider()
	require.NoError(t, err)

	published := &capture{}
	mgr := NewManager(store, local, published.publish)

	report, err := mgr.Reindex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.ChunksReindexed)
	assert.Equal(t, 2, report.VectorsBackfilled)
	assert.Zero(t, report.VectorsFailed)
	assert.False(t, report.KeywordOnly)
	assert.Equal(t, uint64(1), report.Generation)

	idx := published.latest()
	require.NotNil(t, idx)
	assert.Equal(t, uint64(1), idx.Generation())
	assert.Len(t, idx.Search("fox", 10), 1)

	count, err := store.CountEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReindexIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedRecord(t, store, "rec-1", "some stable content")

	local, err := embedder.NewLocalProvider()
	require.NoError(t, err)

	published := &capture{}
	mgr := NewManager(store, local, published.publish)
	ctx := context.Background()

	first, err := mgr.Reindex(ctx)
	require.NoError(t, err)
	second, err := mgr.Reindex(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ChunksReindexed, second.ChunksReindexed)
	assert.Zero(t, second.VectorsBackfilled, "nothing left to backfill on a repeat run")
	assert.Equal(t, first.Generation+1, second.Generation, "each rebuild publishes a new generation")

	count, err := store.CountEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "repeat reindex must not duplicate vectors")
}

func TestReindexKeywordOnlyWhenProviderDown(t *testing.T) {
	store := newTestStore(t)
	seedRecord(t, store, "rec-1", "the quick brown fox")

	published := &capture{}
	mgr := NewManager(store, embedder.NewNoopProvider(), published.publish)

	report, err := mgr.Reindex(context.Background())
	require.NoError(t, err, "provider outage must not fail the rebuild")

	assert.Equal(t, 1, report.ChunksReindexed)
	assert.Zero(t, report.VectorsBackfilled)
	assert.Equal(t, 1, report.VectorsFailed)
	assert.True(t, report.KeywordOnly)

	// The keyword generation still serves.
	idx := published.latest()
	require.NotNil(t, idx)
	assert.Len(t, idx.Search("fox", 10), 1)
}

// poisonEmbedder fails any request whose texts include the poison string
// and delegates everything else.
type poisonEmbedder struct {
	inner  embedder.Embedder
	poison string
}

func (p *poisonEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if req.Text == p.poison {
		return nil, embedder.ErrProviderFailed
	}
	return p.inner.GenerateEmbedding(ctx, req)
}

func (p *poisonEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	for _, text := range req.Texts {
		if text == p.poison {
			return nil, embedder.ErrProviderFailed
		}
	}
	return p.inner.GenerateBatch(ctx, req)
}

func (p *poisonEmbedder) Dimension() int   { return p.inner.Dimension() }
func (p *poisonEmbedder) Provider() string { return p.inner.Provider() }
func (p *poisonEmbedder) Model() string    { return p.inner.Model() }
func (p *poisonEmbedder) Close() error     { return p.inner.Close() }

func TestReindexCountsFailuresPerChunk(t *testing.T) {
	store := newTestStore(t)
	seedRecord(t, store, "rec-1", "healthy first chunk", "poisoned chunk", "healthy last chunk")

	local, err := embedder.NewLocalProvider()
	require.NoError(t, err)

	published := &capture{}
	mgr := NewManager(store, &poisonEmbedder{inner: local, poison: "poisoned chunk"}, published.publish)

	report, err := mgr.Reindex(context.Background())
	require.NoError(t, err)

	// One bad chunk fails alone; its batchmates still get vectors.
	assert.Equal(t, 2, report.VectorsBackfilled)
	assert.Equal(t, 1, report.VectorsFailed)
	assert.False(t, report.KeywordOnly)

	count, err := store.CountEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReindexEmptyStore(t *testing.T) {
	store := newTestStore(t)

	local, err := embedder.NewLocalProvider()
	require.NoError(t, err)

	published := &capture{}
	mgr := NewManager(store, local, published.publish)

	report, err := mgr.Reindex(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.ChunksReindexed)
	assert.False(t, report.KeywordOnly)
	require.NotNil(t, published.latest())
	assert.Zero(t, published.latest().DocCount())
}

func TestReindexRejectsConcurrentRun(t *testing.T) {
	store := newTestStore(t)

	local, err := embedder.NewLocalProvider()
	require.NoError(t, err)

	mgr := NewManager(store, local, func(*keyword.Index) {})

	// Hold the lock as a running rebuild would.
	require.True(t, mgr.lock.TryAcquire())
	defer mgr.lock.Release()

	_, err = mgr.Reindex(context.Background())
	assert.ErrorIs(t, err, ErrReindexInProgress)
}

func TestStateTransitions(t *testing.T) {
	store := newTestStore(t)

	local, err := embedder.NewLocalProvider()
	require.NoError(t, err)

	var duringPublish State
	var mgr *Manager
	mgr = NewManager(store, local, func(*keyword.Index) {
		duringPublish = mgr.State()
	})

	assert.Equal(t, StateIdle, mgr.State())
	_, err = mgr.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSwapping, duringPublish)
	assert.Equal(t, StateIdle, mgr.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "building", StateBuilding.String())
	assert.Equal(t, "swapping", StateSwapping.String())
}
