package reindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/memcontext-mcp/internal/embedder"
	"github.com/dshills/memcontext-mcp/internal/keyword"
	"github.com/dshills/memcontext-mcp/internal/storage"
	"github.com/dshills/memcontext-mcp/pkg/types"
)

// ErrReindexInProgress is returned when a rebuild is already running
var ErrReindexInProgress = errors.New("reindex already in progress")

// State is the rebuild state machine position
type State int32

const (
	// StateIdle means no rebuild is in progress
	StateIdle State = iota
	// StateBuilding means a fresh generation is being constructed
	StateBuilding
	// StateSwapping means the new generation is being published
	StateSwapping
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSwapping:
		return "swapping"
	default:
		return "unknown"
	}
}

// Defaults for the backfill worker pool
const (
	DefaultWorkers   = 4
	DefaultBatchSize = 32
)

// Manager rebuilds the keyword index and backfills missing embeddings. The
// new keyword generation is constructed off to the side from a chunk
// snapshot; recall keeps serving the old generation until publish, which is
// a single pointer swap.
type Manager struct {
	storage  storage.Storage
	embedder embedder.Embedder
	publish  func(*keyword.Index)
	logger   *slog.Logger

	lock       IndexLock
	state      atomic.Int32
	generation atomic.Uint64
	building   atomic.Pointer[keyword.Index]

	workers   int
	batchSize int
	indexOpts []keyword.IndexOption
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithWorkers sets the embedding backfill concurrency
func WithWorkers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithBatchSize sets the embedding request batch size
func WithBatchSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 && n <= embedder.MaxBatchSize {
			m.batchSize = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithIndexOptions passes configuration through to rebuilt keyword indexes
func WithIndexOptions(opts ...keyword.IndexOption) ManagerOption {
	return func(m *Manager) {
		m.indexOpts = opts
	}
}

// NewManager creates a reindex manager. publish is called exactly once per
// successful rebuild with the fully built replacement generation.
func NewManager(store storage.Storage, emb embedder.Embedder, publish func(*keyword.Index), opts ...ManagerOption) *Manager {
	m := &Manager{
		storage:   store,
		embedder:  emb,
		publish:   publish,
		logger:    slog.Default(),
		workers:   DefaultWorkers,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current rebuild state
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Generation returns the most recently published generation number
func (m *Manager) Generation() uint64 {
	return m.generation.Load()
}

// SetGeneration seeds the generation counter, used when the engine builds
// its initial index on startup
func (m *Manager) SetGeneration(gen uint64) {
	m.generation.Store(gen)
}

// BuildingIndex returns the generation currently under construction, or nil
// when no rebuild is running. Incremental writers must apply mutations to it
// in addition to the live generation, so writes landing after the rebuild's
// chunk snapshot survive the swap.
func (m *Manager) BuildingIndex() *keyword.Index {
	return m.building.Load()
}

// Reindex rebuilds the keyword index from the chunks table and backfills
// embeddings for chunks missing a vector for the current model. Embedding
// failures never fail the rebuild: the keyword generation is published
// regardless and the report marks the run as keyword-only when no vector
// work succeeded.
func (m *Manager) Reindex(ctx context.Context) (*types.ReindexReport, error) {
	if !m.lock.TryAcquire() {
		return nil, ErrReindexInProgress
	}
	defer m.lock.Release()

	m.state.Store(int32(StateBuilding))
	defer m.state.Store(int32(StateIdle))

	started := time.Now()
	newGen := m.generation.Load() + 1

	// Expose the replacement generation before taking the chunk snapshot.
	// Writers that commit after the snapshot see it through BuildingIndex
	// and apply their mutations directly, so the swap cannot drop them.
	index := keyword.NewIndex(newGen, m.indexOpts...)
	m.building.Store(index)
	defer m.building.Store(nil)

	chunks, err := m.storage.ListAllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot chunks: %w", err)
	}

	for _, chunk := range chunks {
		index.Add(keyword.Document{
			ChunkID:   chunk.ID,
			Text:      chunk.Content,
			CreatedAt: chunk.CreatedAt,
		})
	}

	backfilled, failed := m.backfillEmbeddings(ctx)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.state.Store(int32(StateSwapping))
	m.publish(index)
	m.generation.Store(newGen)

	report := &types.ReindexReport{
		ChunksReindexed:   len(chunks),
		VectorsBackfilled: backfilled,
		VectorsFailed:     failed,
		KeywordOnly:       backfilled == 0 && failed > 0,
		Generation:        newGen,
	}

	m.logger.Info("reindex complete",
		"generation", newGen,
		"chunks", report.ChunksReindexed,
		"vectors_backfilled", report.VectorsBackfilled,
		"vectors_failed", report.VectorsFailed,
		"keyword_only", report.KeywordOnly,
		"duration", time.Since(started),
	)

	return report, nil
}

// backfillEmbeddings generates vectors for chunks that have none for the
// current model, or whose stored vector belongs to a different model. Work
// is batched and spread across a bounded worker pool; a failed batch falls
// back to per-chunk calls so failures are counted per chunk, and never stop
// other batches.
func (m *Manager) backfillEmbeddings(ctx context.Context) (backfilled, failed int) {
	model := m.embedder.Model()
	missing, err := m.storage.ListChunksMissingEmbedding(ctx, model)
	if err != nil {
		m.logger.Warn("failed to list chunks missing embeddings", "error", err)
		return 0, 0
	}
	if len(missing) == 0 {
		return 0, 0
	}

	var okCount, failCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for start := 0; start < len(missing); start += m.batchSize {
		end := start + m.batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]

		g.Go(func() error {
			if err := m.embedBatch(gctx, batch); err == nil {
				okCount.Add(int64(len(batch)))
				return nil
			}
			// Retry one chunk at a time so a single bad chunk does not
			// take its whole batch down with it.
			for _, chunk := range batch {
				if err := m.embedBatch(gctx, []*storage.Chunk{chunk}); err != nil {
					failCount.Add(1)
					m.logger.Warn("embedding backfill failed",
						"chunk_id", chunk.ID, "error", err)
					continue
				}
				okCount.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(okCount.Load()), int(failCount.Load())
}

// embedBatch embeds one batch of chunks and persists the vectors
func (m *Manager) embedBatch(ctx context.Context, batch []*storage.Chunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Content
	}

	resp, err := m.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		return err
	}
	if len(resp.Embeddings) != len(batch) {
		return fmt.Errorf("provider returned %d embeddings for %d chunks", len(resp.Embeddings), len(batch))
	}

	for i, emb := range resp.Embeddings {
		record := &storage.Embedding{
			ChunkID:   batch[i].ID,
			Vector:    storage.SerializeVector(emb.Vector),
			Dimension: emb.Dimension,
			Provider:  resp.Provider,
			Model:     resp.Model,
		}
		if err := m.storage.UpsertEmbedding(ctx, record); err != nil {
			return fmt.Errorf("failed to persist embedding for chunk %d: %w", batch[i].ID, err)
		}
	}
	return nil
}
