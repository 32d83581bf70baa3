package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/dshills/memcontext-mcp/internal/chunker"
	"github.com/dshills/memcontext-mcp/internal/embedder"
	"github.com/dshills/memcontext-mcp/internal/keyword"
	"github.com/dshills/memcontext-mcp/internal/ranker"
	"github.com/dshills/memcontext-mcp/internal/reindex"
	"github.com/dshills/memcontext-mcp/internal/storage"
	"github.com/dshills/memcontext-mcp/pkg/types"
)

// ErrEmptyContent is returned by Store for content with no text
var ErrEmptyContent = errors.New("content must not be empty")

// Defaults applied by New when Config leaves a field zero
const (
	DefaultKeywordWeight       = 0.4
	DefaultVectorWeight        = 0.6
	DefaultTopK                = 10
	DefaultCandidateMultiplier = 3
	DefaultQueryEmbedTimeout   = 2 * time.Second
	DefaultBatchEmbedTimeout   = 60 * time.Second
)

// Config carries all tunables for one engine instance. Engines never read
// ambient global state, so several instances with different configurations
// can coexist in one process.
type Config struct {
	// Merge weights used when a recall does not supply its own. They need
	// not sum to one; the ranker normalizes.
	KeywordWeight float64
	VectorWeight  float64

	// TopK is the default recall result count
	TopK int

	// CandidateMultiplier widens both candidate sets beyond k before the
	// merge, so a chunk strong on one side still competes
	CandidateMultiplier int

	// MemoryCacheSize bounds the in-process embedding cache (entries)
	MemoryCacheSize int

	// PersistentCacheEntries bounds the SQLite embedding cache (entries)
	PersistentCacheEntries int

	// QueryEmbedTimeout bounds the inline query embedding during recall;
	// expiry falls back to keyword-only ranking
	QueryEmbedTimeout time.Duration

	// BatchEmbedTimeout bounds the batch embedding path used by store
	// and reindex
	BatchEmbedTimeout time.Duration

	// FailureThreshold and CooldownPeriod configure the provider cooldown
	// gate; zero values select the embedder defaults
	FailureThreshold int
	CooldownPeriod   time.Duration

	// TieBreak orders equal-scored results
	TieBreak keyword.TieBreak

	// TargetChunkSize and MaxChunkSize configure the chunker; zero values
	// select the chunker defaults
	TargetChunkSize int
	MaxChunkSize    int

	// Workers bounds reindex backfill concurrency
	Workers int

	// Logger receives structured events; nil selects slog.Default
	Logger *slog.Logger
}

// DefaultConfig returns a Config with every default filled in
func DefaultConfig() Config {
	return Config{
		KeywordWeight:          DefaultKeywordWeight,
		VectorWeight:           DefaultVectorWeight,
		TopK:                   DefaultTopK,
		CandidateMultiplier:    DefaultCandidateMultiplier,
		MemoryCacheSize:        embedder.DefaultMemoryCacheSize,
		PersistentCacheEntries: storage.DefaultCacheMaxEntries,
		QueryEmbedTimeout:      DefaultQueryEmbedTimeout,
		BatchEmbedTimeout:      DefaultBatchEmbedTimeout,
		FailureThreshold:       embedder.DefaultFailureThreshold,
		CooldownPeriod:         embedder.DefaultCooldownPeriod,
		TieBreak:               keyword.TieBreakNewestFirst,
		Workers:                reindex.DefaultWorkers,
		Logger:                 slog.Default(),
	}
}

// normalize fills zero fields with defaults
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.KeywordWeight <= 0 && c.VectorWeight <= 0 {
		c.KeywordWeight = def.KeywordWeight
		c.VectorWeight = def.VectorWeight
	}
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.CandidateMultiplier <= 0 {
		c.CandidateMultiplier = def.CandidateMultiplier
	}
	if c.MemoryCacheSize <= 0 {
		c.MemoryCacheSize = def.MemoryCacheSize
	}
	if c.PersistentCacheEntries <= 0 {
		c.PersistentCacheEntries = def.PersistentCacheEntries
	}
	if c.QueryEmbedTimeout <= 0 {
		c.QueryEmbedTimeout = def.QueryEmbedTimeout
	}
	if c.BatchEmbedTimeout <= 0 {
		c.BatchEmbedTimeout = def.BatchEmbedTimeout
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.CooldownPeriod <= 0 {
		c.CooldownPeriod = def.CooldownPeriod
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.Logger == nil {
		c.Logger = def.Logger
	}
	return c
}

// RecallOptions tunes one recall call. Zero values fall back to the engine
// configuration; passing both weights as zero selects the configured pair.
type RecallOptions struct {
	TopK          int
	KeywordWeight float64
	VectorWeight  float64
}

// Status is a point-in-time health and statistics snapshot
type Status struct {
	Records      int
	Chunks       int
	Embeddings   int
	CacheEntries int
	Generation   uint64
	ReindexState string
	Provider     string
	Model        string
	CoolingDown  bool
	Degraded     bool
}

// Engine implements the hybrid memory interface: store, recall, forget,
// reindex. Chunks live durably in SQLite; the keyword index is an in-memory
// generation behind an atomic pointer; vectors are best-effort.
type Engine struct {
	config  Config
	storage storage.Storage
	chunker *chunker.Chunker
	logger  *slog.Logger

	// embed is the full provider stack: cache tiers over the cooldown gate
	// over the raw provider. gate is retained for cooldown introspection.
	embed embedder.Embedder
	gate  *embedder.Gated

	index   atomic.Pointer[keyword.Index]
	manager *reindex.Manager

	repairing atomic.Bool
	degraded  atomic.Bool
}

// New builds an engine over the given storage and embedding provider. The
// initial keyword generation is reconstructed from the chunks table, so a
// restart serves recalls immediately. A failed consistency check triggers
// one automatic rebuild; if that also fails the engine comes up degraded
// but serving.
func New(store storage.Storage, provider embedder.Embedder, config Config) (*Engine, error) {
	config = config.normalize()

	gate := embedder.NewGated(provider,
		embedder.WithFailureThreshold(config.FailureThreshold),
		embedder.WithCooldownPeriod(config.CooldownPeriod),
	)

	memCache := embedder.NewMemoryCache(config.MemoryCacheSize)
	persistent := storage.NewEmbeddingCache(store, config.PersistentCacheEntries, config.Logger)
	embed := embedder.NewCached(gate, memCache, persistent)

	e := &Engine{
		config:  config,
		storage: store,
		chunker: chunker.New(chunker.Options{
			TargetSize: config.TargetChunkSize,
			MaxSize:    config.MaxChunkSize,
		}),
		logger: config.Logger,
		embed:  embed,
		gate:   gate,
	}

	indexOpts := []keyword.IndexOption{keyword.WithTieBreak(config.TieBreak)}
	e.manager = reindex.NewManager(store, embed,
		func(idx *keyword.Index) { e.index.Store(idx) },
		reindex.WithWorkers(config.Workers),
		reindex.WithLogger(config.Logger),
		reindex.WithIndexOptions(indexOpts...),
	)

	// Rebuild the initial generation from the durable chunk set.
	ctx := context.Background()
	chunks, err := store.ListAllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	docs := make([]keyword.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = keyword.Document{ChunkID: chunk.ID, Text: chunk.Content, CreatedAt: chunk.CreatedAt}
	}
	e.index.Store(keyword.Build(1, docs, indexOpts...))
	e.manager.SetGeneration(1)

	if err := store.CheckConsistency(ctx); err != nil {
		if errors.Is(err, types.ErrIndexCorruption) {
			e.logger.Warn("consistency check failed at startup, rebuilding", "error", err)
			e.repairIndex(ctx)
		} else {
			return nil, fmt.Errorf("consistency check failed: %w", err)
		}
	}

	return e, nil
}

// Close releases the embedding provider. Storage is owned by the caller.
func (e *Engine) Close() error {
	return e.embed.Close()
}

// Store chunks content, persists the record and chunks transactionally,
// indexes the chunks for keyword search, and embeds them best-effort. An
// embedding failure never fails the store.
func (e *Engine) Store(ctx context.Context, content string, meta types.Metadata) (*types.MemoryRecord, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	pieces := e.chunker.Chunk(content)
	record := &storage.Record{
		ID:        ulid.Make().String(),
		Content:   content,
		Source:    meta.Source,
		Tags:      meta.Tags,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.CreateRecord(ctx, record); err != nil {
		return nil, err
	}

	chunks := make([]*storage.Chunk, len(pieces))
	for i, piece := range pieces {
		chunk := &storage.Chunk{
			RecordID:    record.ID,
			Ordinal:     i,
			Content:     piece.Text,
			HeadingPath: piece.HeadingPath,
			CreatedAt:   record.CreatedAt,
		}
		if err := tx.InsertChunk(ctx, chunk); err != nil {
			return nil, err
		}
		chunks[i] = chunk
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	// Committed: make the chunks findable immediately. A rebuild snapshots
	// chunks after exposing its replacement generation, so writes landing
	// here either made the snapshot or get applied to the replacement
	// below. Loading the building generation before the live one keeps a
	// concurrent swap from slipping between the two loads.
	building := e.manager.BuildingIndex()
	idx := e.index.Load()
	for _, chunk := range chunks {
		doc := keyword.Document{ChunkID: chunk.ID, Text: chunk.Content, CreatedAt: chunk.CreatedAt}
		idx.Add(doc)
		if building != nil && building != idx {
			building.Add(doc)
		}
	}

	e.embedChunks(ctx, chunks)

	return recordToTypes(record), nil
}

// embedChunks persists vectors for freshly stored chunks. Failures are
// absorbed; the reindex backfill picks the chunks up later.
func (e *Engine) embedChunks(ctx context.Context, chunks []*storage.Chunk) {
	if len(chunks) == 0 {
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, e.config.BatchEmbedTimeout)
	defer cancel()

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	resp, err := e.embed.GenerateBatch(embedCtx, embedder.BatchEmbeddingRequest{Texts: texts})
	if err != nil {
		e.logger.Warn("embedding failed during store, chunks remain keyword-only",
			"chunks", len(chunks), "error", err)
		return
	}
	if len(resp.Embeddings) != len(chunks) {
		e.logger.Warn("provider returned wrong embedding count",
			"want", len(chunks), "got", len(resp.Embeddings))
		return
	}

	for i, emb := range resp.Embeddings {
		row := &storage.Embedding{
			ChunkID:   chunks[i].ID,
			Vector:    storage.SerializeVector(emb.Vector),
			Dimension: emb.Dimension,
			Provider:  resp.Provider,
			Model:     resp.Model,
		}
		if err := e.storage.UpsertEmbedding(ctx, row); err != nil {
			e.logger.Warn("failed to persist embedding", "chunk_id", chunks[i].ID, "error", err)
		}
	}
}

// Recall runs hybrid retrieval: keyword candidates from the current index
// generation, vector candidates when a query embedding is available within
// the short timeout, merged by weighted sum. The vector side degrading never
// fails the call.
func (e *Engine) Recall(ctx context.Context, query string, opts RecallOptions) ([]types.RecallResult, error) {
	if strings.TrimSpace(query) == "" {
		return []types.RecallResult{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.config.TopK
	}
	keywordWeight, vectorWeight := opts.KeywordWeight, opts.VectorWeight
	if keywordWeight == 0 && vectorWeight == 0 {
		keywordWeight, vectorWeight = e.config.KeywordWeight, e.config.VectorWeight
	}

	// Widen both candidate sets so a chunk strong on only one side still
	// reaches the merge.
	limit := topK * e.config.CandidateMultiplier

	// Pin the generation for the whole query.
	idx := e.index.Load()
	keywordHits := idx.Search(query, limit)

	vectorHits, err := e.searchVector(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	// Join candidates against the durable chunk rows. Chunks deleted since
	// the candidates were gathered simply drop out.
	ids := make([]int64, 0, len(keywordHits)+len(vectorHits))
	for _, hit := range keywordHits {
		ids = append(ids, hit.ChunkID)
	}
	for _, hit := range vectorHits {
		ids = append(ids, hit.ChunkID)
	}
	rows, err := e.storage.GetChunksBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	chunkByID := make(map[int64]*storage.Chunk, len(rows))
	createdAt := make(map[int64]time.Time, len(rows))
	for _, row := range rows {
		chunkByID[row.ID] = row
		createdAt[row.ID] = row.CreatedAt
	}

	keywordScored := make([]ranker.Scored, 0, len(keywordHits))
	for _, hit := range keywordHits {
		if _, ok := chunkByID[hit.ChunkID]; ok {
			keywordScored = append(keywordScored, ranker.Scored{ChunkID: hit.ChunkID, Score: hit.Score})
		}
	}
	vectorScored := make([]ranker.Scored, 0, len(vectorHits))
	for _, hit := range vectorHits {
		if _, ok := chunkByID[hit.ChunkID]; ok {
			vectorScored = append(vectorScored, ranker.Scored{ChunkID: hit.ChunkID, Score: hit.SimilarityScore})
		}
	}

	merged := ranker.Rank(keywordScored, vectorScored, keywordWeight, vectorWeight, topK, e.config.TieBreak, createdAt)

	results := make([]types.RecallResult, 0, len(merged))
	records := make(map[string]*storage.Record)
	for _, entry := range merged {
		chunk := chunkByID[entry.ChunkID]

		record, ok := records[chunk.RecordID]
		if !ok {
			record, err = e.storage.GetRecord(ctx, chunk.RecordID)
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					continue // record deleted mid-query
				}
				return nil, err
			}
			records[chunk.RecordID] = record
		}

		results = append(results, types.RecallResult{
			RecordID:    chunk.RecordID,
			ChunkID:     chunk.ID,
			Text:        chunk.Content,
			HeadingPath: chunk.HeadingPath,
			Source:      record.Source,
			Tags:        record.Tags,
			Rank:        len(results) + 1,
			FinalScore:  entry.FinalScore,
			Breakdown: types.ScoreBreakdown{
				KeywordScore:  entry.KeywordScore,
				VectorScore:   entry.VectorScore,
				KeywordWeight: entry.KeywordWeight,
				VectorWeight:  entry.VectorWeight,
			},
		})
	}

	return results, nil
}

// searchVector embeds the query under the short timeout and runs similarity
// search. Provider trouble returns no candidates; dimension mismatch is a
// configuration error and propagates; corruption triggers one automatic
// rebuild before giving up on the vector side.
func (e *Engine) searchVector(ctx context.Context, query string, limit int) ([]storage.VectorResult, error) {
	embedCtx, cancel := context.WithTimeout(ctx, e.config.QueryEmbedTimeout)
	defer cancel()

	emb, err := e.embed.GenerateEmbedding(embedCtx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		e.logger.Debug("query embedding unavailable, keyword-only recall", "error", err)
		return nil, nil
	}

	hits, err := e.storage.SearchVector(ctx, emb.Vector, e.embed.Model(), limit)
	if err == nil {
		return hits, nil
	}
	if errors.Is(err, types.ErrDimensionMismatch) {
		return nil, err
	}
	if errors.Is(err, types.ErrIndexCorruption) {
		e.logger.Warn("vector store corruption detected during recall", "error", err)
		if e.repairIndex(ctx) {
			if hits, retryErr := e.storage.SearchVector(ctx, emb.Vector, e.embed.Model(), limit); retryErr == nil {
				return hits, nil
			}
		}
		// Serve keyword-only rather than refusing the query.
		return nil, nil
	}
	return nil, fmt.Errorf("vector search failed: %w", err)
}

// repairIndex runs one automatic rebuild in response to detected corruption.
// Concurrent repair attempts collapse into one; a failed rebuild marks the
// engine degraded but leaves it serving.
func (e *Engine) repairIndex(ctx context.Context) bool {
	if !e.repairing.CompareAndSwap(false, true) {
		return false
	}
	defer e.repairing.Store(false)

	if _, err := e.manager.Reindex(ctx); err != nil {
		e.degraded.Store(true)
		e.logger.Error("automatic rebuild failed, serving stale results", "error", err)
		return false
	}
	e.degraded.Store(false)
	return true
}

// Forget removes a record and every derived artifact: chunks and vectors by
// cascade, keyword postings explicitly.
func (e *Engine) Forget(ctx context.Context, recordID string) error {
	tx, err := e.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	chunks, err := tx.ListChunksByRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if err := tx.DeleteRecord(ctx, recordID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	chunkIDs := make([]int64, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
	}
	building := e.manager.BuildingIndex()
	idx := e.index.Load()
	idx.RemoveBatch(chunkIDs)
	if building != nil && building != idx {
		building.RemoveBatch(chunkIDs)
	}

	return nil
}

// Reindex rebuilds the keyword index and backfills missing vectors
func (e *Engine) Reindex(ctx context.Context) (*types.ReindexReport, error) {
	return e.manager.Reindex(ctx)
}

// Get returns a stored record by id
func (e *Engine) Get(ctx context.Context, recordID string) (*types.MemoryRecord, error) {
	record, err := e.storage.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return recordToTypes(record), nil
}

// Count returns the number of stored records
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.storage.CountRecords(ctx)
}

// Status reports engine health and store statistics
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	status := &Status{
		Generation:   e.manager.Generation(),
		ReindexState: e.manager.State().String(),
		Provider:     e.embed.Provider(),
		Model:        e.embed.Model(),
		CoolingDown:  e.gate.CoolingDown(),
		Degraded:     e.degraded.Load(),
	}

	var err error
	if status.Records, err = e.storage.CountRecords(ctx); err != nil {
		return nil, err
	}
	if status.Chunks, err = e.storage.CountChunks(ctx); err != nil {
		return nil, err
	}
	if status.Embeddings, err = e.storage.CountEmbeddings(ctx); err != nil {
		return nil, err
	}
	if status.CacheEntries, err = e.storage.CountCacheEntries(ctx); err != nil {
		return nil, err
	}

	return status, nil
}

// recordToTypes converts a storage row to the public record shape
func recordToTypes(record *storage.Record) *types.MemoryRecord {
	return &types.MemoryRecord{
		ID:        record.ID,
		Content:   record.Content,
		Source:    record.Source,
		Tags:      record.Tags,
		CreatedAt: record.CreatedAt,
	}
}
