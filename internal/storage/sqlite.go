package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dshills/memcontext-mcp/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a SQLiteStorage
type Option func(*SQLiteStorage)

// WithLogger sets the logger used for non-fatal storage events
func WithLogger(logger *slog.Logger) Option {
	return func(s *SQLiteStorage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s := &SQLiteStorage{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// encodeTags serializes a tag slice to a JSON column value
func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(data), nil
}

// decodeTags deserializes a JSON tags column value
func decodeTags(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	return tags, nil
}

// Record operations

// createRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createRecordWithQuerier(ctx context.Context, q querier, record *Record) error {
	tags, err := encodeTags(record.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO records (id, content, source, tags, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := record.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	_, err = q.ExecContext(ctx, query, record.ID, record.Content, record.Source, tags, now)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	record.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateRecord(ctx context.Context, record *Record) error {
	return s.createRecordWithQuerier(ctx, s.querier(), record)
}

// getRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getRecordWithQuerier(ctx context.Context, q querier, recordID string) (*Record, error) {
	query := `
		SELECT id, content, source, tags, created_at
		FROM records
		WHERE id = ?
	`
	var record Record
	var source sql.NullString
	var tags string
	err := q.QueryRowContext(ctx, query, recordID).Scan(
		&record.ID, &record.Content, &source, &tags, &record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if source.Valid {
		record.Source = source.String
	}
	record.Tags, err = decodeTags(tags)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *SQLiteStorage) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	return s.getRecordWithQuerier(ctx, s.querier(), recordID)
}

// deleteRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteRecordWithQuerier(ctx context.Context, q querier, recordID string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteRecord(ctx context.Context, recordID string) error {
	return s.deleteRecordWithQuerier(ctx, s.querier(), recordID)
}

// listRecordsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listRecordsWithQuerier(ctx context.Context, q querier) ([]*Record, error) {
	query := `
		SELECT id, content, source, tags, created_at
		FROM records
		ORDER BY created_at DESC, id DESC
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]*Record, 0)
	for rows.Next() {
		var record Record
		var source sql.NullString
		var tags string
		if err := rows.Scan(&record.ID, &record.Content, &source, &tags, &record.CreatedAt); err != nil {
			return nil, err
		}
		if source.Valid {
			record.Source = source.String
		}
		record.Tags, err = decodeTags(tags)
		if err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) ListRecords(ctx context.Context) ([]*Record, error) {
	return s.listRecordsWithQuerier(ctx, s.querier())
}

// countWithQuerier runs a COUNT(*) query
func countWithQuerier(ctx context.Context, q querier, query string) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStorage) CountRecords(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "SELECT COUNT(*) FROM records")
}

// Chunk operations

// insertChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) insertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	query := `
		INSERT INTO chunks (record_id, ordinal, content, heading_path, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	now := chunk.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	err := q.QueryRowContext(ctx, query,
		chunk.RecordID, chunk.Ordinal, chunk.Content, chunk.HeadingPath, now,
	).Scan(&chunk.ID)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	chunk.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) InsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.insertChunkWithQuerier(ctx, s.querier(), chunk)
}

// scanChunkRows collects chunk rows
func scanChunkRows(rows *sql.Rows) ([]*Chunk, error) {
	chunks := make([]*Chunk, 0)
	for rows.Next() {
		var chunk Chunk
		err := rows.Scan(
			&chunk.ID, &chunk.RecordID, &chunk.Ordinal,
			&chunk.Content, &chunk.HeadingPath, &chunk.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// getChunkWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID int64) (*Chunk, error) {
	query := `
		SELECT id, record_id, ordinal, content, heading_path, created_at
		FROM chunks
		WHERE id = ?
	`
	var chunk Chunk
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&chunk.ID, &chunk.RecordID, &chunk.Ordinal,
		&chunk.Content, &chunk.HeadingPath, &chunk.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), chunkID)
}

// getChunksBatchWithQuerier is the internal implementation that uses a querier.
// Missing IDs are silently omitted from the result.
func (s *SQLiteStorage) getChunksBatchWithQuerier(ctx context.Context, q querier, chunkIDs []int64) ([]*Chunk, error) {
	if len(chunkIDs) == 0 {
		return []*Chunk{}, nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]interface{}, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, record_id, ordinal, content, heading_path, created_at
		FROM chunks
		WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanChunkRows(rows)
}

func (s *SQLiteStorage) GetChunksBatch(ctx context.Context, chunkIDs []int64) ([]*Chunk, error) {
	return s.getChunksBatchWithQuerier(ctx, s.querier(), chunkIDs)
}

// listChunksByRecordWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listChunksByRecordWithQuerier(ctx context.Context, q querier, recordID string) ([]*Chunk, error) {
	query := `
		SELECT id, record_id, ordinal, content, heading_path, created_at
		FROM chunks
		WHERE record_id = ?
		ORDER BY ordinal
	`
	rows, err := q.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanChunkRows(rows)
}

func (s *SQLiteStorage) ListChunksByRecord(ctx context.Context, recordID string) ([]*Chunk, error) {
	return s.listChunksByRecordWithQuerier(ctx, s.querier(), recordID)
}

// listAllChunksWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listAllChunksWithQuerier(ctx context.Context, q querier) ([]*Chunk, error) {
	query := `
		SELECT id, record_id, ordinal, content, heading_path, created_at
		FROM chunks
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanChunkRows(rows)
}

func (s *SQLiteStorage) ListAllChunks(ctx context.Context) ([]*Chunk, error) {
	return s.listAllChunksWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) CountChunks(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "SELECT COUNT(*) FROM chunks")
}

// Embedding operations

// upsertEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	if embedding.ID == 0 {
		id, err := result.LastInsertId()
		if err == nil {
			embedding.ID = id
		}
	}

	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

// getEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) (*Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var embedding Embedding
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&embedding.ID, &embedding.ChunkID, &embedding.Vector,
		&embedding.Dimension, &embedding.Provider, &embedding.Model,
		&embedding.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &embedding, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// deleteEmbeddingWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM embeddings WHERE chunk_id = ?`, chunkID)
	return err
}

func (s *SQLiteStorage) DeleteEmbedding(ctx context.Context, chunkID int64) error {
	return s.deleteEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// listChunksMissingEmbeddingWithQuerier returns chunks with no usable vector
// for the given model: no vector at all, a vector for a different model, or
// a blob that does not match its declared dimension.
func (s *SQLiteStorage) listChunksMissingEmbeddingWithQuerier(ctx context.Context, q querier, model string) ([]*Chunk, error) {
	query := `
		SELECT c.id, c.record_id, c.ordinal, c.content, c.heading_path, c.created_at
		FROM chunks c
		LEFT JOIN embeddings e ON c.id = e.chunk_id
			AND e.model = ?
			AND LENGTH(e.vector) = e.dimension * 4
		WHERE e.id IS NULL
		ORDER BY c.id
	`
	rows, err := q.QueryContext(ctx, query, model)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanChunkRows(rows)
}

func (s *SQLiteStorage) ListChunksMissingEmbedding(ctx context.Context, model string) ([]*Chunk, error) {
	return s.listChunksMissingEmbeddingWithQuerier(ctx, s.querier(), model)
}

func (s *SQLiteStorage) CountEmbeddings(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "SELECT COUNT(*) FROM embeddings")
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, queryVector []float32, model string, limit int) ([]VectorResult, error) {
	return s.searchVectorWithQuerier(ctx, s.querier(), queryVector, model, limit)
}

// Embedding cache operations

// getCacheEntryWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getCacheEntryWithQuerier(ctx context.Context, q querier, contentHash string) ([]float32, error) {
	var blob []byte
	err := q.QueryRowContext(ctx,
		`SELECT vector FROM embedding_cache WHERE content_hash = ?`, contentHash,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Touch for LRU eviction ordering. A failed touch is not fatal.
	if _, err := q.ExecContext(ctx,
		`UPDATE embedding_cache SET last_access = ? WHERE content_hash = ?`,
		time.Now().UTC(), contentHash,
	); err != nil {
		s.logger.Warn("failed to touch cache entry", "hash", contentHash, "error", err)
	}

	return deserializeVector(blob), nil
}

func (s *SQLiteStorage) GetCacheEntry(ctx context.Context, contentHash string) ([]float32, error) {
	return s.getCacheEntryWithQuerier(ctx, s.querier(), contentHash)
}

// putCacheEntryWithQuerier is the internal implementation that uses a querier.
// When maxEntries > 0 the least recently accessed entries beyond the cap are
// evicted after the insert.
func (s *SQLiteStorage) putCacheEntryWithQuerier(ctx context.Context, q querier, contentHash string, vector []float32, maxEntries int) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO embedding_cache (content_hash, vector, dimension, created_at, last_access)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			last_access = excluded.last_access
	`
	_, err := q.ExecContext(ctx, query, contentHash, serializeVector(vector), len(vector), now, now)
	if err != nil {
		return fmt.Errorf("failed to put cache entry: %w", err)
	}

	if maxEntries > 0 {
		evict := `
			DELETE FROM embedding_cache
			WHERE content_hash IN (
				SELECT content_hash FROM embedding_cache
				ORDER BY last_access DESC
				LIMIT -1 OFFSET ?
			)
		`
		if _, err := q.ExecContext(ctx, evict, maxEntries); err != nil {
			return fmt.Errorf("failed to evict cache entries: %w", err)
		}
	}

	return nil
}

func (s *SQLiteStorage) PutCacheEntry(ctx context.Context, contentHash string, vector []float32, maxEntries int) error {
	return s.putCacheEntryWithQuerier(ctx, s.querier(), contentHash, vector, maxEntries)
}

func (s *SQLiteStorage) CountCacheEntries(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, s.querier(), "SELECT COUNT(*) FROM embedding_cache")
}

// Consistency operations

// CheckConsistency verifies structural invariants of the store. A violation
// is reported as ErrIndexCorruption so callers can trigger a rebuild.
func (s *SQLiteStorage) CheckConsistency(ctx context.Context) error {
	// Orphaned chunks point at records that no longer exist.
	orphanChunks, err := countWithQuerier(ctx, s.querier(), `
		SELECT COUNT(*) FROM chunks c
		LEFT JOIN records r ON c.record_id = r.id
		WHERE r.id IS NULL
	`)
	if err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}
	if orphanChunks > 0 {
		return fmt.Errorf("%w: %d chunks reference missing records", types.ErrIndexCorruption, orphanChunks)
	}

	// Orphaned embeddings point at chunks that no longer exist.
	orphanEmbeddings, err := countWithQuerier(ctx, s.querier(), `
		SELECT COUNT(*) FROM embeddings e
		LEFT JOIN chunks c ON e.chunk_id = c.id
		WHERE c.id IS NULL
	`)
	if err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}
	if orphanEmbeddings > 0 {
		return fmt.Errorf("%w: %d embeddings reference missing chunks", types.ErrIndexCorruption, orphanEmbeddings)
	}

	// Every vector blob must match its declared dimension.
	malformed, err := countWithQuerier(ctx, s.querier(), `
		SELECT COUNT(*) FROM embeddings
		WHERE LENGTH(vector) != dimension * 4
	`)
	if err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}
	if malformed > 0 {
		return fmt.Errorf("%w: %d vectors do not match their declared dimension", types.ErrIndexCorruption, malformed)
	}

	return nil
}

// Status reports aggregate store statistics
func (s *SQLiteStorage) Status(ctx context.Context) (*StoreStatus, error) {
	status := &StoreStatus{}

	var err error
	if status.RecordsCount, err = s.CountRecords(ctx); err != nil {
		return nil, err
	}
	if status.ChunksCount, err = s.CountChunks(ctx); err != nil {
		return nil, err
	}
	if status.EmbeddingsCount, err = s.CountEmbeddings(ctx); err != nil {
		return nil, err
	}
	if status.CacheEntries, err = s.CountCacheEntries(ctx); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DBSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) CreateRecord(ctx context.Context, record *Record) error {
	return t.storage.createRecordWithQuerier(ctx, t.querier(), record)
}

func (t *sqliteTx) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	return t.storage.getRecordWithQuerier(ctx, t.querier(), recordID)
}

func (t *sqliteTx) DeleteRecord(ctx context.Context, recordID string) error {
	return t.storage.deleteRecordWithQuerier(ctx, t.querier(), recordID)
}

func (t *sqliteTx) ListRecords(ctx context.Context) ([]*Record, error) {
	return t.storage.listRecordsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CountRecords(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "SELECT COUNT(*) FROM records")
}

func (t *sqliteTx) InsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.insertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) GetChunksBatch(ctx context.Context, chunkIDs []int64) ([]*Chunk, error) {
	return t.storage.getChunksBatchWithQuerier(ctx, t.querier(), chunkIDs)
}

func (t *sqliteTx) ListChunksByRecord(ctx context.Context, recordID string) ([]*Chunk, error) {
	return t.storage.listChunksByRecordWithQuerier(ctx, t.querier(), recordID)
}

func (t *sqliteTx) ListAllChunks(ctx context.Context) ([]*Chunk, error) {
	return t.storage.listAllChunksWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) CountChunks(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "SELECT COUNT(*) FROM chunks")
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) DeleteEmbedding(ctx context.Context, chunkID int64) error {
	return t.storage.deleteEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) ListChunksMissingEmbedding(ctx context.Context, model string) ([]*Chunk, error) {
	return t.storage.listChunksMissingEmbeddingWithQuerier(ctx, t.querier(), model)
}

func (t *sqliteTx) CountEmbeddings(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "SELECT COUNT(*) FROM embeddings")
}

func (t *sqliteTx) SearchVector(ctx context.Context, queryVector []float32, model string, limit int) ([]VectorResult, error) {
	return t.storage.searchVectorWithQuerier(ctx, t.querier(), queryVector, model, limit)
}

func (t *sqliteTx) GetCacheEntry(ctx context.Context, contentHash string) ([]float32, error) {
	return t.storage.getCacheEntryWithQuerier(ctx, t.querier(), contentHash)
}

func (t *sqliteTx) PutCacheEntry(ctx context.Context, contentHash string, vector []float32, maxEntries int) error {
	return t.storage.putCacheEntryWithQuerier(ctx, t.querier(), contentHash, vector, maxEntries)
}

func (t *sqliteTx) CountCacheEntries(ctx context.Context) (int, error) {
	return countWithQuerier(ctx, t.querier(), "SELECT COUNT(*) FROM embedding_cache")
}

func (t *sqliteTx) CheckConsistency(ctx context.Context) error {
	return t.storage.CheckConsistency(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
