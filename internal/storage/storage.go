package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting and querying memory data
type Storage interface {
	// Record operations
	CreateRecord(ctx context.Context, record *Record) error
	GetRecord(ctx context.Context, recordID string) (*Record, error)
	DeleteRecord(ctx context.Context, recordID string) error
	ListRecords(ctx context.Context) ([]*Record, error)
	CountRecords(ctx context.Context) (int, error)

	// Chunk operations
	InsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	GetChunksBatch(ctx context.Context, chunkIDs []int64) ([]*Chunk, error)
	ListChunksByRecord(ctx context.Context, recordID string) ([]*Chunk, error)
	ListAllChunks(ctx context.Context) ([]*Chunk, error)
	CountChunks(ctx context.Context) (int, error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)
	DeleteEmbedding(ctx context.Context, chunkID int64) error
	ListChunksMissingEmbedding(ctx context.Context, model string) ([]*Chunk, error)
	CountEmbeddings(ctx context.Context) (int, error)

	// Search operations
	SearchVector(ctx context.Context, queryVector []float32, model string, limit int) ([]VectorResult, error)

	// Embedding cache operations
	GetCacheEntry(ctx context.Context, contentHash string) ([]float32, error)
	PutCacheEntry(ctx context.Context, contentHash string, vector []float32, maxEntries int) error
	CountCacheEntries(ctx context.Context) (int, error)

	// Consistency operations
	CheckConsistency(ctx context.Context) error

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Record represents a stored memory record
type Record struct {
	ID        string // ULID
	Content   string
	Source    string
	Tags      []string
	CreatedAt time.Time
}

// Chunk represents a retrievable slice of a record
type Chunk struct {
	ID          int64
	RecordID    string
	Ordinal     int
	Content     string
	HeadingPath string
	CreatedAt   time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array, little-endian
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// VectorResult represents a result from vector similarity search.
// Similarity is cosine similarity mapped from [-1, 1] into [0, 1].
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// StoreStatus contains statistics about the memory store
type StoreStatus struct {
	RecordsCount    int
	ChunksCount     int
	EmbeddingsCount int
	CacheEntries    int
	DBSizeMB        float64
	Health          HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
}
