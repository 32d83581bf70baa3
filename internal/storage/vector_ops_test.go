package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/memcontext-mcp/pkg/types"
)

func TestSerializeDeserializeVector(t *testing.T) {
	original := []float32{1.5, -2.25, 0, 3.14159}
	blob := serializeVector(original)
	assert.Len(t, blob, len(original)*4)

	restored := deserializeVector(blob)
	assert.Equal(t, original, restored)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func seedChunkWithVector(t *testing.T, store *SQLiteStorage, recordID string, ordinal int, vector []float32, model string) int64 {
	t.Helper()
	ctx := context.Background()

	chunk := &Chunk{RecordID: recordID, Ordinal: ordinal, Content: "chunk"}
	require.NoError(t, store.InsertChunk(ctx, chunk))
	require.NoError(t, store.UpsertEmbedding(ctx, &Embedding{
		ChunkID:   chunk.ID,
		Vector:    serializeVector(vector),
		Dimension: len(vector),
		Provider:  "local",
		Model:     model,
	}))
	return chunk.ID
}

func TestSearchVectorRanksBySimilarity(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, &Record{ID: "rec-1", Content: "text"}))
	close1 := seedChunkWithVector(t, store, "rec-1", 0, []float32{1, 0, 0}, "m")
	close2 := seedChunkWithVector(t, store, "rec-1", 1, []float32{0.9, 0.1, 0}, "m")
	far := seedChunkWithVector(t, store, "rec-1", 2, []float32{-1, 0, 0}, "m")

	results, err := store.SearchVector(ctx, []float32{1, 0, 0}, "m", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, close1, results[0].ChunkID)
	assert.Equal(t, close2, results[1].ChunkID)
	assert.Equal(t, far, results[2].ChunkID)

	// Scores are mapped into [0, 1]: identical -> 1, opposite -> 0.
	assert.InDelta(t, 1.0, results[0].SimilarityScore, 0.0001)
	assert.InDelta(t, 0.0, results[2].SimilarityScore, 0.0001)
}

func TestSearchVectorRespectsLimit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, &Record{ID: "rec-1", Content: "text"}))
	for i := 0; i < 5; i++ {
		seedChunkWithVector(t, store, "rec-1", i, []float32{1, float32(i)}, "m")
	}

	results, err := store.SearchVector(ctx, []float32{1, 0}, "m", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchVectorSkipsZeroMagnitude(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, &Record{ID: "rec-1", Content: "text"}))
	seedChunkWithVector(t, store, "rec-1", 0, []float32{0, 0, 0}, "m")
	live := seedChunkWithVector(t, store, "rec-1", 1, []float32{1, 0, 0}, "m")

	results, err := store.SearchVector(ctx, []float32{1, 0, 0}, "m", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, live, results[0].ChunkID)
}

func TestSearchVectorModelMismatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, &Record{ID: "rec-1", Content: "text"}))
	seedChunkWithVector(t, store, "rec-1", 0, []float32{1, 0}, "model-a")

	_, err := store.SearchVector(ctx, []float32{1, 0}, "model-b", 10)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSearchVectorDimensionMismatch(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRecord(ctx, &Record{ID: "rec-1", Content: "text"}))
	seedChunkWithVector(t, store, "rec-1", 0, []float32{1, 0, 0}, "m")

	_, err := store.SearchVector(ctx, []float32{1, 0}, "m", 10)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestSearchVectorEmptyStore(t *testing.T) {
	store := newTestStorage(t)

	results, err := store.SearchVector(context.Background(), []float32{1, 0}, "m", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
