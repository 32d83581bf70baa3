package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/memcontext-mcp/pkg/types"
)

// searchVectorWithQuerier performs cosine similarity search in Go. Scores are
// mapped from cosine's [-1, 1] range into [0, 1] so they can be merged with
// keyword scores on a shared scale.
func (s *SQLiteStorage) searchVectorWithQuerier(ctx context.Context, q querier, queryVector []float32, model string, limit int) ([]VectorResult, error) {
	if len(queryVector) == 0 {
		return []VectorResult{}, nil
	}

	query := `
		SELECT e.chunk_id, e.vector, e.dimension, e.model
		FROM embeddings e
		INNER JOIN chunks c ON e.chunk_id = c.id
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]candidate, 0, 1000)
	for rows.Next() {
		var chunkID int64
		var blob []byte
		var dimension int
		var storedModel string
		if err := rows.Scan(&chunkID, &blob, &dimension, &storedModel); err != nil {
			return nil, err
		}

		if storedModel != model {
			return nil, fmt.Errorf("%w: store holds %q vectors, query uses %q",
				types.ErrDimensionMismatch, storedModel, model)
		}

		// A blob disagreeing with its own declared dimension is corruption,
		// not a configuration problem.
		if len(blob) != dimension*4 {
			return nil, fmt.Errorf("%w: chunk %d vector blob is %d bytes, declared dimension %d",
				types.ErrIndexCorruption, chunkID, len(blob), dimension)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			return nil, fmt.Errorf("%w: stored dimension %d, query dimension %d",
				types.ErrDimensionMismatch, len(vector), len(queryVector))
		}

		// A zero-magnitude vector has no direction to compare against.
		if isZeroVector(vector) {
			s.logger.Warn("skipping zero-magnitude vector in similarity search", "chunk_id", chunkID)
			continue
		}

		similarity := (cosineSimilarity(queryVector, vector) + 1) / 2
		candidates = append(candidates, candidate{chunkID: chunkID, score: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return buildVectorResults(candidates, limit), nil
}

// buildVectorResults creates VectorResult slice from candidates
func buildVectorResults(candidates []candidate, limit int) []VectorResult {
	// Handle negative or zero limit - return all candidates
	if limit <= 0 {
		limit = len(candidates)
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{
			ChunkID:         candidates[i].chunkID,
			SimilarityScore: candidates[i].score,
		}
	}
	return results
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// isZeroVector reports whether every component is zero
func isZeroVector(v []float32) bool {
	for _, val := range v {
		if val != 0 {
			return false
		}
	}
	return true
}

// candidate represents a chunk with its similarity score
type candidate struct {
	chunkID int64
	score   float64
}

// sortCandidates sorts candidates by score in descending order, breaking ties
// by chunk id for stable output
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].chunkID < candidates[j].chunkID
	})
}

// SerializeVector is an exported helper for callers that persist vectors
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for callers that read vectors
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
