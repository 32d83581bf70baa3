// Package ranker merges keyword and vector search results into a single
// ranking by weighted score sum. Both inputs arrive already normalized to
// [0, 1]; a chunk present on only one side scores zero on the other. Weights
// are normalized to sum to one before merging, so callers may pass any
// non-negative pair.
package ranker

import (
	"sort"
	"time"

	"github.com/dshills/memcontext-mcp/internal/keyword"
)

// Scored is one side's opinion about a chunk
type Scored struct {
	ChunkID int64
	Score   float64
}

// Merged is a chunk's combined ranking with per-side breakdown
type Merged struct {
	ChunkID       int64
	FinalScore    float64
	KeywordScore  float64
	VectorScore   float64
	KeywordWeight float64
	VectorWeight  float64
}

// NormalizeWeights scales a weight pair to sum to one. Negative weights are
// treated as zero; if both sides end up zero the split defaults to 0.5/0.5.
func NormalizeWeights(keywordWeight, vectorWeight float64) (float64, float64) {
	if keywordWeight < 0 {
		keywordWeight = 0
	}
	if vectorWeight < 0 {
		vectorWeight = 0
	}

	total := keywordWeight + vectorWeight
	if total == 0 {
		return 0.5, 0.5
	}
	return keywordWeight / total, vectorWeight / total
}

// Rank merges both result sets and returns up to topK chunks, best first.
// createdAt supplies chunk timestamps for tie-breaking; chunks missing from
// it tie-break on id alone.
func Rank(keywordResults, vectorResults []Scored, keywordWeight, vectorWeight float64, topK int, tieBreak keyword.TieBreak, createdAt map[int64]time.Time) []Merged {
	kw, vw := NormalizeWeights(keywordWeight, vectorWeight)

	merged := make(map[int64]*Merged)
	for _, r := range keywordResults {
		merged[r.ChunkID] = &Merged{
			ChunkID:       r.ChunkID,
			KeywordScore:  r.Score,
			KeywordWeight: kw,
			VectorWeight:  vw,
		}
	}
	for _, r := range vectorResults {
		entry, ok := merged[r.ChunkID]
		if !ok {
			entry = &Merged{
				ChunkID:       r.ChunkID,
				KeywordWeight: kw,
				VectorWeight:  vw,
			}
			merged[r.ChunkID] = entry
		}
		entry.VectorScore = r.Score
	}

	results := make([]Merged, 0, len(merged))
	for _, entry := range merged {
		entry.FinalScore = kw*entry.KeywordScore + vw*entry.VectorScore
		results = append(results, *entry)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		ti := createdAt[results[i].ChunkID]
		tj := createdAt[results[j].ChunkID]
		if !ti.Equal(tj) {
			if tieBreak == keyword.TieBreakOldestFirst {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
