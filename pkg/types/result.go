package types

// ScoreBreakdown exposes the per-side contributions behind a final score.
// Weights are the normalized values actually used for the merge.
type ScoreBreakdown struct {
	KeywordScore  float64
	VectorScore   float64
	KeywordWeight float64
	VectorWeight  float64
}

// RecallResult is one ranked entry returned by Recall.
type RecallResult struct {
	RecordID    string
	ChunkID     int64
	Text        string
	HeadingPath string
	Source      string
	Tags        []string
	Rank        int
	FinalScore  float64
	Breakdown   ScoreBreakdown
}

// ReindexReport summarizes a completed reindex cycle. A cycle with
// VectorsFailed > 0 (or KeywordOnly set) is a partial success: the keyword
// side is fully rebuilt and recall remains available for every chunk.
type ReindexReport struct {
	ChunksReindexed   int
	VectorsBackfilled int
	VectorsFailed     int

	// KeywordOnly is set when the embedding provider was unavailable for
	// the whole cycle and no backfill was attempted.
	KeywordOnly bool

	// Generation is the keyword index generation published by this cycle.
	Generation uint64
}
