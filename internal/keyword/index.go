package keyword

import (
	"math"
	"sort"
	"sync"
	"time"
)

// BM25 parameters
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// TieBreak selects how equal-scored results are ordered
type TieBreak int

const (
	// TieBreakNewestFirst orders equal scores by most recent chunk first,
	// then by ascending chunk id
	TieBreakNewestFirst TieBreak = iota
	// TieBreakOldestFirst orders equal scores by oldest chunk first,
	// then by ascending chunk id
	TieBreakOldestFirst
)

// Document is a chunk as seen by the keyword index
type Document struct {
	ChunkID   int64
	Text      string
	CreatedAt time.Time
}

// Result is a scored match. Scores are normalized against the best match of
// the result set, so the top result always scores 1.0.
type Result struct {
	ChunkID int64
	Score   float64
}

// docEntry holds per-document state
type docEntry struct {
	length    int
	createdAt time.Time
}

// Index is one BM25 generation over the live chunk set. Incremental Add and
// Remove mutate the current generation under a write lock; a reindex builds a
// fresh Index from scratch and publishes it with a single pointer swap.
type Index struct {
	mu          sync.RWMutex
	generation  uint64
	postings    map[string]map[int64]int // term -> chunk id -> term frequency
	docs        map[int64]docEntry
	totalLength int

	k1       float64
	b        float64
	tieBreak TieBreak
}

// IndexOption configures an Index
type IndexOption func(*Index)

// WithK1 overrides the BM25 term-frequency saturation parameter
func WithK1(k1 float64) IndexOption {
	return func(idx *Index) {
		if k1 > 0 {
			idx.k1 = k1
		}
	}
}

// WithB overrides the BM25 length-normalization parameter
func WithB(b float64) IndexOption {
	return func(idx *Index) {
		if b >= 0 && b <= 1 {
			idx.b = b
		}
	}
}

// WithTieBreak sets the equal-score ordering policy
func WithTieBreak(tb TieBreak) IndexOption {
	return func(idx *Index) {
		idx.tieBreak = tb
	}
}

// NewIndex creates an empty index generation
func NewIndex(generation uint64, opts ...IndexOption) *Index {
	idx := &Index{
		generation: generation,
		postings:   make(map[string]map[int64]int),
		docs:       make(map[int64]docEntry),
		k1:         DefaultK1,
		b:          DefaultB,
		tieBreak:   TieBreakNewestFirst,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build constructs a fully populated index generation from a chunk snapshot
func Build(generation uint64, docs []Document, opts ...IndexOption) *Index {
	idx := NewIndex(generation, opts...)
	for _, doc := range docs {
		idx.Add(doc)
	}
	return idx
}

// Generation returns the generation number this index was built as
func (idx *Index) Generation() uint64 {
	return idx.generation
}

// DocCount returns the number of indexed chunks
func (idx *Index) DocCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docs)
}

// Add indexes a chunk. Re-adding an already indexed chunk id replaces its
// previous postings.
func (idx *Index) Add(doc Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.docs[doc.ChunkID]; exists {
		idx.removeLocked(doc.ChunkID)
	}

	tokens := Tokenize(doc.Text)
	for _, token := range tokens {
		termDocs, ok := idx.postings[token]
		if !ok {
			termDocs = make(map[int64]int)
			idx.postings[token] = termDocs
		}
		termDocs[doc.ChunkID]++
	}

	idx.docs[doc.ChunkID] = docEntry{length: len(tokens), createdAt: doc.CreatedAt}
	idx.totalLength += len(tokens)
}

// Remove drops a chunk from the index. Removing an unknown id is a no-op.
func (idx *Index) Remove(chunkID int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(chunkID)
}

// RemoveBatch drops several chunks in one lock acquisition
func (idx *Index) RemoveBatch(chunkIDs []int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range chunkIDs {
		idx.removeLocked(id)
	}
}

// removeLocked removes a chunk. Caller holds the write lock.
func (idx *Index) removeLocked(chunkID int64) {
	entry, exists := idx.docs[chunkID]
	if !exists {
		return
	}

	for term, termDocs := range idx.postings {
		if _, ok := termDocs[chunkID]; ok {
			delete(termDocs, chunkID)
			if len(termDocs) == 0 {
				delete(idx.postings, term)
			}
		}
	}

	delete(idx.docs, chunkID)
	idx.totalLength -= entry.length
}

// Search scores the query against the index with BM25 and returns up to
// limit results, best first. Scores are normalized by the top raw score of
// the result set. An empty or stopword-free query returns no results.
func (idx *Index) Search(query string, limit int) []Result {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	docCount := len(idx.docs)
	if docCount == 0 {
		return nil
	}
	avgLength := float64(idx.totalLength) / float64(docCount)

	scores := make(map[int64]float64)
	for _, term := range terms {
		termDocs, ok := idx.postings[term]
		if !ok {
			continue
		}

		df := float64(len(termDocs))
		idf := math.Log((float64(docCount)-df+0.5)/(df+0.5) + 1)

		for chunkID, tf := range termDocs {
			docLength := float64(idx.docs[chunkID].length)
			lengthNorm := 1 - idx.b + idx.b*docLength/avgLength
			score := idf * (float64(tf) * (idx.k1 + 1)) / (float64(tf) + idx.k1*lengthNorm)
			scores[chunkID] += score
		}
	}

	if len(scores) == 0 {
		return nil
	}

	results := make([]Result, 0, len(scores))
	for chunkID, score := range scores {
		results = append(results, Result{ChunkID: chunkID, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ti := idx.docs[results[i].ChunkID].createdAt
		tj := idx.docs[results[j].ChunkID].createdAt
		if !ti.Equal(tj) {
			if idx.tieBreak == TieBreakOldestFirst {
				return ti.Before(tj)
			}
			return ti.After(tj)
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	// Normalize against the best raw score of this result set.
	top := results[0].Score
	if top > 0 {
		for i := range results {
			results[i].Score /= top
		}
	}

	return results
}
