package keyword

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"simple", "Hello World", []string{"hello", "world"}},
		{"punctuation", "foo, bar! (baz)", []string{"foo", "bar", "baz"}},
		{"numbers kept", "port 8080 open", []string{"port", "8080", "open"}},
		{"hyphens split", "well-known value", []string{"well", "known", "value"}},
		{"empty", "", nil},
		{"punctuation only", "... --- !!!", nil},
		{"unicode", "Grüße aus Köln", []string{"grüße", "aus", "köln"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSearchRanksRelevantFirst(t *testing.T) {
	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "The quick brown fox jumps over the lazy dog"})
	idx.Add(Document{ChunkID: 2, Text: "A lazy dog sleeps all day"})
	idx.Add(Document{ChunkID: 3, Text: "Cooking pasta requires boiling water"})

	results := idx.Search("fox", 10)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ChunkID)
	assert.Equal(t, 1.0, results[0].Score, "top result is normalized to 1")

	results = idx.Search("lazy dog", 10)
	require.Len(t, results, 2)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "some content"})

	assert.Empty(t, idx.Search("", 10))
	assert.Empty(t, idx.Search("!!! ...", 10))
}

func TestSearchEmptyIndex(t *testing.T) {
	idx := NewIndex(1)
	assert.Empty(t, idx.Search("anything", 10))
}

func TestSearchNoMatches(t *testing.T) {
	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "the quick brown fox"})

	assert.Empty(t, idx.Search("zebra", 10))
}

func TestSearchRespectsLimit(t *testing.T) {
	idx := NewIndex(1)
	for i := int64(1); i <= 10; i++ {
		idx.Add(Document{ChunkID: i, Text: fmt.Sprintf("common term plus unique%d", i)})
	}

	results := idx.Search("common term", 3)
	assert.Len(t, results, 3)
}

func TestRemoveDropsChunk(t *testing.T) {
	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "the quick brown fox"})
	idx.Add(Document{ChunkID: 2, Text: "a lazy dog"})

	require.Len(t, idx.Search("fox", 10), 1)

	idx.Remove(1)
	assert.Empty(t, idx.Search("fox", 10))
	assert.Equal(t, 1, idx.DocCount())

	// Removing an unknown id is a no-op.
	idx.Remove(999)
	assert.Equal(t, 1, idx.DocCount())
}

func TestRemoveBatch(t *testing.T) {
	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "alpha"})
	idx.Add(Document{ChunkID: 2, Text: "beta"})
	idx.Add(Document{ChunkID: 3, Text: "gamma"})

	idx.RemoveBatch([]int64{1, 3})
	assert.Equal(t, 1, idx.DocCount())
	assert.Empty(t, idx.Search("alpha", 10))
	assert.Len(t, idx.Search("beta", 10), 1)
}

func TestReAddReplacesPostings(t *testing.T) {
	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "original text about cats"})
	idx.Add(Document{ChunkID: 1, Text: "replacement text about dogs"})

	assert.Equal(t, 1, idx.DocCount())
	assert.Empty(t, idx.Search("cats", 10))
	assert.Len(t, idx.Search("dogs", 10), 1)
}

func TestTieBreakNewestFirst(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 1, Text: "identical text", CreatedAt: old})
	idx.Add(Document{ChunkID: 2, Text: "identical text", CreatedAt: recent})

	results := idx.Search("identical", 10)
	require.Len(t, results, 2)
	assert.Equal(t, int64(2), results[0].ChunkID, "newest chunk wins the tie")
	assert.Equal(t, int64(1), results[1].ChunkID)
}

func TestTieBreakOldestFirst(t *testing.T) {
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	idx := NewIndex(1, WithTieBreak(TieBreakOldestFirst))
	idx.Add(Document{ChunkID: 1, Text: "identical text", CreatedAt: old})
	idx.Add(Document{ChunkID: 2, Text: "identical text", CreatedAt: recent})

	results := idx.Search("identical", 10)
	require.Len(t, results, 2)
	assert.Equal(t, int64(1), results[0].ChunkID)
}

func TestTieBreakSameTimeFallsBackToID(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	idx := NewIndex(1)
	idx.Add(Document{ChunkID: 7, Text: "identical text", CreatedAt: ts})
	idx.Add(Document{ChunkID: 3, Text: "identical text", CreatedAt: ts})

	results := idx.Search("identical", 10)
	require.Len(t, results, 2)
	assert.Equal(t, int64(3), results[0].ChunkID, "equal timestamps fall back to ascending id")
}

func TestBuildFromSnapshot(t *testing.T) {
	docs := []Document{
		{ChunkID: 1, Text: "the quick brown fox"},
		{ChunkID: 2, Text: "a lazy dog"},
	}

	idx := Build(42, docs)
	assert.Equal(t, uint64(42), idx.Generation())
	assert.Equal(t, 2, idx.DocCount())
	assert.Len(t, idx.Search("fox", 10), 1)
}

func TestSearchDeterministic(t *testing.T) {
	idx := NewIndex(1)
	for i := int64(1); i <= 20; i++ {
		idx.Add(Document{ChunkID: i, Text: "shared words everywhere"})
	}

	first := idx.Search("shared words", 20)
	for run := 0; run < 5; run++ {
		assert.Equal(t, first, idx.Search("shared words", 20))
	}
}

func TestBM25PrefersRarerTerms(t *testing.T) {
	idx := NewIndex(1)
	// "common" appears everywhere, "rare" in one document.
	for i := int64(1); i <= 9; i++ {
		idx.Add(Document{ChunkID: i, Text: "common filler content"})
	}
	idx.Add(Document{ChunkID: 10, Text: "common rare content"})

	results := idx.Search("rare common", 10)
	require.NotEmpty(t, results)
	assert.Equal(t, int64(10), results[0].ChunkID, "document matching the rare term ranks first")
}
