// Package engine ties storage, chunking, embedding, keyword indexing, and
// ranking together into the memory interface: store, recall, forget, and
// reindex.
//
// Store chunks the content, persists the record and its chunks in one
// transaction, adds the chunks to the live keyword index, and then embeds
// them. The embedding step is best-effort: a provider outage leaves the
// chunks keyword-searchable and a later reindex backfills the vectors.
//
// Recall gathers candidates from both sides, widened beyond the requested
// result count, and merges them by weighted sum:
//
//	results, err := eng.Recall(ctx, "database timeout", engine.RecallOptions{TopK: 5})
//
// Per-call weights override the configured pair; passing KeywordWeight 0
// and VectorWeight 1 gives pure semantic search. The vector side degrades
// rather than fails: an unreachable provider, a cooling-down gate, or an
// expired query-embedding timeout all fall back to keyword-only ranking
// for that call. Only configuration errors (a model or dimension mismatch
// between the query and the stored vectors) propagate.
//
// Detected vector-store corruption triggers one automatic rebuild. If the
// rebuild fails the engine marks itself degraded and keeps serving keyword
// results from the last good generation.
//
// Forget deletes the record and all derived artifacts. Chunks and vectors
// go with the record by cascade; keyword postings are removed from the
// live generation explicitly. A forgotten record can never surface in a
// recall again, not even in degraded mode.
//
// Typical setup:
//
//	store, err := storage.NewSQLiteStorage(dbPath)
//	if err != nil { ... }
//	provider, err := embedder.NewFromEnv()
//	if err != nil { ... }
//	eng, err := engine.New(store, provider, engine.DefaultConfig())
package engine
