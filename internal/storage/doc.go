// Package storage persists memory records, their chunks, per-chunk vector
// embeddings, and the embedding cache in SQLite.
//
// # Schema
//
// Four tables carry the durable state:
//
//   - records: one row per stored memory, keyed by a ULID
//   - chunks: retrieval units derived from a record's content, cascade-deleted
//     with their record
//   - embeddings: at most one vector per chunk, tagged with the provider and
//     model that produced it
//   - embedding_cache: content-addressed vectors survived across restarts,
//     evicted least-recently-accessed first
//
// The chunks table is the single durable source of truth for retrieval: the
// in-memory keyword index is always reconstructable from it, and recall
// results are joined back against it row by row so deleted chunks can never
// surface.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("/path/to/memory.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	record := &storage.Record{ID: id, Content: text}
//	if err := store.CreateRecord(ctx, record); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Multi-row writes (a record plus its chunks, or a delete with index
// maintenance) go through BeginTx:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	if err := tx.CreateRecord(ctx, record); err != nil {
//	    return err
//	}
//	for _, chunk := range chunks {
//	    if err := tx.InsertChunk(ctx, chunk); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Vector Search
//
// SearchVector computes cosine similarity in Go over all stored vectors and
// maps scores from [-1, 1] into [0, 1]. A stored model id that differs from
// the query's model id is a configuration error, never a silent comparison.
// Zero-magnitude vectors are skipped and logged.
//
// # Build Modes
//
// Two SQLite drivers are supported behind build tags:
//
//	CGO_ENABLED=0 go build -tags "purego" ./...     # modernc.org/sqlite (default)
//	CGO_ENABLED=1 go build -tags "cgo_sqlite" ./... # mattn/go-sqlite3
//
// # Migrations
//
// Schema migrations are versioned with semver and applied on open. Each
// migration runs at most once; the applied version history lives in the
// schema_version table.
package storage
