// Package types defines the public data model shared across the memory engine.
//
// The core unit is a MemoryRecord: an immutable piece of stored knowledge
// (a conversation fact, a note, a document). Records are split into Chunks
// for indexing; recall returns RecallResults that reference the owning
// record and carry the hybrid relevance score with its breakdown.
//
// # Error Taxonomy
//
// The engine surfaces four typed error conditions:
//
//   - ErrNotFound: a lookup or forget referenced a record that does not exist
//   - ErrProviderUnavailable: the embedding provider failed or timed out;
//     operations degrade to keyword-only scoring rather than failing
//   - ErrDimensionMismatch: a vector's model or dimensionality disagrees
//     with the store's configuration; never silently coerced
//   - ErrIndexCorruption: an internal consistency check failed; triggers an
//     automatic reindex rather than a crash
//
// Use errors.Is to test for these conditions on wrapped errors.
package types
