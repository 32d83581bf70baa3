package types

import "errors"

// Engine error taxonomy. Cache and embedding failures are absorbed into
// degraded-mode behavior; only these structural conditions propagate.
var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrProviderUnavailable indicates an embedding call failed or timed
	// out. Callers fall back to keyword-only scoring; it is never fatal
	// to Store or Recall.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrDimensionMismatch indicates a vector's dimensionality or model id
	// disagrees with the store's configured model.
	ErrDimensionMismatch = errors.New("embedding dimension or model mismatch")

	// ErrIndexCorruption indicates a keyword or vector consistency check
	// failed. The engine responds with an automatic reindex.
	ErrIndexCorruption = errors.New("index corruption detected")
)
