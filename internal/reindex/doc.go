// Package reindex rebuilds the keyword index and backfills missing vector
// embeddings as one atomic operation from the caller's point of view.
//
// A rebuild moves through three states: Idle, Building, Swapping. During
// Building the manager snapshots the chunks table, constructs a complete
// replacement keyword generation, and embeds every chunk that lacks a vector
// for the current model. During Swapping the new generation is handed to the
// publish callback, which installs it with a single atomic pointer store.
// Queries running against the old generation finish undisturbed.
//
// Writes arriving mid-build are never lost: the replacement generation is
// exposed through BuildingIndex before the chunk snapshot is taken, and
// incremental writers apply their mutations to it alongside the live
// generation, so a record stored or forgotten during Building is reflected
// in the generation that gets published.
//
// Only one rebuild runs at a time, enforced by a compare-and-swap lock:
// a concurrent Reindex call returns ErrReindexInProgress immediately rather
// than queueing.
//
// Embedding failures are partial, never total: a failed batch falls back to
// per-chunk calls so one bad chunk cannot sink its batchmates, failures are
// counted and logged per chunk, the keyword generation is published
// regardless, and the report marks the run as keyword-only when no vector
// work succeeded.
package reindex
