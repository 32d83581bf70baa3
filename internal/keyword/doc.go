// Package keyword implements an in-memory BM25 index over memory chunks.
//
// The index is organized as generations. The live generation accepts
// incremental Add and Remove calls under a write lock; queries take a read
// lock, so concurrent recalls never block each other. A reindex builds a
// complete replacement generation off to the side with Build and publishes
// it atomically, leaving in-flight queries on the generation they started
// with.
//
// The durable source of postings is the chunks table in storage; every
// generation is reconstructable from it, so the index itself is never
// persisted.
//
// Scoring uses BM25 with k1=1.2 and b=0.75 by default. Raw scores are
// normalized against the best score of each result set, putting keyword
// scores on the same [0, 1] scale the vector side uses so the two can be
// merged by weighted sum. Equal scores are ordered newest chunk first, then
// by ascending chunk id; the policy is configurable per index.
package keyword
