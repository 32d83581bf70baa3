// Package chunker splits stored documents into retrievable chunks.
//
// Text is divided along structural boundaries: markdown headings and
// paragraph breaks. A heading stays attached to its immediate body, and
// each chunk carries the heading lineage above it so callers can
// reconstruct context when presenting results.
//
// # Basic Usage
//
//	c := chunker.New(chunker.DefaultOptions())
//	chunks := c.Chunk(content)
//
//	for _, ch := range chunks {
//	    fmt.Printf("[%s] %d bytes\n", ch.HeadingPath, len(ch.Text))
//	}
//
// # Sizing
//
// Small adjacent blocks under the same heading are merged toward
// Options.TargetSize; blocks over Options.MaxSize are split on line
// boundaries. Capacities are in bytes, not tokens.
//
// # Determinism
//
// The same input always yields the same chunk boundaries. The embedding
// layer caches vectors by content hash, so boundary stability is what
// makes those cache hits possible across restarts.
package chunker
