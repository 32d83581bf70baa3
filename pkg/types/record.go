package types

import (
	"errors"
	"time"
)

// MemoryRecord is an immutable unit of stored knowledge. Records are created
// by Store, read by Recall, and removed by Forget; there are no partial edits.
type MemoryRecord struct {
	ID        string
	Content   string
	Source    string
	Tags      []string
	CreatedAt time.Time
}

// Metadata carries optional attributes attached to a record at store time.
type Metadata struct {
	Source string
	Tags   []string
}

// Chunk is a retrievable sub-unit of a record produced by the chunker.
// A record owns 1..N chunks; chunks never outlive their parent record.
type Chunk struct {
	ID       int64
	RecordID string
	Ordinal  int
	Text     string

	// HeadingPath is the heading lineage the chunk was found under,
	// joined with " > " (e.g. "Setup > Database"). Empty for plain text.
	HeadingPath string

	CreatedAt time.Time
}

// Validate checks structural invariants on a chunk before it is persisted.
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.RecordID == "" {
		return errors.New("chunk must reference a parent record")
	}
	if c.Ordinal < 0 {
		return errors.New("chunk ordinal must be non-negative")
	}
	return nil
}
