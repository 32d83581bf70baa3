package chunker

import (
	"strings"
)

const (
	// DefaultTargetSize is the preferred chunk size in bytes.
	DefaultTargetSize = 400

	// DefaultMaxSize is the hard upper bound on chunk size; blocks larger
	// than this are split on line boundaries.
	DefaultMaxSize = 1200
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns the default chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
	}
}

// Chunk is one retrievable span produced from a document.
type Chunk struct {
	Text string

	// HeadingPath is the heading lineage this span falls under, nearest
	// heading included, joined with " > " (e.g. "Guide > Database").
	// Empty when the text appears before any heading.
	HeadingPath string
}

// Chunker splits free text into chunks along structural boundaries.
// Chunking is deterministic: identical input always yields identical
// chunk boundaries, which keeps embedding cache hits stable.
type Chunker struct {
	opts Options
}

// New creates a Chunker with the given options. Zero options select defaults.
func New(opts Options) *Chunker {
	if opts.TargetSize <= 0 {
		opts.TargetSize = DefaultTargetSize
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.MaxSize < opts.TargetSize {
		opts.MaxSize = opts.TargetSize
	}
	return &Chunker{opts: opts}
}

// Chunk splits content into chunks. Empty or whitespace-only input yields
// zero chunks and is not an error; any other input yields at least one.
func (c *Chunker) Chunk(content string) []Chunk {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	blocks := splitBlocks(content)
	return mergeBlocks(blocks, c.opts)
}

// block is an intermediate section of text with its heading lineage.
type block struct {
	text string
	path string
}

// headingLevel returns the markdown heading level of a line, or 0.
func headingLevel(line string) int {
	trimmed := strings.TrimSpace(line)
	n := 0
	for n < len(trimmed) && trimmed[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return 0
	}
	if n == len(trimmed) || trimmed[n] == ' ' || trimmed[n] == '\t' {
		return n
	}
	return 0
}

// headingText returns a heading line stripped of its marker.
func headingText(line string) string {
	trimmed := strings.TrimSpace(line)
	return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
}

// splitBlocks splits text on heading lines and blank-line boundaries,
// tracking the heading stack so each block knows its lineage. A heading
// line starts a new block and stays attached to its immediate body.
func splitBlocks(text string) []block {
	lines := strings.Split(text, "\n")

	var blocks []block
	var current []string
	var stack []string // heading lineage, index = level-1
	currentPath := ""

	flush := func() {
		if len(current) == 0 {
			return
		}
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			blocks = append(blocks, block{text: t, path: currentPath})
		}
		current = nil
	}

	prevEmpty := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if level := headingLevel(line); level > 0 {
			flush()
			// Truncate the stack to the parent lineage, then push this
			// heading; its own block and everything under it share the
			// full lineage.
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			for len(stack) < level-1 {
				stack = append(stack, "")
			}
			stack = append(stack, headingText(line))
			currentPath = strings.Join(stack, " > ")
			current = append(current, line)
			prevEmpty = false
			continue
		}

		if trimmed == "" {
			if prevEmpty && len(current) > 0 {
				flush()
				currentPath = strings.Join(stack, " > ")
			}
			prevEmpty = true
			current = append(current, line)
			continue
		}

		// A paragraph break after anything but a bare heading starts a
		// new block; a heading keeps its immediate body attached.
		if prevEmpty && len(current) > 0 && !endsWithHeading(current) {
			flush()
			currentPath = strings.Join(stack, " > ")
		}
		prevEmpty = false
		current = append(current, line)
	}
	flush()

	return blocks
}

// endsWithHeading reports whether the last non-blank accumulated line is a
// heading, meaning the next paragraph is its immediate body.
func endsWithHeading(lines []string) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		return headingLevel(lines[i]) > 0
	}
	return false
}

// mergeBlocks combines small adjacent blocks sharing a heading path and
// splits oversized ones.
func mergeBlocks(blocks []block, opts Options) []Chunk {
	var results []Chunk
	var accum block

	flushAccum := func() {
		t := strings.TrimSpace(accum.text)
		if t == "" {
			return
		}
		if len(t) > opts.MaxSize {
			results = append(results, hardSplit(t, accum.path, opts)...)
		} else {
			results = append(results, Chunk{Text: t, HeadingPath: accum.path})
		}
		accum = block{}
	}

	for _, b := range blocks {
		if accum.text == "" {
			accum = b
			continue
		}

		combined := accum.text + "\n\n" + b.text
		if accum.path == b.path && len(combined) <= opts.TargetSize {
			accum.text = combined
		} else {
			flushAccum()
			accum = b
		}
	}
	flushAccum()

	return results
}

// hardSplit breaks text exceeding MaxSize on line boundaries. Every piece
// inherits the original heading path.
func hardSplit(text, path string, opts Options) []Chunk {
	lines := strings.Split(text, "\n")
	var results []Chunk
	var current []string
	curLen := 0

	for _, line := range lines {
		if curLen+len(line) > opts.TargetSize && len(current) > 0 {
			t := strings.TrimSpace(strings.Join(current, "\n"))
			if t != "" {
				results = append(results, Chunk{Text: t, HeadingPath: path})
			}
			current = nil
			curLen = 0
		}
		current = append(current, line)
		curLen += len(line) + 1
	}

	if len(current) > 0 {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			results = append(results, Chunk{Text: t, HeadingPath: path})
		}
	}

	return results
}
