// Package chunker provides a boundary-aware text chunking processor.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// DefaultChunkSize is the default maximum number of bytes per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping bytes.
const DefaultChunkOverlap = 200

// chunkNamespace is the fixed UUIDv5 namespace for chunk identifiers.
// Changing it would orphan every stored vector, so it never changes.
var chunkNamespace = uuid.MustParse("b9e1a3f6-2c84-4b19-9d2a-f0c5e8d7a631")

// ChunkID returns the deterministic identifier for a chunk. The same
// source, path, content hash, and index always produce the same ID,
// which is what makes interrupted runs safe to retry: re-deriving and
// re-upserting a chunk overwrites the previous point instead of
// duplicating it.
func ChunkID(sourceID, path, contentHash string, index int) string {
	name := fmt.Sprintf("%s|%s|%s|%d", sourceID, path, contentHash, index)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Processor splits document content into chunks, preferring to cut at
// paragraph breaks, then line breaks, then word boundaries, and only
// hard-cutting when a window contains no boundary at all.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	maxBytes  int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the target maximum chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in bytes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMaxBytes caps chunks at the embedding provider's per-input
// limit. When the cap is smaller than the chunk size, the cap wins.
func WithMaxBytes(max int) Option {
	return func(p *Processor) {
		if max > 0 {
			p.maxBytes = max
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from
// document content. Empty content produces an empty chunk set, which
// downstream records as processed rather than skipped.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if doc.Content == "" {
		return nil, nil
	}

	size := p.chunkSize
	if p.maxBytes > 0 && p.maxBytes < size {
		size = p.maxBytes
	}
	overlap := p.overlap
	if overlap >= size {
		overlap = size / 4
	}

	pieces := split(doc.Content, size, overlap)

	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		if p.maxBytes > 0 && len(piece) > p.maxBytes {
			// A single rune wider than the provider cap. Splitting it
			// would corrupt the text and truncating would lose it.
			return nil, fmt.Errorf("chunk %d of %s exceeds provider limit of %d bytes: %w",
				i, doc.Path, p.maxBytes, domain.ErrChunkTooLarge)
		}

		metadata := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		if doc.Title != "" {
			metadata["title"] = doc.Title
		}

		chunks = append(chunks, domain.Chunk{
			ID:          ChunkID(doc.SourceID, doc.Path, doc.ContentHash, i),
			SourceID:    doc.SourceID,
			Path:        doc.Path,
			ContentHash: doc.ContentHash,
			Index:       i,
			Content:     piece,
			Metadata:    metadata,
		})
	}

	return chunks, nil
}

// split cuts content into pieces of at most size bytes. Consecutive
// pieces share up to overlap bytes of trailing context.
func split(content string, size, overlap int) []string {
	if len(content) <= size {
		return []string{content}
	}

	estimated := (len(content) / (size - overlap)) + 1
	pieces := make([]string, 0, estimated)

	start := 0
	for start < len(content) {
		if len(content)-start <= size {
			pieces = append(pieces, content[start:])
			break
		}

		cut := findCut(content, start, start+size)
		pieces = append(pieces, content[start:cut])

		next := cut - overlap
		if next <= start {
			next = cut
		}
		// Never restart mid-rune.
		for next < len(content) && !utf8.RuneStart(content[next]) {
			next++
		}
		start = next
	}

	return pieces
}

// findCut picks the best cut position in (start, end]. Boundaries in
// the back half of the window are preferred over full-size cuts;
// anything earlier would produce degenerate chunks.
func findCut(content string, start, end int) int {
	window := content[start:end]
	threshold := len(window) / 2

	if i := strings.LastIndex(window, "\n\n"); i >= threshold {
		return start + i + 2
	}
	if i := strings.LastIndexByte(window, '\n'); i >= threshold {
		return start + i + 1
	}
	if i := strings.LastIndexByte(window, ' '); i >= threshold {
		return start + i + 1
	}

	// No boundary in range: hard cut at the last rune start.
	cut := end
	for cut > start && !utf8.RuneStart(content[cut]) {
		cut--
	}
	if cut == start {
		// A single rune spans the whole window; take it whole rather
		// than looping forever.
		_, width := utf8.DecodeRuneInString(content[start:])
		cut = start + width
	}
	return cut
}
