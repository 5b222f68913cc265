package domain

import "time"

// SourceDocument is one discoverable unit of content reported by a
// connector during enumeration. It carries identity and a content hash
// but not the content itself; content is fetched on demand for
// documents the planner decides to process.
type SourceDocument struct {
	// SourceID links to the Source that reported this document.
	SourceID string

	// Path is the stable relative identifier within the source
	// (file path, drive item path).
	Path string

	// ContentHash is the deterministic digest of the raw bytes at
	// enumeration time. Authoritative for change detection.
	ContentHash string

	// MIMEType is the content type (e.g., "text/markdown").
	MIMEType string

	// Size is the content size in bytes, where the source reports it.
	Size int64

	// ModifiedAt is the source-reported modification time.
	// Advisory only; ContentHash decides whether content changed.
	ModifiedAt time.Time

	// Metadata contains connector-specific key-value pairs
	// (drive file id, web link, commit SHA).
	Metadata map[string]string
}

// Document is the canonical text representation after normalisation.
// It is what the chunker consumes.
type Document struct {
	// SourceID links to the Source that produced this document.
	SourceID string

	// Path is the stable relative identifier within the source.
	Path string

	// ContentHash is inherited from the SourceDocument this text was
	// derived from. Chunk identity is computed from it.
	ContentHash string

	// Title is the human-readable title.
	Title string

	// Content is the full text after normalisation. Empty for binary
	// or empty inputs; such documents yield an empty chunk set.
	Content string

	// Metadata contains arbitrary key-value pairs carried through to
	// chunk payloads.
	Metadata map[string]string
}

// Chunk is a bounded slice of a document's text, the unit that is
// embedded and stored. A chunk belongs exclusively to one content
// version of one path: when the content hash changes, the whole chunk
// set for that path is replaced, never merged.
type Chunk struct {
	// ID is deterministic, derived from
	// (source id, path, content hash, index). The same slice of the
	// same content version always maps to the same id, which is what
	// makes upserts idempotent.
	ID string

	// SourceID links to the owning source.
	SourceID string

	// Path is the owning document's path.
	Path string

	// ContentHash is the owning document version.
	ContentHash string

	// Index is the ordinal position among siblings. Ordering is
	// significant for reconstructing context.
	Index int

	// Content is the chunk text. Overlap with neighbouring chunks is
	// duplicated verbatim.
	Content string

	// Embedding is the vector representation. Produced once per chunk
	// id; never regenerated unless the parent hash changes.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string
}
