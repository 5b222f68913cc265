package driving

import (
	"context"
)

// QueryService exposes similarity search over synced chunks. It exists
// for downstream consumers and the query debug command; the pipeline
// itself never reads back what it writes.
type QueryService interface {
	// Query embeds the text and returns the nearest chunks.
	Query(ctx context.Context, text string, opts QueryOptions) ([]QueryResult, error)
}

// QueryOptions narrows a similarity query.
type QueryOptions struct {
	// TopK is how many results to return. Zero means the default of 10.
	TopK int

	// SourceID restricts results to one source. Empty searches all.
	SourceID string

	// Path restricts results to one document. Empty searches all.
	Path string
}

// QueryResult is one similarity match.
type QueryResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// SourceID and Path locate the originating document.
	SourceID string
	Path     string

	// Title is the document title the chunk came from.
	Title string

	// Content is the chunk text.
	Content string

	// Score is the similarity score, higher is closer.
	Score float32
}
