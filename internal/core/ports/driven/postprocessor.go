package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// PostProcessor is one stage of chunk production. A stage that creates
// chunks receives a nil slice and returns the new set; a stage that
// transforms chunks returns the modified set.
type PostProcessor interface {
	// Name identifies the stage in configuration and error messages.
	Name() string

	// Process runs the stage over one document.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// ProcessorChain runs a document through the configured stages in
// order and returns the final chunk set. A document that produces no
// chunks is not an error; callers record it as processed with nothing
// to embed.
type ProcessorChain interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
