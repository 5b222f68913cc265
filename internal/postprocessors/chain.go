// Package postprocessors turns normalised documents into chunks. A
// chain of processors runs in order, and a registry builds named
// processors from configuration so the chain's shape is declared
// rather than hard-coded.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

var _ driven.ProcessorChain = (*Chain)(nil)

// Chain runs processors in order over one normalised document. The
// first stage receives a nil chunk slice and produces the initial set;
// each later stage transforms the set it is handed.
type Chain struct {
	stages []driven.PostProcessor
}

// NewChain creates a chain that runs the given stages in order.
func NewChain(stages ...driven.PostProcessor) *Chain {
	return &Chain{stages: stages}
}

// Process runs the document through every stage and returns the final
// chunk set. Cancellation is checked between stages.
func (c *Chain) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stage.Name(), err)
		}
		chunks = next
	}
	return chunks, nil
}

// Stages returns the stage names in execution order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, stage := range c.stages {
		names[i] = stage.Name()
	}
	return names
}
