package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// defaultTopK is how many results a query returns when the caller
// does not say.
const defaultTopK = 10

// QueryService answers similarity queries over synced chunks. It
// exists for downstream consumers and the query debug command; the
// pipeline itself never reads back what it writes.
type QueryService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	log      *logger.Logger
}

// NewQueryService creates a query service.
func NewQueryService(embedder driven.EmbeddingService, vectors driven.VectorStore, log *logger.Logger) *QueryService {
	return &QueryService{
		embedder: embedder,
		vectors:  vectors,
		log:      log.Named("query"),
	}
}

// Query embeds the text and returns the nearest chunks.
func (s *QueryService) Query(ctx context.Context, text string, opts driving.QueryOptions) ([]driving.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query text", domain.ErrInvalidInput)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter map[string]string
	if opts.SourceID != "" || opts.Path != "" {
		filter = make(map[string]string, 2)
		if opts.SourceID != "" {
			filter["source_id"] = opts.SourceID
		}
		if opts.Path != "" {
			filter["path"] = opts.Path
		}
	}

	hits, err := s.vectors.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w", err)
	}

	results := make([]driving.QueryResult, len(hits))
	for i, hit := range hits {
		results[i] = driving.QueryResult{
			ChunkID:  hit.ChunkID,
			SourceID: hit.Payload["source_id"],
			Path:     hit.Payload["path"],
			Title:    hit.Payload["title"],
			Content:  hit.Payload["content"],
			Score:    hit.Score,
		}
	}
	return results, nil
}
