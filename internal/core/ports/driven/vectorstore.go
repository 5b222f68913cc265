package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// VectorStore persists chunk embeddings and serves similarity queries.
// Backed by Qdrant over gRPC, or the in-memory store for tests.
type VectorStore interface {
	// EnsureCollection verifies the collection exists with the given
	// vector dimensions, creating it if absent. Returns
	// domain.ErrDimensionMismatch if it exists with different
	// dimensions; that is fatal and must abort startup.
	EnsureCollection(ctx context.Context, dimensions int) error

	// Upsert writes chunk points. Writing an existing chunk ID
	// overwrites it, so retries are safe.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// Delete removes points by chunk ID. Missing IDs are not an error.
	Delete(ctx context.Context, chunkIDs []string) error

	// ExistingIDs returns the subset of the given chunk IDs that
	// already have stored vectors. Used to skip re-embedding after an
	// interrupted run.
	ExistingIDs(ctx context.Context, chunkIDs []string) (map[string]bool, error)

	// Query finds the k nearest chunks to the query vector. Filter
	// keys match against point payload fields (source_id, path); a nil
	// filter searches everything.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]QueryHit, error)

	// HealthCheck validates the store is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// QueryHit represents a similarity search result.
type QueryHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Score is the similarity score, higher is closer.
	Score float32

	// Payload carries the point's stored metadata (source_id, path,
	// content, title).
	Payload map[string]string
}
