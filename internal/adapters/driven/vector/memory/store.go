// Package memory provides an in-memory VectorStore with brute-force
// cosine search. Used for tests and for running the pipeline without
// a Qdrant server; semantics mirror the Qdrant adapter.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type point struct {
	vector  []float32
	payload map[string]string
}

// Store keeps chunk points in a map keyed by chunk ID. Thread-safe.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	points     map[string]point
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{
		points: make(map[string]point),
	}
}

// EnsureCollection records the vector dimensions on first call and
// rejects mismatching dimensions afterwards, mirroring Qdrant's fatal
// startup check.
func (s *Store) EnsureCollection(_ context.Context, dimensions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimensions == 0 {
		s.dimensions = dimensions
		return nil
	}
	if s.dimensions != dimensions {
		return fmt.Errorf("%w: collection has %d dimensions, embedding model produces %d",
			domain.ErrDimensionMismatch, s.dimensions, dimensions)
	}
	return nil
}

// Upsert writes chunk points, overwriting existing IDs.
func (s *Store) Upsert(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if s.dimensions != 0 && len(chunk.Embedding) != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection expects %d",
				domain.ErrDimensionMismatch, chunk.ID, len(chunk.Embedding), s.dimensions)
		}
		vector := make([]float32, len(chunk.Embedding))
		copy(vector, chunk.Embedding)
		s.points[chunk.ID] = point{
			vector:  vector,
			payload: chunkPayload(chunk),
		}
	}
	return nil
}

// Delete removes points by chunk ID. Missing IDs are not an error.
func (s *Store) Delete(_ context.Context, chunkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range chunkIDs {
		delete(s.points, id)
	}
	return nil
}

// ExistingIDs returns the subset of chunk IDs that have stored vectors.
func (s *Store) ExistingIDs(_ context.Context, chunkIDs []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		if _, ok := s.points[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

// Query scores every stored point against the query vector and returns
// the k best matches, highest similarity first.
func (s *Store) Query(_ context.Context, vector []float32, k int, filter map[string]string) ([]driven.QueryHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]driven.QueryHit, 0, len(s.points))
	for id, p := range s.points {
		if !matchesFilter(p.payload, filter) {
			continue
		}
		payload := make(map[string]string, len(p.payload))
		for key, value := range p.payload {
			payload[key] = value
		}
		hits = append(hits, driven.QueryHit{
			ChunkID: id,
			Score:   float32(cosineSimilarity(vector, p.vector)),
			Payload: payload,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Len reports the number of stored points. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// chunkPayload mirrors the payload the Qdrant adapter stores, so query
// results carry the same fields regardless of backend.
func chunkPayload(chunk domain.Chunk) map[string]string {
	payload := map[string]string{
		"source_id":    chunk.SourceID,
		"path":         chunk.Path,
		"content_hash": chunk.ContentHash,
		"chunk_index":  strconv.Itoa(chunk.Index),
		"content":      chunk.Content,
	}
	for key, value := range chunk.Metadata {
		if _, reserved := payload[key]; !reserved {
			payload[key] = value
		}
	}
	return payload
}

func matchesFilter(payload map[string]string, filter map[string]string) bool {
	for key, want := range filter {
		if payload[key] != want {
			return false
		}
	}
	return true
}

// cosineSimilarity returns cos(theta) between two vectors, or 0 for
// empty, mismatched, or zero-magnitude inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		va := float64(a[i])
		vb := float64(b[i])
		dot += va * vb
		magA += va * va
		magB += vb * vb
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
