// Package memory provides in-memory implementations of the metadata
// store ports. Used for tests and for running the pipeline without
// persistence; semantics mirror the SQLite adapter.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of driven.SourceStore.
type SourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
}

// NewSourceStore creates a new in-memory source store.
func NewSourceStore() *SourceStore {
	return &SourceStore{
		sources: make(map[string]domain.Source),
	}
}

// Save stores or updates a source's declared configuration. Runtime
// status survives a re-save, matching the SQLite adapter.
func (s *SourceStore) Save(_ context.Context, source domain.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.sources[source.ID]; ok {
		source.Status = existing.Status
		source.LastError = existing.LastError
		source.CreatedAt = existing.CreatedAt
	} else if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	if source.Status == "" {
		source.Status = domain.StatusIdle
	}
	source.UpdatedAt = now

	s.sources[source.ID] = source
	return nil
}

// Get retrieves a source by ID.
func (s *SourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	source, ok := s.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &source, nil
}

// Delete removes a source.
func (s *SourceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sources, id)
	return nil
}

// List returns all configured sources, ordered by ID.
func (s *SourceStore) List(_ context.Context) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Source, 0, len(s.sources))
	for _, source := range s.sources {
		result = append(result, source)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateStatus transitions a source's runtime status.
func (s *SourceStore) UpdateStatus(_ context.Context, id string, status domain.SourceStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.sources[id]
	if !ok {
		return domain.ErrNotFound
	}
	if status != domain.StatusError {
		message = ""
	}
	source.Status = status
	source.LastError = message
	source.UpdatedAt = time.Now().UTC()
	s.sources[id] = source
	return nil
}

// ListByStatus returns sources currently in the given status, ordered
// by ID.
func (s *SourceStore) ListByStatus(_ context.Context, status domain.SourceStatus) ([]domain.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Source
	for _, source := range s.sources {
		if source.Status == status {
			result = append(result, source)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
