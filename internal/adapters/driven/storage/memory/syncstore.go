package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.SyncStateStore  = (*SyncStateStore)(nil)
	_ driven.SyncCursorStore = (*SyncCursorStore)(nil)
	_ driven.SyncRunStore    = (*SyncRunStore)(nil)
)

// SyncStateStore is an in-memory implementation of
// driven.SyncStateStore, keyed by (source ID, path).
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]map[string]domain.SyncState
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		states: make(map[string]map[string]domain.SyncState),
	}
}

// Save stores or updates sync state for a document.
func (s *SyncStateStore) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySource, ok := s.states[state.SourceID]
	if !ok {
		bySource = make(map[string]domain.SyncState)
		s.states[state.SourceID] = bySource
	}
	bySource[state.Path] = state
	return nil
}

// Get retrieves sync state for a document.
func (s *SyncStateStore) Get(_ context.Context, sourceID, path string) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sourceID][path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// ListBySource returns all sync states for a source, ordered by path.
func (s *SyncStateStore) ListBySource(_ context.Context, sourceID string) ([]domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.SyncState
	for _, state := range s.states[sourceID] {
		result = append(result, state)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// Delete removes sync state for a document.
func (s *SyncStateStore) Delete(_ context.Context, sourceID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states[sourceID], path)
	return nil
}

// SyncCursorStore is an in-memory implementation of
// driven.SyncCursorStore.
type SyncCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]domain.SyncCursor
}

// NewSyncCursorStore creates a new in-memory sync cursor store.
func NewSyncCursorStore() *SyncCursorStore {
	return &SyncCursorStore{
		cursors: make(map[string]domain.SyncCursor),
	}
}

// SaveCursor stores or updates a source's cursor.
func (s *SyncCursorStore) SaveCursor(_ context.Context, cursor domain.SyncCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[cursor.SourceID] = cursor
	return nil
}

// GetCursor retrieves a source's cursor.
func (s *SyncCursorStore) GetCursor(_ context.Context, sourceID string) (*domain.SyncCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cursor, ok := s.cursors[sourceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cursor, nil
}

// DeleteCursor removes a source's cursor.
func (s *SyncCursorStore) DeleteCursor(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cursors, sourceID)
	return nil
}

// SyncRunStore is an in-memory implementation of driven.SyncRunStore.
type SyncRunStore struct {
	mu   sync.RWMutex
	runs []domain.SyncRun
}

// NewSyncRunStore creates a new in-memory sync run store.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{}
}

// RecordRun appends a completed run.
func (s *SyncRunStore) RecordRun(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SyncRunStore) ListRuns(_ context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.SyncRun
	for _, run := range s.runs {
		if sourceID == "" || run.SourceID == sourceID {
			result = append(result, run)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
