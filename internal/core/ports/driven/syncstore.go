package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// SyncStateStore persists per-document sync state. State is keyed by
// (source ID, path) and holds the last successfully embedded content
// hash plus the chunk IDs derived from it.
type SyncStateStore interface {
	// Save stores or updates sync state for a document.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a document.
	// Returns domain.ErrNotFound if the document has never been synced.
	Get(ctx context.Context, sourceID, path string) (*domain.SyncState, error)

	// ListBySource returns all sync states for a source, ordered by path.
	ListBySource(ctx context.Context, sourceID string) ([]domain.SyncState, error)

	// Delete removes sync state for a document after its chunks are
	// confirmed deleted from the vector store.
	Delete(ctx context.Context, sourceID, path string) error
}

// SyncCursorStore persists per-source enumeration cursors.
type SyncCursorStore interface {
	// SaveCursor stores or updates a source's cursor.
	SaveCursor(ctx context.Context, cursor domain.SyncCursor) error

	// GetCursor retrieves a source's cursor.
	// Returns domain.ErrNotFound if the source has never completed a run.
	GetCursor(ctx context.Context, sourceID string) (*domain.SyncCursor, error)

	// DeleteCursor removes a source's cursor.
	DeleteCursor(ctx context.Context, sourceID string) error
}

// SyncRunStore records completed sync runs. Runs are append-only audit
// history; they are never updated after being recorded.
type SyncRunStore interface {
	// RecordRun appends a completed run.
	RecordRun(ctx context.Context, run domain.SyncRun) error

	// ListRuns returns the most recent runs, newest first. An empty
	// sourceID returns runs for all sources.
	ListRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
}
