package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// SyncOrchestrator coordinates document synchronisation from sources.
type SyncOrchestrator interface {
	// Sync runs one synchronisation pass for a source and returns its
	// run record. Returns domain.ErrSyncInProgress if the source is
	// already being synced.
	Sync(ctx context.Context, sourceID string) (*domain.SyncRun, error)

	// SyncAll runs one synchronisation pass for every configured
	// source. Sources fail independently; the first enumeration error
	// is returned after all sources have been attempted.
	SyncAll(ctx context.Context) ([]domain.SyncRun, error)

	// Trigger marks a source pending so the scheduler picks it up on
	// its next tick. Unlike Sync it does not block until the run
	// finishes.
	Trigger(ctx context.Context, sourceID string) error

	// Status returns sync status for a source.
	Status(ctx context.Context, sourceID string) (*SyncStatus, error)

	// History returns recent completed runs, newest first. An empty
	// sourceID covers all sources.
	History(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// SourceID identifies the source.
	SourceID string

	// Running indicates if sync is currently in progress.
	Running bool

	// Stage is the pipeline stage the run is in.
	Stage domain.SyncStage

	// DocumentsProcessed is the count of documents processed so far.
	DocumentsProcessed int

	// DocumentsTotal is the count of documents the plan selected for
	// embedding. Zero until planning completes.
	DocumentsTotal int

	// ErrorCount is the number of errors encountered.
	ErrorCount int

	// LastSync is when the source last completed a run.
	LastSync time.Time
}
