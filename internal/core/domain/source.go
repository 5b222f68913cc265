package domain

import (
	"fmt"
	"time"
)

// Source types supported by the pipeline.
const (
	// SourceTypeGit syncs a git repository branch.
	SourceTypeGit = "git"
	// SourceTypeFilesystem syncs a local directory tree.
	SourceTypeFilesystem = "filesystem"
	// SourceTypeGoogleDrive syncs a Google Drive folder.
	SourceTypeGoogleDrive = "google-drive"
)

// SourceStatus is the runtime state of a source, persisted in the
// metadata store so external callers can observe and trigger runs.
type SourceStatus string

const (
	// StatusIdle means no run is active or requested.
	StatusIdle SourceStatus = "idle"
	// StatusPending means an external caller requested a run; the
	// scheduler picks it up on its next tick.
	StatusPending SourceStatus = "pending"
	// StatusSyncing means a run is in progress.
	StatusSyncing SourceStatus = "syncing"
	// StatusError means the last run failed at the source level.
	StatusError SourceStatus = "error"
)

// Source represents a configured data source.
// Sources are declared in the configuration file and mirrored into the
// metadata store at startup so their runtime status survives restarts.
type Source struct {
	// ID is the unique identifier for the source.
	ID string

	// Type identifies the connector type (git, filesystem, google-drive).
	Type string

	// Name is the human-readable name for this source.
	Name string

	// Location is the source root: repository URL, directory path, or
	// drive folder ID.
	Location string

	// Branch is the git branch to sync. Git sources only.
	Branch string

	// Include holds glob patterns a path must match to be synced.
	// Empty means everything under Location.
	Include []string

	// Exclude holds glob patterns that remove paths from the sync set.
	// Applied after Include.
	Exclude []string

	// MaxFileSize caps document size in bytes. Zero means the
	// pipeline default.
	MaxFileSize int64

	// CredentialsFile points at stored credentials (service account or
	// token JSON) for sources that require auth. Empty for local sources.
	CredentialsFile string

	// PollInterval overrides the global poll interval in continuous
	// mode. Zero means the global default.
	PollInterval time.Duration

	// Status is the runtime state, persisted in the metadata store.
	Status SourceStatus

	// LastError holds the failure reason when Status is StatusError.
	LastError string

	// CreatedAt is when the source was first registered.
	CreatedAt time.Time

	// UpdatedAt is when the source record last changed.
	UpdatedAt time.Time
}

// Validate checks that the source configuration is complete enough to
// build a connector from.
func (s *Source) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if s.Location == "" {
		return fmt.Errorf("%w: source %s has no location", ErrInvalidInput, s.ID)
	}
	switch s.Type {
	case SourceTypeGit, SourceTypeFilesystem, SourceTypeGoogleDrive:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, s.Type)
	}
}

// SyncCursor tracks per-source incremental sync progress: an opaque
// token the connector uses to cheapen the next enumeration (git HEAD
// commit, Drive changes page token). Losing it is safe; the next run
// falls back to a full listing.
type SyncCursor struct {
	// SourceID links to the Source being synced.
	SourceID string

	// Cursor is the opaque connector token.
	Cursor string

	// LastSync is when the last successful run completed.
	LastSync time.Time
}
