package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// SourceStore persists source definitions and their runtime status.
// Sources are declared in configuration and reconciled into the store
// at startup; status transitions happen at runtime.
type SourceStore interface {
	// Save stores or updates a source's declared configuration. For a
	// known source the runtime status and last error are left alone;
	// UpdateStatus owns those after the first insert.
	Save(ctx context.Context, source domain.Source) error

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Delete removes a source.
	Delete(ctx context.Context, id string) error

	// List returns all configured sources, ordered by ID.
	List(ctx context.Context) ([]domain.Source, error)

	// UpdateStatus transitions a source's runtime status. The error
	// message is stored alongside an error status and cleared
	// otherwise.
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, message string) error

	// ListByStatus returns sources currently in the given status.
	// Used by the scheduler to pick up externally triggered sources.
	ListByStatus(ctx context.Context, status domain.SourceStatus) ([]domain.Source, error)
}
