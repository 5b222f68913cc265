package driving

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// SourceService manages source definitions and their runtime state.
// Sources come from configuration; the service reconciles them into the
// store and answers status queries.
type SourceService interface {
	// Reconcile upserts the configured sources into the store and
	// resets any stale syncing status left by a crash.
	Reconcile(ctx context.Context, sources []domain.Source) error

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List returns all configured sources.
	List(ctx context.Context) ([]domain.Source, error)

	// Remove deletes a source along with its sync state, cursor, and
	// stored chunks.
	Remove(ctx context.Context, id string) error
}
