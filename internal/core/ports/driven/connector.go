package driven

import (
	"context"
	"errors"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Connector enumerates and fetches documents from a data source.
// Each connector type (filesystem, git, google-drive) implements this
// interface.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks if the connector is properly configured and
	// authenticated. Performs a lightweight check to verify the
	// connector is ready to sync. For API connectors, this typically
	// makes a test API call. For filesystem, this checks the path
	// exists and is readable.
	// Returns nil if ready to sync, error describing the problem otherwise.
	Validate(ctx context.Context) error

	// Enumerate lists every document currently in the source, as
	// metadata only. Paths are relative to the source root and use
	// forward slashes. The cursor is the opaque token from the previous
	// run; connectors that cannot use it ignore it.
	//
	// A listing only counts as complete when EnumerationComplete
	// arrives on the error channel. Any other terminal error means the
	// listing is partial and must not drive deletions.
	Enumerate(ctx context.Context, cursor string) (<-chan domain.SourceDocument, <-chan error)

	// Fetch retrieves the raw content of a single enumerated document.
	// Tree connectors resolve the document by Path; API connectors use
	// the provider identifiers carried in Metadata. Returns
	// domain.ErrNotFound if the document vanished after enumeration.
	Fetch(ctx context.Context, doc domain.SourceDocument) (domain.RawDocument, error)

	// Watch listens for real-time change hints.
	// Only available if SupportsWatch is true. Events are advisory;
	// a run always re-enumerates rather than trusting them.
	Watch(ctx context.Context) (<-chan domain.WatchEvent, error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// === Core Sync Capabilities ===

	// SupportsWatch indicates the connector can push real-time events.
	SupportsWatch bool

	// SupportsHierarchy indicates the source has nested structure.
	SupportsHierarchy bool

	// === Authentication ===

	// RequiresAuth indicates the connector needs credentials.
	// False for local connectors like filesystem and public git.
	RequiresAuth bool

	// === Validation & Health ===

	// SupportsValidation indicates Validate() performs actual validation.
	// When true, Validate() makes a real check (e.g., API call, path check).
	SupportsValidation bool

	// === Sync Behaviour ===

	// SupportsCursorReturn indicates Enumerate returns an updated cursor
	// via the EnumerationComplete sentinel on the error channel.
	SupportsCursorReturn bool

	// ProvidesContentHash indicates enumeration entries carry a real
	// content hash. When false, the hash is derived from provider
	// metadata and Fetch recomputes the authoritative value.
	ProvidesContentHash bool

	// === API Characteristics (informational) ===

	// SupportsRateLimiting indicates the connector handles rate limiting
	// internally. Helps the orchestrator understand connector behaviour.
	SupportsRateLimiting bool

	// SupportsPagination indicates the connector handles paginated APIs.
	// Connectors handle pagination internally; this is informational.
	SupportsPagination bool
}

// EnumerationComplete is sent on the error channel when a listing
// finishes successfully. Carries the new cursor for the next run.
// Deletion bookkeeping only advances on complete listings.
type EnumerationComplete struct {
	NewCursor string
}

// Error implements the error interface.
// This allows EnumerationComplete to be sent on the error channel.
func (EnumerationComplete) Error() string {
	return "enumeration complete"
}

// IsEnumerationComplete checks if an error is actually a successful
// completion. Returns the EnumerationComplete and true if it is, nil
// and false otherwise.
func IsEnumerationComplete(err error) (*EnumerationComplete, bool) {
	var ec *EnumerationComplete
	if errors.As(err, &ec) {
		return ec, true
	}
	return nil, false
}
