package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw documents to the best matching normaliser.
// Candidates must support the document's MIME type; among those, a
// connector-specific normaliser beats a generic one, and higher
// priority wins. Connector type is read from the raw document's
// "connector_type" metadata when a connector sets it.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// New creates an empty normaliser registry.
func New() *Registry {
	return &Registry{}
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, normaliser)
}

// Normalise transforms a raw document using the best matching normaliser.
// Returns domain.ErrUnsupportedType when no registered normaliser
// handles the document's MIME type; callers record such documents as
// processed with no content rather than failing the source.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	normaliser := r.selectFor(raw)
	if normaliser == nil {
		return nil, fmt.Errorf("no normaliser for MIME type %q: %w", raw.MIMEType, domain.ErrUnsupportedType)
	}

	return normaliser.Normalise(ctx, raw)
}

// selectFor picks the highest-priority normaliser supporting the
// document, preferring connector-specific matches.
func (r *Registry) selectFor(raw *domain.RawDocument) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connectorType := ""
	if raw.Metadata != nil {
		connectorType = raw.Metadata["connector_type"]
	}

	var best driven.Normaliser
	bestSpecific := false
	bestPriority := -1

	for _, n := range r.normalisers {
		if !contains(n.SupportedMIMETypes(), raw.MIMEType) {
			continue
		}

		connectorTypes := n.SupportedConnectorTypes()
		specific := len(connectorTypes) > 0
		if specific && !contains(connectorTypes, connectorType) {
			continue
		}

		if specific != bestSpecific {
			if specific {
				best, bestSpecific, bestPriority = n, true, n.Priority()
			}
			continue
		}
		if n.Priority() > bestPriority {
			best, bestPriority = n, n.Priority()
		}
	}

	return best
}

// SupportedMIMETypes returns all MIME types that can be normalised.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, mt := range n.SupportedMIMETypes() {
			seen[mt] = struct{}{}
		}
	}

	types := make([]string, 0, len(seen))
	for mt := range seen {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
