package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// NormaliserRegistry routes each raw document to the best normaliser
// for its MIME type. Among candidates, a connector-specific normaliser
// beats a generic one and higher priority wins.
type NormaliserRegistry interface {
	// Register adds a normaliser to the candidate set.
	Register(normaliser Normaliser)

	// Normalise dispatches the document to the selected normaliser.
	// Returns domain.ErrUnsupportedType when nothing handles the
	// document's MIME type.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// SupportedMIMETypes returns every MIME type some registered
	// normaliser handles.
	SupportedMIMETypes() []string
}
