package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Normaliser extracts embeddable text from one family of raw
// documents. Implementations declare the MIME types they handle and
// compete on priority when several support the same type.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// SupportedConnectorTypes restricts the normaliser to documents
	// from the named connector types. An empty slice means any
	// connector.
	SupportedConnectorTypes() []string

	// Priority breaks ties between normalisers supporting the same
	// MIME type; higher wins. Connector-specific normalisers use
	// 90-100, format normalisers 50-89, fallbacks 1-9.
	Priority() int

	// Normalise extracts text from a raw document. Binary or empty
	// input yields a document with empty Content rather than an
	// error, so the caller records it as processed.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult carries the normalised document. Its Content holds
// the extracted text; chunking happens later in the processor chain,
// never here.
type NormaliseResult struct {
	Document domain.Document
}
