package normalisers

import (
	"github.com/custodia-labs/vecsync/internal/normalisers/csv"
	"github.com/custodia-labs/vecsync/internal/normalisers/docx"
	"github.com/custodia-labs/vecsync/internal/normalisers/eml"
	"github.com/custodia-labs/vecsync/internal/normalisers/html"
	"github.com/custodia-labs/vecsync/internal/normalisers/markdown"
	"github.com/custodia-labs/vecsync/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in normalisers with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(csv.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
}
