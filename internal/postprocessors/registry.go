package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Builder constructs a processor from its configuration map. Keys are
// processor-specific; values arrive as whatever types the config
// decoder produced.
type Builder func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves processor names from configuration to builders.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register binds a name to a builder. Registering the same name again
// replaces the earlier builder.
func (r *Registry) Register(name string, build Builder) {
	r.builders[name] = build
}

// Build constructs the named processor with the given configuration.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	build, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: processor %q", domain.ErrNotFound, name)
	}
	return build(cfg)
}

// Names returns the registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
