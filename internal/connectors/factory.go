// Package connectors provides implementations of the Connector
// interface for each supported source type. Each connector knows how
// to enumerate and fetch documents from one kind of source (git,
// filesystem, google-drive).
//
// Connectors are registered with the Factory at startup.
package connectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/vecsync/internal/connectors/filesystem"
	"github.com/custodia-labs/vecsync/internal/connectors/git"
	"github.com/custodia-labs/vecsync/internal/connectors/google/drive"
	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/ratelimit"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory builds connectors from source configuration. Builders for
// each source type are registered once at startup; Create is safe for
// concurrent use afterwards.
type Factory struct {
	mu       sync.RWMutex
	builders map[string]driven.ConnectorBuilder
}

// NewFactory creates an empty factory with no registered types.
func NewFactory() *Factory {
	return &Factory{builders: make(map[string]driven.ConnectorBuilder)}
}

// DefaultOptions configures the built-in connector set.
type DefaultOptions struct {
	// CacheDir is where the git connector keeps its clones.
	CacheDir string

	// DriveLimiter bounds Google Drive API calls. Nil means unlimited.
	DriveLimiter *ratelimit.Limiter
}

// NewDefaultFactory creates a factory with every built-in connector
// type registered.
func NewDefaultFactory(opts DefaultOptions) *Factory {
	f := NewFactory()
	f.Register(domain.SourceTypeFilesystem, func(_ context.Context, source domain.Source) (driven.Connector, error) {
		return filesystem.New(source), nil
	})
	f.Register(domain.SourceTypeGit, func(_ context.Context, source domain.Source) (driven.Connector, error) {
		return git.New(source, opts.CacheDir), nil
	})
	f.Register(domain.SourceTypeGoogleDrive, func(ctx context.Context, source domain.Source) (driven.Connector, error) {
		return drive.New(ctx, source, opts.DriveLimiter)
	})
	return f
}

// Register adds a connector builder for the given type. A second
// registration for the same type replaces the first.
func (f *Factory) Register(connectorType string, builder driven.ConnectorBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[connectorType] = builder
}

// Create returns a Connector for the given source. The source is
// validated before the builder runs.
func (f *Factory) Create(ctx context.Context, source domain.Source) (driven.Connector, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, ok := f.builders[source.Type]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no connector for %q", domain.ErrUnsupportedType, source.Type)
	}

	connector, err := builder(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("create %s connector for %s: %w", source.Type, source.ID, err)
	}
	return connector, nil
}

// SupportedTypes returns all registered connector types, sorted.
func (f *Factory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
