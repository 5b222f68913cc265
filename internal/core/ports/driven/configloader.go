package driven

import "github.com/custodia-labs/vecsync/internal/core/domain"

// ConfigLoader reads the full pipeline configuration.
// Implementations handle the file format, defaults, and environment
// overrides; the returned configuration is already validated.
type ConfigLoader interface {
	// Load reads, merges, and validates the configuration.
	Load() (domain.Config, error)

	// Path returns the configuration file path being read.
	Path() string
}
