package postprocessors

import (
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/postprocessors/chunker"
)

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// buildChunker reads the chunker's keys: chunk_size and overlap in
// bytes, plus max_bytes for the embedding provider's per-input cap.
// Absent keys keep the chunker defaults.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	opts := make([]chunker.Option, 0, 3)
	if size, ok := intValue(cfg, "chunk_size"); ok && size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intValue(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if max, ok := intValue(cfg, "max_bytes"); ok && max > 0 {
		opts = append(opts, chunker.WithMaxBytes(max))
	}
	return chunker.New(opts...), nil
}

// intValue reads an integer key, accepting the numeric types TOML and
// JSON decoding produce.
func intValue(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
