package domain

import (
	"path"
	"strings"
)

// DefaultIgnoreDirs are directory names skipped during tree walks
// regardless of configured patterns. They hold generated or vendored
// content that has no retrieval value.
var DefaultIgnoreDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"venv":         {},
	".venv":        {},
	"__pycache__":  {},
	"dist":         {},
	"build":        {},
}

// DefaultMaxFileSize caps document size when a source does not set its
// own limit.
const DefaultMaxFileSize int64 = 1 << 20 // 1 MiB

// PathFilter decides which enumerated paths a source syncs. Include
// patterns admit paths (empty include admits everything), exclude
// patterns then remove them. Patterns are path.Match globs evaluated
// against the slash-separated relative path and, as a convenience,
// against the base name, so "*.md" matches at any depth.
type PathFilter struct {
	// Include holds glob patterns a path must match. Empty admits all.
	Include []string

	// Exclude holds glob patterns that reject a path.
	Exclude []string

	// MaxFileSize rejects larger documents. Zero applies
	// DefaultMaxFileSize.
	MaxFileSize int64
}

// NewPathFilter builds a filter from a source's configuration.
func NewPathFilter(source *Source) PathFilter {
	return PathFilter{
		Include:     source.Include,
		Exclude:     source.Exclude,
		MaxFileSize: source.MaxFileSize,
	}
}

// Match reports whether a relative path passes the include/exclude
// patterns. Paths are normalised to forward slashes by callers.
func (f PathFilter) Match(relPath string) bool {
	if len(f.Include) > 0 && !matchAny(f.Include, relPath) {
		return false
	}
	return !matchAny(f.Exclude, relPath)
}

// Admit reports whether a path of the given size should be synced.
func (f PathFilter) Admit(relPath string, size int64) bool {
	limit := f.MaxFileSize
	if limit == 0 {
		limit = DefaultMaxFileSize
	}
	if size > limit {
		return false
	}
	return f.Match(relPath)
}

// SkipDir reports whether a directory name should be pruned from a
// tree walk. Hidden directories and the default ignore set are pruned.
func SkipDir(name string) bool {
	if name != "." && strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := DefaultIgnoreDirs[name]
	return ok
}

func matchAny(patterns []string, relPath string) bool {
	base := path.Base(relPath)
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, relPath); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}
		// Directory-style pattern: "docs/**" style prefixes are
		// expressed as "docs/" and match the whole subtree.
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(relPath, pattern) {
			return true
		}
	}
	return false
}
