// Package mimetype guesses document MIME types from file extensions.
// The table covers the types the normalisers understand; connectors
// that walk file trees (filesystem, git) share it so the same file is
// labelled the same way regardless of where it came from.
package mimetype

import (
	"path/filepath"
	"strings"
)

// byExtension maps file extensions to MIME types. Anything absent
// falls back to text/plain, which keeps source files of unlisted
// languages syncable.
var byExtension = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".txt":      "text/plain",
	".text":     "text/plain",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".rs":       "text/x-rust",
	".java":     "text/x-java",
	".c":        "text/x-c",
	".h":        "text/x-c",
	".cpp":      "text/x-c++",
	".cc":       "text/x-c++",
	".hpp":      "text/x-c++",
	".rb":       "text/x-ruby",
	".sh":       "text/x-shellscript",
	".bash":     "text/x-shellscript",
	".sql":      "text/x-sql",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".js":       "text/javascript",
	".mjs":      "text/javascript",
	".jsx":      "text/jsx",
	".ts":       "text/typescript",
	".tsx":      "text/typescript-jsx",
	".css":      "text/css",
	".html":     "text/html",
	".htm":      "text/html",
	".json":     "application/json",
	".xml":      "application/xml",
	".svg":      "image/svg+xml",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".eml":      "message/rfc822",
}

// Detect maps a path to a MIME type by extension.
func Detect(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := byExtension[ext]; ok {
		return mime
	}
	return "text/plain"
}

// Extension returns the lowercase extension without the leading dot.
func Extension(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
