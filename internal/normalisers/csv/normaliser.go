// Package csv normalises CSV and TSV files into readable text where
// each row becomes a "header: value" line, which embeds far better than
// raw comma-separated cells.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles CSV and TSV documents.
type Normaliser struct{}

// New creates a new CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/csv", "text/tab-separated-values"}
}

// SupportedConnectorTypes returns connector types for specialised handling.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil // All connectors
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60 // Above plaintext, which also lists text/csv
}

// Normalise converts tabular data into labelled rows. Malformed CSV
// falls back to the raw text rather than failing the document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	var content string
	if utf8.Valid(raw.Content) {
		text := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
		content = renderRows(text, raw.MIMEType)
	}

	doc := domain.Document{
		SourceID:    raw.SourceID,
		Path:        raw.Path,
		ContentHash: raw.ContentHash,
		Title:       extractTitle(raw.Path),
		Content:     content,
		Metadata:    copyMetadata(raw.Metadata),
	}

	if doc.Metadata == nil {
		doc.Metadata = make(map[string]string)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "csv"

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// renderRows turns "a,b\n1,2" into "a: 1, b: 2" lines using the first
// row as headers. Rows are separated by blank lines so the chunker can
// cut between records.
func renderRows(text, mimeType string) string {
	reader := stdcsv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	if mimeType == "text/tab-separated-values" {
		reader.Comma = '\t'
	}

	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		// Not parseable as CSV; keep the raw text.
		return strings.TrimSpace(text)
	}
	if len(records) == 1 {
		return strings.Join(records[0], ", ")
	}

	headers := records[0]
	var b strings.Builder
	for _, record := range records[1:] {
		fields := make([]string, 0, len(record))
		for i, value := range record {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if i < len(headers) && strings.TrimSpace(headers[i]) != "" {
				fields = append(fields, fmt.Sprintf("%s: %s", strings.TrimSpace(headers[i]), value))
			} else {
				fields = append(fields, value)
			}
		}
		if len(fields) == 0 {
			continue
		}
		b.WriteString(strings.Join(fields, ", "))
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// extractTitle extracts a human-readable title from a path.
func extractTitle(path string) string {
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// copyMetadata creates a shallow copy of metadata.
func copyMetadata(src map[string]string) map[string]string {
	if src == nil {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
