// Package docx normalises Word documents by extracting their
// paragraph text from the OOXML archive.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// wordMIME is the OOXML Word document type.
const wordMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Normaliser extracts text from Word documents.
type Normaliser struct{}

// New creates a Word document normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{wordMIME}
}

// SupportedConnectorTypes returns nil; the format is connector
// independent.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the document body text. Content that is not a
// valid OOXML archive fails the document, not the source.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	zr, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	arch := archive{zr}

	var content string
	if data, ok := arch.readEntry("word/document.xml"); ok {
		content = extractText(data)
	}

	meta := make(map[string]string, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "docx"

	return &driven.NormaliseResult{Document: domain.Document{
		SourceID:    raw.SourceID,
		Path:        raw.Path,
		ContentHash: raw.ContentHash,
		Title:       arch.title(raw.Path),
		Content:     content,
		Metadata:    meta,
	}}, nil
}

// archive wraps the OOXML zip with entry lookup.
type archive struct {
	zr *zip.Reader
}

// readEntry returns the named entry's bytes.
func (a archive) readEntry(name string) ([]byte, bool) {
	for _, f := range a.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

// title reads dc:title from the core properties, falling back to the
// file name.
func (a archive) title(fallbackPath string) string {
	if data, ok := a.readEntry("docProps/core.xml"); ok {
		var props struct {
			Title string `xml:"title"`
		}
		if xml.Unmarshal(data, &props) == nil {
			if t := strings.TrimSpace(props.Title); t != "" {
				return t
			}
		}
	}
	return titleFromFilename(fallbackPath)
}

// extractText walks the document XML token stream, collecting run
// text. Paragraph ends become newlines; explicit w:br and w:tab
// elements inside runs keep their whitespace.
func extractText(data []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}

	return strings.TrimSpace(b.String())
}

// titleFromFilename derives a readable title from the file name.
func titleFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
