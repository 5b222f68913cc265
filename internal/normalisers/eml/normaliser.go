// Package eml normalises RFC 822 email messages.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// maxPartDepth bounds multipart recursion. A message nested deeper is
// treated as having no further text.
const maxPartDepth = 8

// Normaliser extracts text from email messages, preferring text/plain
// parts and falling back to stripped HTML.
type Normaliser struct{}

// New creates an email normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// SupportedConnectorTypes returns nil; any connector can deliver mail.
func (n *Normaliser) SupportedConnectorTypes() []string {
	return nil
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise parses the message and renders the addressing headers
// followed by the body, so chunks keep their who-said-what context.
// Content that does not parse as a message fails the document, not
// the source.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := parseMessage(raw.Content)
	if err != nil {
		return nil, err
	}

	title := msg.subject
	if title == "" {
		title = titleFromFilename(raw.Path)
	}

	doc := domain.Document{
		SourceID:    raw.SourceID,
		Path:        raw.Path,
		ContentHash: raw.ContentHash,
		Title:       title,
		Content:     msg.render(),
		Metadata:    metadataFor(raw, msg),
	}

	return &driven.NormaliseResult{Document: doc}, nil
}

// parsedMessage holds the extracted pieces of one email.
type parsedMessage struct {
	subject string
	from    string
	to      string
	date    string
	body    string
}

// render emits the addressing headers, a blank line, then the body.
func (m parsedMessage) render() string {
	var b strings.Builder
	for _, h := range []struct{ label, value string }{
		{"From", m.from},
		{"To", m.to},
		{"Date", m.date},
		{"Subject", m.subject},
	} {
		if h.value == "" {
			continue
		}
		b.WriteString(h.label)
		b.WriteString(": ")
		b.WriteString(h.value)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(m.body)
	return strings.TrimSpace(b.String())
}

func parseMessage(content []byte) (parsedMessage, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return parsedMessage{}, domain.ErrInvalidInput
	}

	out := parsedMessage{
		subject: decodeWord(msg.Header.Get("Subject")),
		from:    decodeWord(msg.Header.Get("From")),
		to:      decodeWord(msg.Header.Get("To")),
		date:    msg.Header.Get("Date"),
	}

	body, err := bodyText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body, 0)
	if err != nil {
		return parsedMessage{}, err
	}
	out.body = body
	return out, nil
}

// decodeWord decodes an RFC 2047 encoded header, keeping the raw
// value when decoding fails.
func decodeWord(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// bodyText extracts text from one body or part, recursing into
// multipart content.
func bodyText(contentType, transferEncoding string, r io.Reader, depth int) (string, error) {
	if depth > maxPartDepth {
		return "", nil
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartText(r, params["boundary"], depth)
	}

	data, err := io.ReadAll(decodeTransfer(transferEncoding, r))
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	if mediaType == "text/html" {
		return flattenHTML(string(data)), nil
	}
	return string(data), nil
}

// multipartText walks the parts at one nesting level. Plain-text
// parts win; stripped HTML is the fallback when no plain part exists.
func multipartText(r io.Reader, boundary string, depth int) (string, error) {
	if boundary == "" {
		return "", nil
	}

	var plain, html []string
	parts := multipart.NewReader(r, boundary)
	for {
		part, err := parts.NextPart()
		if err != nil {
			break
		}

		text, err := bodyText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, depth+1)
		part.Close()
		if err != nil || text == "" {
			continue
		}

		mediaType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if mediaType == "text/html" {
			html = append(html, text)
		} else {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n"), nil
	}
	return strings.Join(html, "\n"), nil
}

// decodeTransfer wraps the reader with the part's transfer decoding.
// Unknown encodings pass through untouched.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// flattenHTML drops tags and blank lines from an HTML body. Mail
// bodies carry simple generated markup; full HTML handling lives in
// the html normaliser.
func flattenHTML(s string) string {
	var b strings.Builder
	for {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:lt])
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			break
		}
		s = s[lt+gt+1:]
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// titleFromFilename derives a readable title from the file name.
func titleFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// metadataFor carries the connector metadata through with the message
// addressing appended.
func metadataFor(raw *domain.RawDocument, msg parsedMessage) map[string]string {
	meta := make(map[string]string, len(raw.Metadata)+5)
	for k, v := range raw.Metadata {
		meta[k] = v
	}
	meta["mime_type"] = raw.MIMEType
	meta["format"] = "eml"
	if msg.from != "" {
		meta["from"] = msg.from
	}
	if msg.to != "" {
		meta["to"] = msg.to
	}
	if msg.date != "" {
		meta["date"] = msg.date
	}
	return meta
}
