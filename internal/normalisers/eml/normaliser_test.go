package eml

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

func rawMessage(lines ...string) *domain.RawDocument {
	return &domain.RawDocument{
		SourceDocument: domain.SourceDocument{
			SourceID:    "src-1",
			Path:        "inbox/2026/planning_notes.eml",
			ContentHash: "h1",
			MIMEType:    "message/rfc822",
		},
		Content: []byte(strings.Join(lines, "\r\n")),
	}
}

func TestNormalise_PlainMessage(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"To: team@example.com",
		"Date: Tue, 03 Feb 2026 09:30:00 +0000",
		"Subject: Sync rollout",
		"",
		"The rollout starts Monday.",
	)
	raw.Metadata = map[string]string{"connector_type": "filesystem", "filename": "planning_notes.eml"}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	doc := result.Document
	assert.Equal(t, "Sync rollout", doc.Title)
	assert.Equal(t, "src-1", doc.SourceID)
	assert.Equal(t, "h1", doc.ContentHash)
	assert.True(t, strings.HasPrefix(doc.Content, "From: ana@example.com"))
	assert.Contains(t, doc.Content, "Subject: Sync rollout")
	assert.Contains(t, doc.Content, "The rollout starts Monday.")

	assert.Equal(t, "filesystem", doc.Metadata["connector_type"])
	assert.Equal(t, "eml", doc.Metadata["format"])
	assert.Equal(t, "message/rfc822", doc.Metadata["mime_type"])
	assert.Equal(t, "ana@example.com", doc.Metadata["from"])
	assert.Equal(t, "team@example.com", doc.Metadata["to"])
}

func TestNormalise_MultipartPrefersPlainText(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"Subject: Release",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="frontier"`,
		"",
		"--frontier",
		"Content-Type: text/plain",
		"",
		"plain body wins",
		"--frontier",
		"Content-Type: text/html",
		"",
		"<p>html body loses</p>",
		"--frontier--",
	)

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "plain body wins")
	assert.NotContains(t, result.Document.Content, "html body loses")
}

func TestNormalise_HTMLOnlyBodyIsStripped(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"Subject: Minutes",
		"Content-Type: text/html",
		"",
		"<html><body><h1>Minutes</h1><p>All items closed.</p></body></html>",
	)

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "All items closed.")
	assert.NotContains(t, result.Document.Content, "<p>")
}

func TestNormalise_QuotedPrintableBody(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"Subject: Menu",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Lunch at the caf=C3=A9 today.",
	)

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "Lunch at the café today.")
}

func TestNormalise_Base64Part(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"Subject: Notes",
		`Content-Type: multipart/mixed; boundary="xx"`,
		"",
		"--xx",
		"Content-Type: text/plain",
		"Content-Transfer-Encoding: base64",
		"",
		"dmVjdG9yIHN5bmMgcmVsZWFzZSBub3Rlcw==",
		"--xx--",
	)

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Contains(t, result.Document.Content, "vector sync release notes")
}

func TestNormalise_EncodedSubject(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"Subject: =?UTF-8?Q?Caf=C3=A9_menu?=",
		"",
		"body",
	)

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Café menu", result.Document.Title)
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	raw := rawMessage(
		"From: ana@example.com",
		"",
		"no subject here",
	)

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "planning notes", result.Document.Title)
}

func TestNormalise_NotAMessage(t *testing.T) {
	raw := rawMessage("")
	raw.Content = []byte("\x00\x01 not mail")

	_, err := New().Normalise(context.Background(), raw)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_NilInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_SupportedTypes(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"message/rfc822"}, n.SupportedMIMETypes())
	assert.Nil(t, n.SupportedConnectorTypes())
	assert.Equal(t, 50, n.Priority())
}
