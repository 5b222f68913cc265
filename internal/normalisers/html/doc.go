// Package html provides a Normaliser implementation for HTML documents.
// It extracts readable text from HTML, stripping tags, scripts, and
// styles and decoding entities, so the chunker and embedder see prose
// rather than markup.
package html
