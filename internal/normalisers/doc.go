// Package normalisers turns raw connector output into embeddable text.
// Each subpackage handles a set of MIME types; the Registry picks the
// best match per document, preferring connector-specific handlers and
// then higher priority.
//
// Normalisers are registered at startup via RegisterDefaults.
package normalisers
