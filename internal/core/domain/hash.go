package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent computes the content hash for a document's raw bytes.
// The hash is the authoritative change signal: two enumerations of the
// same path are considered identical iff their hashes match, regardless
// of modification timestamps.
//
// SHA-256 hex. Stable across processes and machines. Changing the
// algorithm invalidates all persisted sync state and forces a full
// re-embedding, so it is fixed for the lifetime of a deployment.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
