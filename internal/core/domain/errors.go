package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector or normaliser type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotImplemented indicates an operation the implementation does
	// not support, such as Watch on a poll-only connector.
	ErrNotImplemented = errors.New("not implemented")

	// ErrSyncInProgress indicates a sync is already running for the source.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrRunCancelled indicates a run was cancelled before completion.
	ErrRunCancelled = errors.New("run cancelled")

	// Connector Errors.

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrEnumerationFailed indicates an enumeration terminated without
	// completing. An incomplete listing must never be treated as a set
	// of deletions.
	ErrEnumerationFailed = errors.New("enumeration failed")

	// ErrAuthRequired indicates the connector requires credentials but none
	// are configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the credentials have expired and refresh failed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrContentTooLarge indicates a fetched document exceeds the
	// connector's size cap. The document is recorded as errored rather
	// than embedded truncated.
	ErrContentTooLarge = errors.New("content exceeds size cap")

	// Embedding and Vector Store Errors.

	// ErrRateLimited indicates an API rate limit was exceeded.
	// Retryable after backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a temporary infrastructure failure
	// (timeout, 5xx, connection refused). Retryable with backoff.
	ErrTransient = errors.New("transient failure")

	// ErrEmbeddingRejected indicates the embedding service permanently
	// rejected the input. Not retryable; fails only the affected chunks.
	ErrEmbeddingRejected = errors.New("embedding input rejected")

	// ErrDimensionMismatch indicates the embedding model's output size does
	// not match the vector store collection. Fatal configuration error,
	// detected at startup.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrChunkTooLarge indicates a chunk could not be split below the
	// embedding service's request size limit.
	ErrChunkTooLarge = errors.New("chunk exceeds embedding size limit")
)

// IsRetryable reports whether an error is worth retrying with backoff.
// Rate limits and transient infrastructure failures qualify; validation
// and permanent rejections do not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}
