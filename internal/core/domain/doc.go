// Package domain defines the core business entities for vecsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: A document listing entry from a connector
//   - RawDocument: Opaque bytes from a connector
//   - Document: A normalised, text-extracted document
//   - Chunk: An embeddable unit within a document
//   - Source: A configured data source
//   - SyncState: Per-document synchronisation record
//   - SyncRun: Audit record of one synchronisation pass
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
