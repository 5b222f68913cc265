// Package sqlite provides a unified SQLite-based implementation of the
// metadata store ports.
//
// The adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation. It implements
// the metadata store interfaces through a single database connection:
//
//   - SourceStore: source definitions and runtime status
//   - SyncStateStore: per-document sync state
//   - SyncCursorStore: per-source enumeration cursors
//   - SyncRunStore: append-only run history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory. Each migration is a pair of .up.sql and
// .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.vecsync/data/metadata.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite
