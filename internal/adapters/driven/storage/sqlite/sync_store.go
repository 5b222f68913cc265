package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// defaultRunLimit bounds ListRuns when the caller passes no limit.
const defaultRunLimit = 50

// ==================== Sync State Store ====================

// syncStateStore implements driven.SyncStateStore.
type syncStateStore struct {
	store *Store
}

var _ driven.SyncStateStore = (*syncStateStore)(nil)

// Save stores or updates sync state for a document.
func (s *syncStateStore) Save(ctx context.Context, state domain.SyncState) error {
	chunkIDsJSON, err := json.Marshal(state.ChunkIDs)
	if err != nil {
		return fmt.Errorf("marshalling chunk ids: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_states (source_id, path, content_hash, chunk_ids,
			chunk_profile, missing_passes, modified_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, path) DO UPDATE SET
			content_hash = excluded.content_hash,
			chunk_ids = excluded.chunk_ids,
			chunk_profile = excluded.chunk_profile,
			missing_passes = excluded.missing_passes,
			modified_at = excluded.modified_at,
			synced_at = excluded.synced_at
	`, state.SourceID, state.Path, state.ContentHash, string(chunkIDsJSON),
		state.ChunkProfile, state.MissingPasses, state.ModifiedAt, state.SyncedAt)

	if err != nil {
		return fmt.Errorf("saving sync state: %w", err)
	}
	return nil
}

// Get retrieves sync state for a document.
func (s *syncStateStore) Get(ctx context.Context, sourceID, path string) (*domain.SyncState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, path, content_hash, chunk_ids, chunk_profile,
			missing_passes, modified_at, synced_at
		FROM sync_states WHERE source_id = ? AND path = ?
	`, sourceID, path)

	state, err := scanSyncState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return state, err
}

// ListBySource returns all sync states for a source, ordered by path.
func (s *syncStateStore) ListBySource(ctx context.Context, sourceID string) ([]domain.SyncState, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT source_id, path, content_hash, chunk_ids, chunk_profile,
			missing_passes, modified_at, synced_at
		FROM sync_states WHERE source_id = ? ORDER BY path
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("querying sync states: %w", err)
	}
	defer rows.Close()

	var states []domain.SyncState //nolint:prealloc // size unknown from query
	for rows.Next() {
		state, err := scanSyncState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync states: %w", err)
	}
	return states, nil
}

// Delete removes sync state for a document.
func (s *syncStateStore) Delete(ctx context.Context, sourceID, path string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_states WHERE source_id = ? AND path = ?", sourceID, path)
	if err != nil {
		return fmt.Errorf("deleting sync state: %w", err)
	}
	return nil
}

// scanSyncState scans one sync state row. Callers map sql.ErrNoRows.
func scanSyncState(row rowScanner) (*domain.SyncState, error) {
	var state domain.SyncState
	var chunkIDsJSON string
	var modifiedAt, syncedAt sql.NullTime

	if err := row.Scan(&state.SourceID, &state.Path, &state.ContentHash,
		&chunkIDsJSON, &state.ChunkProfile, &state.MissingPasses,
		&modifiedAt, &syncedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sync state: %w", err)
	}

	if err := json.Unmarshal([]byte(chunkIDsJSON), &state.ChunkIDs); err != nil {
		return nil, fmt.Errorf("unmarshalling chunk ids: %w", err)
	}

	if modifiedAt.Valid {
		state.ModifiedAt = modifiedAt.Time
	}
	if syncedAt.Valid {
		state.SyncedAt = syncedAt.Time
	}

	return &state, nil
}

// ==================== Sync Cursor Store ====================

// syncCursorStore implements driven.SyncCursorStore.
type syncCursorStore struct {
	store *Store
}

var _ driven.SyncCursorStore = (*syncCursorStore)(nil)

// SaveCursor stores or updates a source's cursor.
func (s *syncCursorStore) SaveCursor(ctx context.Context, cursor domain.SyncCursor) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_cursors (source_id, cursor, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(source_id) DO UPDATE SET
			cursor = excluded.cursor,
			last_sync = excluded.last_sync
	`, cursor.SourceID, cursor.Cursor, cursor.LastSync)

	if err != nil {
		return fmt.Errorf("saving sync cursor: %w", err)
	}
	return nil
}

// GetCursor retrieves a source's cursor.
func (s *syncCursorStore) GetCursor(ctx context.Context, sourceID string) (*domain.SyncCursor, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT source_id, cursor, last_sync FROM sync_cursors WHERE source_id = ?
	`, sourceID)

	var cursor domain.SyncCursor
	var lastSync sql.NullTime
	if err := row.Scan(&cursor.SourceID, &cursor.Cursor, &lastSync); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync cursor: %w", err)
	}

	if lastSync.Valid {
		cursor.LastSync = lastSync.Time
	}
	return &cursor, nil
}

// DeleteCursor removes a source's cursor.
func (s *syncCursorStore) DeleteCursor(ctx context.Context, sourceID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM sync_cursors WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting sync cursor: %w", err)
	}
	return nil
}

// ==================== Sync Run Store ====================

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

// RecordRun appends a completed run. Runs are never updated.
func (s *syncRunStore) RecordRun(ctx context.Context, run domain.SyncRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, source_id, started_at, finished_at,
			status, embedded, deleted, unchanged, errored, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.SourceID, run.StartedAt, run.FinishedAt,
		string(run.Status), run.Embedded, run.Deleted, run.Unchanged,
		run.Errored, run.Error)

	if err != nil {
		return fmt.Errorf("recording sync run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty
// sourceID returns runs for all sources. A non-positive limit returns
// a default window.
func (s *syncRunStore) ListRuns(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}

	query := `
		SELECT id, source_id, started_at, finished_at,
			status, embedded, deleted, unchanged, errored, error
		FROM sync_runs`
	args := []any{}
	if sourceID != "" {
		query += " WHERE source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.SyncRun
		var status string
		if err := rows.Scan(&run.ID, &run.SourceID, &run.StartedAt, &run.FinishedAt,
			&status, &run.Embedded, &run.Deleted, &run.Unchanged,
			&run.Errored, &run.Error); err != nil {
			return nil, fmt.Errorf("scanning sync run: %w", err)
		}
		run.Status = domain.RunStatus(status)
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync runs: %w", err)
	}
	return runs, nil
}
