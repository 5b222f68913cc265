package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// sourceStore implements driven.SourceStore.
type sourceStore struct {
	store *Store
}

var _ driven.SourceStore = (*sourceStore)(nil)

// Save stores or updates a source's declared configuration. Runtime
// status is written only on first insert; after that it is owned by
// UpdateStatus, so re-reconciling configuration at startup cannot
// clobber an in-flight run.
func (s *sourceStore) Save(ctx context.Context, source domain.Source) error {
	includeJSON, err := json.Marshal(source.Include)
	if err != nil {
		return fmt.Errorf("marshalling include patterns: %w", err)
	}
	excludeJSON, err := json.Marshal(source.Exclude)
	if err != nil {
		return fmt.Errorf("marshalling exclude patterns: %w", err)
	}

	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now
	if source.Status == "" {
		source.Status = domain.StatusIdle
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sources (id, type, name, location, branch, include, exclude,
			max_file_size, credentials_file, poll_interval_seconds,
			status, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			location = excluded.location,
			branch = excluded.branch,
			include = excluded.include,
			exclude = excluded.exclude,
			max_file_size = excluded.max_file_size,
			credentials_file = excluded.credentials_file,
			poll_interval_seconds = excluded.poll_interval_seconds,
			updated_at = excluded.updated_at
	`, source.ID, source.Type, source.Name, source.Location, source.Branch,
		string(includeJSON), string(excludeJSON),
		source.MaxFileSize, source.CredentialsFile, int64(source.PollInterval/time.Second),
		string(source.Status), source.LastError, source.CreatedAt, source.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// Get retrieves a source by ID.
func (s *sourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, type, name, location, branch, include, exclude,
			max_file_size, credentials_file, poll_interval_seconds,
			status, last_error, created_at, updated_at
		FROM sources WHERE id = ?
	`, id)

	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return source, err
}

// Delete removes a source. Sync state and cursors cascade; run history
// is kept.
func (s *sourceStore) Delete(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting source: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns all configured sources, ordered by ID.
func (s *sourceStore) List(ctx context.Context) ([]domain.Source, error) {
	return s.querySources(ctx, `
		SELECT id, type, name, location, branch, include, exclude,
			max_file_size, credentials_file, poll_interval_seconds,
			status, last_error, created_at, updated_at
		FROM sources ORDER BY id
	`)
}

// UpdateStatus transitions a source's runtime status. The message is
// kept only for error statuses and cleared otherwise.
func (s *sourceStore) UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, message string) error {
	if status != domain.StatusError {
		message = ""
	}

	result, err := s.store.db.ExecContext(ctx, `
		UPDATE sources SET status = ?, last_error = ?, updated_at = ? WHERE id = ?
	`, string(status), message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating source status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating source status: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus returns sources currently in the given status, ordered
// by ID.
func (s *sourceStore) ListByStatus(ctx context.Context, status domain.SourceStatus) ([]domain.Source, error) {
	return s.querySources(ctx, `
		SELECT id, type, name, location, branch, include, exclude,
			max_file_size, credentials_file, poll_interval_seconds,
			status, last_error, created_at, updated_at
		FROM sources WHERE status = ? ORDER BY id
	`, string(status))
}

func (s *sourceStore) querySources(ctx context.Context, query string, args ...any) ([]domain.Source, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source //nolint:prealloc // size unknown from query
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sources: %w", err)
	}
	return sources, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSource scans one source row. Callers map sql.ErrNoRows.
func scanSource(row rowScanner) (*domain.Source, error) {
	var source domain.Source
	var includeJSON, excludeJSON, status string
	var pollSeconds int64
	var createdAt, updatedAt sql.NullTime

	if err := row.Scan(&source.ID, &source.Type, &source.Name, &source.Location,
		&source.Branch, &includeJSON, &excludeJSON,
		&source.MaxFileSize, &source.CredentialsFile, &pollSeconds,
		&status, &source.LastError, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}

	if err := json.Unmarshal([]byte(includeJSON), &source.Include); err != nil {
		return nil, fmt.Errorf("unmarshalling include patterns: %w", err)
	}
	if err := json.Unmarshal([]byte(excludeJSON), &source.Exclude); err != nil {
		return nil, fmt.Errorf("unmarshalling exclude patterns: %w", err)
	}

	source.PollInterval = time.Duration(pollSeconds) * time.Second
	source.Status = domain.SourceStatus(status)
	if createdAt.Valid {
		source.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		source.UpdatedAt = updatedAt.Time
	}

	return &source, nil
}
