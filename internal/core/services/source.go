package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages source definitions and their runtime state.
// Sources are declared in configuration; at startup they are reconciled
// into the metadata store, where their runtime status lives.
type SourceService struct {
	sources driven.SourceStore
	states  driven.SyncStateStore
	cursors driven.SyncCursorStore
	vectors driven.VectorStore
	log     *logger.Logger
}

// NewSourceService creates a source service.
func NewSourceService(
	sources driven.SourceStore,
	states driven.SyncStateStore,
	cursors driven.SyncCursorStore,
	vectors driven.VectorStore,
	log *logger.Logger,
) *SourceService {
	return &SourceService{
		sources: sources,
		states:  states,
		cursors: cursors,
		vectors: vectors,
		log:     log.Named("sources"),
	}
}

// Reconcile upserts the configured sources into the store. Runtime
// fields of known sources are preserved, except that a status of
// syncing is reset to idle: a process restart means no run is active,
// whatever the previous process left behind. Pending survives so
// triggers fired just before a restart are not lost.
func (s *SourceService) Reconcile(ctx context.Context, configured []domain.Source) error {
	now := time.Now().UTC()
	for i := range configured {
		src := configured[i]
		if err := src.Validate(); err != nil {
			return err
		}

		existing, err := s.sources.Get(ctx, src.ID)
		var staleSync bool
		switch {
		case errors.Is(err, domain.ErrNotFound):
			src.Status = domain.StatusIdle
			src.CreatedAt = now
			src.UpdatedAt = now
		case err != nil:
			return fmt.Errorf("get source %s: %w", src.ID, err)
		default:
			src.Status = existing.Status
			src.LastError = existing.LastError
			src.CreatedAt = existing.CreatedAt
			src.UpdatedAt = now
			staleSync = existing.Status == domain.StatusSyncing
		}

		if err := s.sources.Save(ctx, src); err != nil {
			return fmt.Errorf("save source %s: %w", src.ID, err)
		}

		// Save leaves runtime status alone for known sources, so the
		// stale-run reset goes through the status transition instead.
		if staleSync {
			s.log.Warn("resetting stale syncing status", zap.String("source_id", src.ID))
			if err := s.sources.UpdateStatus(ctx, src.ID, domain.StatusIdle, ""); err != nil {
				return fmt.Errorf("reset source %s status: %w", src.ID, err)
			}
		}
	}
	return nil
}

// Get retrieves a source by ID.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	return s.sources.Get(ctx, id)
}

// List returns all configured sources.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	return s.sources.List(ctx)
}

// Remove deletes a source together with everything derived from it:
// stored chunks, sync state rows, and the enumeration cursor. Chunks
// go first so a failure part-way leaves rows that a retry still finds.
func (s *SourceService) Remove(ctx context.Context, id string) error {
	states, err := s.states.ListBySource(ctx, id)
	if err != nil {
		return fmt.Errorf("list sync states: %w", err)
	}

	var chunkIDs []string
	for _, state := range states {
		chunkIDs = append(chunkIDs, state.ChunkIDs...)
	}
	if len(chunkIDs) > 0 {
		if err := s.vectors.Delete(ctx, chunkIDs); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
	}

	for _, state := range states {
		if err := s.states.Delete(ctx, state.SourceID, state.Path); err != nil {
			return fmt.Errorf("delete sync state for %s: %w", state.Path, err)
		}
	}

	if err := s.cursors.DeleteCursor(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete cursor: %w", err)
	}

	if err := s.sources.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}

	s.log.Info("source removed",
		zap.String("source_id", id),
		zap.Int("documents", len(states)),
		zap.Int("chunks", len(chunkIDs)))
	return nil
}
