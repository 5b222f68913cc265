package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// keyedMutex serialises work per key with a fixed pool of striped
// locks. Two keys may share a stripe, which over-serialises but never
// under-serialises.
type keyedMutex struct {
	stripes [64]sync.Mutex
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	m.Lock()
	return m
}

// Reconciler applies a document's changes to the vector store and then
// the metadata store. The ordering is fixed: new chunks are upserted
// first, stale chunks deleted second, sync state written last. A crash
// between steps is healed on the next run because chunk ids are
// deterministic and the stored hash still mismatches.
type Reconciler struct {
	vectors driven.VectorStore
	states  driven.SyncStateStore
	locks   keyedMutex
	log     *logger.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(vectors driven.VectorStore, states driven.SyncStateStore, log *logger.Logger) *Reconciler {
	return &Reconciler{
		vectors: vectors,
		states:  states,
		log:     log.Named("reconcile"),
	}
}

// Apply commits one embedded document. prev is the stored state before
// this run, nil for documents never synced. Transitions of the same
// document are serialised, so two racing hash updates cannot
// interleave their vector writes.
func (r *Reconciler) Apply(ctx context.Context, prev *domain.SyncState, result *EmbedResult, profile string) error {
	doc := result.Doc
	mu := r.locks.lock(doc.SourceID + "\x00" + doc.Path)
	defer mu.Unlock()

	toUpsert := make([]domain.Chunk, 0, len(result.Chunks))
	newIDs := make([]string, len(result.Chunks))
	for i, chunk := range result.Chunks {
		newIDs[i] = chunk.ID
		if len(chunk.Embedding) > 0 {
			toUpsert = append(toUpsert, chunk)
		}
	}

	if len(toUpsert) > 0 {
		if err := r.vectors.Upsert(ctx, toUpsert); err != nil {
			return fmt.Errorf("upsert chunks for %s: %w", doc.Path, err)
		}
	}

	if prev != nil {
		if stale := prev.StaleChunkIDs(newIDs); len(stale) > 0 {
			if err := r.vectors.Delete(ctx, stale); err != nil {
				return fmt.Errorf("delete stale chunks for %s: %w", doc.Path, err)
			}
		}
	}

	state := domain.SyncState{
		SourceID:     doc.SourceID,
		Path:         doc.Path,
		ContentHash:  doc.ContentHash,
		ChunkIDs:     newIDs,
		ChunkProfile: profile,
		ModifiedAt:   doc.ModifiedAt,
		SyncedAt:     time.Now().UTC(),
	}
	if err := r.states.Save(ctx, state); err != nil {
		return fmt.Errorf("save sync state for %s: %w", doc.Path, err)
	}

	r.log.Debug("document reconciled",
		zap.String("source_id", doc.SourceID),
		zap.String("path", doc.Path),
		zap.Int("chunks", len(newIDs)),
		zap.Int("embedded", len(toUpsert)))
	return nil
}

// Remove deletes a debounce-confirmed document: all its chunks first,
// its state row only after. A crash in between leaves a state row whose
// chunks are already gone; the next pass repeats the harmless delete.
func (r *Reconciler) Remove(ctx context.Context, state domain.SyncState) error {
	mu := r.locks.lock(state.SourceID + "\x00" + state.Path)
	defer mu.Unlock()

	if len(state.ChunkIDs) > 0 {
		if err := r.vectors.Delete(ctx, state.ChunkIDs); err != nil {
			return fmt.Errorf("delete chunks for %s: %w", state.Path, err)
		}
	}
	if err := r.states.Delete(ctx, state.SourceID, state.Path); err != nil {
		return fmt.Errorf("delete sync state for %s: %w", state.Path, err)
	}

	r.log.Debug("document removed",
		zap.String("source_id", state.SourceID),
		zap.String("path", state.Path),
		zap.Int("chunks", len(state.ChunkIDs)))
	return nil
}

// MarkMissing advances a document's deletion debounce counter after a
// complete enumeration did not list it.
func (r *Reconciler) MarkMissing(ctx context.Context, state domain.SyncState) error {
	mu := r.locks.lock(state.SourceID + "\x00" + state.Path)
	defer mu.Unlock()

	state.MissingPasses++
	if err := r.states.Save(ctx, state); err != nil {
		return fmt.Errorf("mark %s missing: %w", state.Path, err)
	}
	return nil
}

// ClearMissing resets the debounce counter for a document that
// reappeared unchanged.
func (r *Reconciler) ClearMissing(ctx context.Context, state domain.SyncState) error {
	mu := r.locks.lock(state.SourceID + "\x00" + state.Path)
	defer mu.Unlock()

	state.MissingPasses = 0
	if err := r.states.Save(ctx, state); err != nil {
		return fmt.Errorf("clear missing for %s: %w", state.Path, err)
	}
	return nil
}
