package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator coordinates one synchronisation pass per source:
// enumerate, plan, embed, reconcile, record. It is the only component
// that finalises SyncRun records, and it enforces a single active run
// per source.
type SyncOrchestrator struct {
	sources    driven.SourceStore
	states     driven.SyncStateStore
	cursors    driven.SyncCursorStore
	runs       driven.SyncRunStore
	factory    driven.ConnectorFactory
	planner    *Planner
	worker     *EmbedWorker
	reconciler *Reconciler
	cfg        domain.SyncConfig
	profile    string
	log        *logger.Logger

	// Status tracking for in-flight runs.
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(
	sources driven.SourceStore,
	states driven.SyncStateStore,
	cursors driven.SyncCursorStore,
	runs driven.SyncRunStore,
	factory driven.ConnectorFactory,
	planner *Planner,
	worker *EmbedWorker,
	reconciler *Reconciler,
	cfg domain.SyncConfig,
	profile string,
	log *logger.Logger,
) *SyncOrchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = domain.DefaultWorkers
	}
	if cfg.SourceConcurrency <= 0 {
		cfg.SourceConcurrency = 1
	}
	return &SyncOrchestrator{
		sources:     sources,
		states:      states,
		cursors:     cursors,
		runs:        runs,
		factory:     factory,
		planner:     planner,
		worker:      worker,
		reconciler:  reconciler,
		cfg:         cfg,
		profile:     profile,
		log:         log.Named("sync"),
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
}

// Sync runs one pass for a source and returns its run record. The
// record is returned even when the pass failed, alongside the failure.
func (o *SyncOrchestrator) Sync(ctx context.Context, sourceID string) (*domain.SyncRun, error) {
	source, err := o.sources.Get(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}

	if err := o.claim(sourceID); err != nil {
		return nil, err
	}
	defer o.release(sourceID)

	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		StartedAt: time.Now().UTC(),
	}
	o.log.Info("sync started",
		zap.String("source_id", sourceID),
		zap.String("run_id", run.ID))

	if err := o.sources.UpdateStatus(ctx, sourceID, domain.StatusSyncing, ""); err != nil {
		o.log.Warn("update source status", zap.String("source_id", sourceID), zap.Error(err))
	}

	runErr := o.runPass(ctx, source, run)
	run.Finalise(time.Now().UTC(), runErr)

	if err := o.runs.RecordRun(ctx, *run); err != nil {
		o.log.Warn("record run", zap.String("run_id", run.ID), zap.Error(err))
	}

	if runErr != nil {
		o.setStage(sourceID, domain.StageFailed)
		if err := o.sources.UpdateStatus(ctx, sourceID, domain.StatusError, runErr.Error()); err != nil {
			o.log.Warn("update source status", zap.String("source_id", sourceID), zap.Error(err))
		}
		o.log.Warn("sync failed",
			zap.String("source_id", sourceID),
			zap.String("run_id", run.ID),
			zap.Error(runErr))
		return run, runErr
	}

	if err := o.sources.UpdateStatus(ctx, sourceID, domain.StatusIdle, ""); err != nil {
		o.log.Warn("update source status", zap.String("source_id", sourceID), zap.Error(err))
	}
	o.log.Info("sync finished",
		zap.String("source_id", sourceID),
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("embedded", run.Embedded),
		zap.Int("deleted", run.Deleted),
		zap.Int("unchanged", run.Unchanged),
		zap.Int("errored", run.Errored))
	return run, nil
}

// runPass executes the stages of one run. A returned error means the
// pass never completed enumeration or was cancelled; per-document
// failures are counted on the run instead.
func (o *SyncOrchestrator) runPass(ctx context.Context, source *domain.Source, run *domain.SyncRun) error {
	conn, err := o.factory.Create(ctx, *source)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer conn.Close()

	if conn.Capabilities().SupportsValidation {
		if err := conn.Validate(ctx); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
		}
	}

	cursor := ""
	if cur, err := o.cursors.GetCursor(ctx, source.ID); err == nil {
		cursor = cur.Cursor
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("get cursor: %w", err)
	}

	o.setStage(source.ID, domain.StageEnumerating)
	listed, newCursor, err := o.enumerate(ctx, conn, cursor)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrEnumerationFailed, err)
	}

	o.setStage(source.ID, domain.StagePlanning)
	states, err := o.states.ListBySource(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("list sync states: %w", err)
	}
	plan := o.planner.Plan(source.ID, listed, states)
	run.Unchanged = plan.Unchanged
	o.setTotal(source.ID, len(plan.ToEmbed))
	o.log.Debug("plan ready",
		zap.String("source_id", source.ID),
		zap.Int("to_embed", len(plan.ToEmbed)),
		zap.Int("to_delete", len(plan.ToDelete)),
		zap.Int("newly_missing", len(plan.NewlyMissing)),
		zap.Int("unchanged", plan.Unchanged))

	prevStates := make(map[string]domain.SyncState, len(states))
	for _, s := range states {
		prevStates[s.Path] = s
	}

	o.setStage(source.ID, domain.StageEmbedding)
	var embedded, errored atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Workers)
	for _, doc := range plan.ToEmbed {
		doc := doc
		g.Go(func() error {
			// Cancellation checkpoint between documents. In-flight
			// documents finish; queued ones are abandoned.
			if ctx.Err() != nil {
				return nil
			}
			var prev *domain.SyncState
			if s, ok := prevStates[doc.Path]; ok {
				prev = &s
			}
			result, err := o.worker.Process(ctx, conn, doc)
			if err == nil {
				err = o.reconciler.Apply(ctx, prev, result, o.profile)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				errored.Add(1)
				o.bumpErrors(source.ID)
				o.log.Warn("document failed",
					zap.String("source_id", doc.SourceID),
					zap.String("path", doc.Path),
					zap.Error(err))
				return nil
			}
			embedded.Add(1)
			o.bumpProcessed(source.ID)
			return nil
		})
	}
	//nolint:errcheck // workers report through counters, never errors
	_ = g.Wait()

	run.Embedded = int(embedded.Load())
	run.Errored = int(errored.Load())
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", domain.ErrRunCancelled, ctx.Err())
	}

	o.setStage(source.ID, domain.StageReconciling)
	for _, state := range plan.ToDelete {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", domain.ErrRunCancelled, ctx.Err())
		}
		if err := o.reconciler.Remove(ctx, state); err != nil {
			run.Errored++
			o.bumpErrors(source.ID)
			o.log.Warn("deletion failed",
				zap.String("source_id", state.SourceID),
				zap.String("path", state.Path),
				zap.Error(err))
			continue
		}
		run.Deleted++
	}
	for _, path := range plan.NewlyMissing {
		if state, ok := prevStates[path]; ok {
			if err := o.reconciler.MarkMissing(ctx, state); err != nil {
				o.log.Warn("missing-counter update failed",
					zap.String("path", path), zap.Error(err))
			}
		}
	}
	for _, path := range plan.Reappeared {
		if state, ok := prevStates[path]; ok {
			if err := o.reconciler.ClearMissing(ctx, state); err != nil {
				o.log.Warn("missing-counter reset failed",
					zap.String("path", path), zap.Error(err))
			}
		}
	}

	// The cursor only advances on a sentinel-terminated enumeration,
	// which is the only way to reach this point.
	cur := domain.SyncCursor{
		SourceID: source.ID,
		Cursor:   newCursor,
		LastSync: time.Now().UTC(),
	}
	if err := o.cursors.SaveCursor(ctx, cur); err != nil {
		// Committed documents stay committed; a stale cursor only
		// costs a wider enumeration next run.
		o.log.Warn("save cursor", zap.String("source_id", source.ID), zap.Error(err))
	}

	o.setStage(source.ID, domain.StageDone)
	return nil
}

// enumerate drains the connector's channel pair into a full listing.
// Only a listing terminated by the completion sentinel is returned;
// anything else is a partial listing and surfaces as an error.
func (o *SyncOrchestrator) enumerate(ctx context.Context, conn driven.Connector, cursor string) ([]domain.SourceDocument, string, error) {
	docsCh, errsCh := conn.Enumerate(ctx, cursor)

	var (
		listed    []domain.SourceDocument
		newCursor string
		complete  bool
	)
	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			if ec, done := driven.IsEnumerationComplete(err); done {
				newCursor = ec.NewCursor
				complete = true
				continue
			}
			return nil, "", err

		case doc, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			listed = append(listed, doc)
		}
	}

	if !complete {
		return nil, "", errors.New("listing ended without completion sentinel")
	}
	return listed, newCursor, nil
}

// SyncAll runs one pass for every configured source. Sources fail
// independently; their errors are joined after all have been attempted.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) ([]domain.SyncRun, error) {
	sources, err := o.sources.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	var (
		mu   sync.Mutex
		runs []domain.SyncRun
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.SourceConcurrency)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			run, err := o.Sync(ctx, source.ID)
			mu.Lock()
			defer mu.Unlock()
			if run != nil {
				runs = append(runs, *run)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("sync %s: %w", source.ID, err))
			}
			return nil
		})
	}
	//nolint:errcheck // failures are collected per source
	_ = g.Wait()

	sort.Slice(runs, func(i, j int) bool { return runs[i].SourceID < runs[j].SourceID })
	if len(errs) > 0 {
		return runs, errors.Join(errs...)
	}
	return runs, nil
}

// Trigger marks a source pending so the scheduler starts it on the
// next tick.
func (o *SyncOrchestrator) Trigger(ctx context.Context, sourceID string) error {
	if _, err := o.sources.Get(ctx, sourceID); err != nil {
		return fmt.Errorf("get source: %w", err)
	}
	if err := o.sources.UpdateStatus(ctx, sourceID, domain.StatusPending, ""); err != nil {
		return fmt.Errorf("mark source pending: %w", err)
	}
	return nil
}

// Status returns the sync status for a source: live progress while a
// run is active, otherwise an idle status with the last completed sync
// time.
func (o *SyncOrchestrator) Status(ctx context.Context, sourceID string) (*driving.SyncStatus, error) {
	o.mu.RLock()
	active, running := o.activeSyncs[sourceID]
	var snapshot driving.SyncStatus
	if running {
		snapshot = *active
	}
	o.mu.RUnlock()

	if running {
		return &snapshot, nil
	}

	status := &driving.SyncStatus{
		SourceID: sourceID,
		Stage:    domain.StageIdle,
	}
	if cur, err := o.cursors.GetCursor(ctx, sourceID); err == nil {
		status.LastSync = cur.LastSync
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	return status, nil
}

// History returns recent completed runs, newest first.
func (o *SyncOrchestrator) History(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := o.runs.ListRuns(ctx, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// claim registers an active run for the source, rejecting a second one.
func (o *SyncOrchestrator) claim(sourceID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.activeSyncs[sourceID]; busy {
		return domain.ErrSyncInProgress
	}
	o.activeSyncs[sourceID] = &driving.SyncStatus{
		SourceID: sourceID,
		Running:  true,
		Stage:    domain.StageEnumerating,
	}
	return nil
}

func (o *SyncOrchestrator) release(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, sourceID)
}

func (o *SyncOrchestrator) setStage(sourceID string, stage domain.SyncStage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeSyncs[sourceID]; ok {
		status.Stage = stage
	}
}

func (o *SyncOrchestrator) setTotal(sourceID string, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeSyncs[sourceID]; ok {
		status.DocumentsTotal = total
	}
}

func (o *SyncOrchestrator) bumpProcessed(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeSyncs[sourceID]; ok {
		status.DocumentsProcessed++
	}
}

func (o *SyncOrchestrator) bumpErrors(sourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if status, ok := o.activeSyncs[sourceID]; ok {
		status.ErrorCount++
	}
}
