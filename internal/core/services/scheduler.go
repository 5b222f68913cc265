package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// schedulerTick is the granularity at which due sources are checked.
// Poll intervals are multiples of it in practice.
const schedulerTick = time.Second

// Scheduler drives continuous mode: it starts a run for a source when
// its poll interval elapses, when an external caller marked it pending,
// or when a connector watch event hints at changes. Runs go through
// the orchestrator, which keeps them single-flight per source.
type Scheduler struct {
	orchestrator driving.SyncOrchestrator
	sources      driven.SourceStore
	factory      driven.ConnectorFactory
	defaultPoll  time.Duration
	clock        Clock
	log          *logger.Logger

	mu      sync.Mutex
	lastRun map[string]time.Time

	group    errgroup.Group
	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

// NewScheduler creates a scheduler. A nil clock means the wall clock.
func NewScheduler(
	orchestrator driving.SyncOrchestrator,
	sources driven.SourceStore,
	factory driven.ConnectorFactory,
	cfg domain.SyncConfig,
	clock Clock,
	log *logger.Logger,
) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = domain.DefaultPollInterval
	}
	concurrency := cfg.SourceConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	s := &Scheduler{
		orchestrator: orchestrator,
		sources:      sources,
		factory:      factory,
		defaultPoll:  poll,
		clock:        clock,
		log:          log.Named("scheduler"),
		lastRun:      make(map[string]time.Time),
		stopCh:       make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	s.group.SetLimit(concurrency)
	return s
}

// Start runs the scheduling loop until the context is cancelled or
// Stop is called. Watch subscriptions are established once at startup
// for the sources that support them.
func (s *Scheduler) Start(ctx context.Context) error {
	defer close(s.stopped)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.startWatchers(ctx); err != nil {
		return err
	}

	ticker := s.clock.NewTicker(schedulerTick)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("poll_interval", s.defaultPoll))
	for {
		select {
		case <-ctx.Done():
			s.drain()
			return ctx.Err()
		case <-s.stopCh:
			cancel()
			s.drain()
			return nil
		case <-ticker.C():
			s.dispatchDue(ctx)
		}
	}
}

// Stop signals the loop to exit and waits for in-flight runs.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.stopped
	return nil
}

// dispatchDue starts a run for every source whose time has come.
// Sources beyond the concurrency limit are simply retried next tick.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	sources, err := s.sources.List(ctx)
	if err != nil {
		s.log.Warn("list sources", zap.Error(err))
		return
	}

	now := s.clock.Now()
	for _, source := range sources {
		if !s.due(source, now) {
			continue
		}
		source := source
		started := s.group.TryGo(func() error {
			run, err := s.orchestrator.Sync(ctx, source.ID)
			switch {
			case errors.Is(err, domain.ErrSyncInProgress):
				// Another trigger won the race; nothing to do.
			case err != nil:
				s.log.Warn("scheduled run failed",
					zap.String("source_id", source.ID), zap.Error(err))
			case run != nil && run.Status == domain.RunPartial:
				s.log.Warn("scheduled run partial",
					zap.String("source_id", source.ID),
					zap.Int("errored", run.Errored))
			}
			return nil
		})
		if started {
			s.markRun(source.ID, now)
		}
	}
}

// due reports whether a source should run now: pending status always
// wins, otherwise its poll interval must have elapsed since the last
// dispatch.
func (s *Scheduler) due(source domain.Source, now time.Time) bool {
	if source.Status == domain.StatusPending {
		return true
	}
	poll := source.PollInterval
	if poll <= 0 {
		poll = s.defaultPoll
	}

	s.mu.Lock()
	last, ran := s.lastRun[source.ID]
	s.mu.Unlock()
	if !ran {
		return true
	}
	return !now.Before(last.Add(poll))
}

func (s *Scheduler) markRun(sourceID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[sourceID] = at
}

// startWatchers subscribes to change hints for watch-capable sources.
// A watch event marks the source pending; the next tick runs a normal
// full pass, so events stay advisory.
func (s *Scheduler) startWatchers(ctx context.Context) error {
	sources, err := s.sources.List(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	for _, source := range sources {
		source := source
		conn, err := s.factory.Create(ctx, source)
		if err != nil {
			s.log.Warn("watch connector", zap.String("source_id", source.ID), zap.Error(err))
			continue
		}
		if !conn.Capabilities().SupportsWatch {
			s.closeConnector(conn, source.ID)
			continue
		}
		events, err := conn.Watch(ctx)
		if err != nil {
			s.log.Warn("start watch", zap.String("source_id", source.ID), zap.Error(err))
			s.closeConnector(conn, source.ID)
			continue
		}

		go func() {
			defer s.closeConnector(conn, source.ID)
			for {
				select {
				case <-ctx.Done():
					return
				case event, ok := <-events:
					if !ok {
						return
					}
					s.log.Debug("watch event",
						zap.String("source_id", event.SourceID),
						zap.String("path", event.Path))
					if err := s.sources.UpdateStatus(ctx, source.ID, domain.StatusPending, ""); err != nil {
						s.log.Warn("mark source pending",
							zap.String("source_id", source.ID), zap.Error(err))
					}
				}
			}
		}()
		s.log.Info("watching source", zap.String("source_id", source.ID))
	}
	return nil
}

func (s *Scheduler) closeConnector(conn driven.Connector, sourceID string) {
	if err := conn.Close(); err != nil {
		s.log.Debug("close connector", zap.String("source_id", sourceID), zap.Error(err))
	}
}

// drain waits for in-flight runs to finish their current document.
func (s *Scheduler) drain() {
	//nolint:errcheck // runs report failures through logs and run records
	_ = s.group.Wait()
}
