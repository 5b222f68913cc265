package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
)

// mockOrchestrator implements driving.SyncOrchestrator with overridable
// behaviour per test.
type mockOrchestrator struct {
	syncFn    func(ctx context.Context, sourceID string) (*domain.SyncRun, error)
	syncAllFn func(ctx context.Context) ([]domain.SyncRun, error)
	triggerFn func(ctx context.Context, sourceID string) error
	statusFn  func(ctx context.Context, sourceID string) (*driving.SyncStatus, error)
	historyFn func(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error)
}

func (m *mockOrchestrator) Sync(ctx context.Context, sourceID string) (*domain.SyncRun, error) {
	if m.syncFn != nil {
		return m.syncFn(ctx, sourceID)
	}
	return &domain.SyncRun{SourceID: sourceID, Status: domain.RunSuccess}, nil
}

func (m *mockOrchestrator) SyncAll(ctx context.Context) ([]domain.SyncRun, error) {
	if m.syncAllFn != nil {
		return m.syncAllFn(ctx)
	}
	return nil, nil
}

func (m *mockOrchestrator) Trigger(ctx context.Context, sourceID string) error {
	if m.triggerFn != nil {
		return m.triggerFn(ctx, sourceID)
	}
	return nil
}

func (m *mockOrchestrator) Status(ctx context.Context, sourceID string) (*driving.SyncStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, sourceID)
	}
	return &driving.SyncStatus{SourceID: sourceID}, nil
}

func (m *mockOrchestrator) History(ctx context.Context, sourceID string, limit int) ([]domain.SyncRun, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, sourceID, limit)
	}
	return nil, nil
}

// mockSourceService implements driving.SourceService.
type mockSourceService struct {
	getFn    func(ctx context.Context, id string) (*domain.Source, error)
	listFn   func(ctx context.Context) ([]domain.Source, error)
	removeFn func(ctx context.Context, id string) error
}

func (m *mockSourceService) Reconcile(_ context.Context, _ []domain.Source) error {
	return nil
}

func (m *mockSourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &domain.Source{ID: id}, nil
}

func (m *mockSourceService) List(ctx context.Context) ([]domain.Source, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockSourceService) Remove(ctx context.Context, id string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, id)
	}
	return nil
}

// mockQueryService implements driving.QueryService.
type mockQueryService struct {
	queryFn func(ctx context.Context, text string, opts driving.QueryOptions) ([]driving.QueryResult, error)
}

func (m *mockQueryService) Query(ctx context.Context, text string, opts driving.QueryOptions) ([]driving.QueryResult, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, text, opts)
	}
	return nil, nil
}

// mockScheduler implements driving.Scheduler.
type mockScheduler struct {
	startFn func(ctx context.Context) error
}

func (m *mockScheduler) Start(ctx context.Context) error {
	if m.startFn != nil {
		return m.startFn(ctx)
	}
	return nil
}

func (m *mockScheduler) Stop() error {
	return nil
}

// withServices swaps the injected services for a test and restores the
// previous wiring afterwards.
func withServices(t *testing.T, s Services) {
	t.Helper()

	oldOrch := syncOrchestrator
	oldSched := scheduler
	oldSources := sourceService
	oldQuery := queryService
	oldPreflight := preflight

	SetServices(s)
	preflight = nil

	t.Cleanup(func() {
		syncOrchestrator = oldOrch
		scheduler = oldSched
		sourceService = oldSources
		queryService = oldQuery
		preflight = oldPreflight
	})
}

// executeCommand runs the root command with the given arguments and
// captures its combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
