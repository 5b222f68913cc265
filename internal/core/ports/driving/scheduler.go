package driving

import "context"

// Scheduler drives continuous-mode synchronisation. It polls sources on
// their configured intervals, picks up externally triggered sources,
// and folds in connector watch events where available.
type Scheduler interface {
	// Start begins running scheduled syncs.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops scheduling. In-flight runs finish their
	// current document before stopping.
	Stop() error
}
