package domain

import "time"

// SyncState is the persisted outcome of the last successful
// reconciliation for one (source id, path). It is created on first
// successful embedding of a path, updated after each successful
// reconciliation, and deleted only once the path has been absent from
// enough consecutive complete enumerations to satisfy the deletion
// debounce. Only the planner/reconciler pair mutates it.
type SyncState struct {
	// SourceID links to the owning source.
	SourceID string

	// Path is the document path within the source.
	Path string

	// ContentHash is the last content version that was fully embedded
	// and reconciled.
	ContentHash string

	// ChunkIDs is the ordered chunk id set produced for ContentHash.
	// Empty for documents that yielded no extractable text; an empty
	// set still means "considered and skipped", not "unprocessed".
	ChunkIDs []string

	// ChunkProfile fingerprints the chunking parameters used. A
	// profile change is treated like a content change and forces
	// re-embedding.
	ChunkProfile string

	// MissingPasses counts consecutive complete enumerations that did
	// not list this path. Reset to zero whenever the path reappears.
	MissingPasses int

	// ModifiedAt is the source-reported modification time at last sync.
	ModifiedAt time.Time

	// SyncedAt is when the last successful reconciliation finished.
	SyncedAt time.Time
}

// StaleChunkIDs returns the previously stored chunk ids that are not in
// the new set. These are what reconciliation deletes to make a content
// replacement exact rather than additive.
func (s *SyncState) StaleChunkIDs(newIDs []string) []string {
	keep := make(map[string]struct{}, len(newIDs))
	for _, id := range newIDs {
		keep[id] = struct{}{}
	}
	var stale []string
	for _, id := range s.ChunkIDs {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

// SyncPlan is the minimal changeset for one source, produced by diffing
// a complete enumeration against stored sync state. All slices are
// ordered lexicographically by path so retries and logs are
// reproducible.
type SyncPlan struct {
	// SourceID is the source this plan belongs to.
	SourceID string

	// ToEmbed holds documents whose content hash differs from stored
	// state, is absent from it, or whose chunk profile changed.
	ToEmbed []SourceDocument

	// ToDelete holds stored states whose path has now been absent for
	// more complete enumerations than the debounce tolerates. Their
	// chunks and state rows are removed.
	ToDelete []SyncState

	// NewlyMissing holds paths absent from this enumeration whose
	// debounce is not yet exhausted. Their miss counters are
	// incremented and nothing else happens.
	NewlyMissing []string

	// Reappeared holds paths that were missing on previous passes but
	// are present and unchanged now. Their miss counters reset.
	Reappeared []string

	// Unchanged counts documents with identical hashes: no embedding
	// call, no store write.
	Unchanged int
}

// IsEmpty reports whether the plan requires any work.
func (p *SyncPlan) IsEmpty() bool {
	return len(p.ToEmbed) == 0 && len(p.ToDelete) == 0 &&
		len(p.NewlyMissing) == 0 && len(p.Reappeared) == 0
}

// RunStatus is the terminal status of a sync run.
type RunStatus string

const (
	// RunSuccess means every planned document committed.
	RunSuccess RunStatus = "success"
	// RunPartial means some documents errored but others committed.
	RunPartial RunStatus = "partial"
	// RunFailed means enumeration never completed; no state changed.
	RunFailed RunStatus = "failed"
)

// SyncStage is the orchestrator's position in a run.
type SyncStage string

const (
	StageIdle        SyncStage = "idle"
	StageEnumerating SyncStage = "enumerating"
	StagePlanning    SyncStage = "planning"
	StageEmbedding   SyncStage = "embedding"
	StageReconciling SyncStage = "reconciling"
	StageDone        SyncStage = "done"
	StageFailed      SyncStage = "failed"
)

// SyncRun is the append-only audit record of one orchestrator pass over
// one source. Never mutated after completion.
type SyncRun struct {
	// ID is the unique run identifier.
	ID string

	// SourceID is the source this run processed.
	SourceID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run reached a terminal stage.
	FinishedAt time.Time

	// Status is success, partial, or failed.
	Status RunStatus

	// Embedded counts documents whose chunks were embedded and
	// reconciled this run.
	Embedded int

	// Deleted counts documents removed after debounce confirmation.
	Deleted int

	// Unchanged counts documents skipped on identical hash.
	Unchanged int

	// Errored counts documents that failed chunking, embedding, or
	// reconciliation and will be retried next run.
	Errored int

	// Error holds the source-level failure reason for failed runs.
	Error string
}

// Finalise stamps the terminal status from the run's counters. A run
// that never completed enumeration is failed; one with errored
// documents alongside committed work is partial.
func (r *SyncRun) Finalise(finishedAt time.Time, enumerationErr error) {
	r.FinishedAt = finishedAt
	switch {
	case enumerationErr != nil:
		r.Status = RunFailed
		r.Error = enumerationErr.Error()
	case r.Errored > 0:
		r.Status = RunPartial
	default:
		r.Status = RunSuccess
	}
}
