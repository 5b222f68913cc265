package services

import (
	"sort"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Planner diffs a complete enumeration against stored sync state and
// produces the minimal changeset for a source. It is pure bookkeeping:
// no I/O, no side effects, deterministic output ordering.
type Planner struct {
	// debounce is how many consecutive complete enumerations a path
	// must be absent from, beyond the first, before it is deleted.
	debounce int

	// profile fingerprints the active chunking parameters. A stored
	// state with a different profile is re-embedded even when its
	// content hash is unchanged.
	profile string
}

// NewPlanner creates a planner for the given deletion debounce and
// chunking profile.
func NewPlanner(debounce int, profile string) *Planner {
	if debounce < 0 {
		debounce = 0
	}
	return &Planner{debounce: debounce, profile: profile}
}

// Plan diffs the enumerated documents against the stored states.
// Both inputs must come from the same source; listed must be a complete
// enumeration, since absence from it drives deletion bookkeeping.
// If the same path was enumerated more than once the last entry wins.
func (p *Planner) Plan(sourceID string, listed []domain.SourceDocument, states []domain.SyncState) domain.SyncPlan {
	plan := domain.SyncPlan{SourceID: sourceID}

	present := make(map[string]domain.SourceDocument, len(listed))
	for _, doc := range listed {
		present[doc.Path] = doc
	}
	stored := make(map[string]domain.SyncState, len(states))
	for _, state := range states {
		stored[state.SourceID+"\x00"+state.Path] = state
	}

	for path, doc := range present {
		state, ok := stored[sourceID+"\x00"+path]
		switch {
		case !ok:
			plan.ToEmbed = append(plan.ToEmbed, doc)
		case state.ContentHash != doc.ContentHash || state.ChunkProfile != p.profile:
			plan.ToEmbed = append(plan.ToEmbed, doc)
		case state.MissingPasses > 0:
			plan.Reappeared = append(plan.Reappeared, path)
		default:
			plan.Unchanged++
		}
	}

	for _, state := range states {
		if state.SourceID != sourceID {
			continue
		}
		if _, ok := present[state.Path]; ok {
			continue
		}
		if state.MissingPasses >= p.debounce {
			plan.ToDelete = append(plan.ToDelete, state)
		} else {
			plan.NewlyMissing = append(plan.NewlyMissing, state.Path)
		}
	}

	sort.Slice(plan.ToEmbed, func(i, j int) bool { return plan.ToEmbed[i].Path < plan.ToEmbed[j].Path })
	sort.Slice(plan.ToDelete, func(i, j int) bool { return plan.ToDelete[i].Path < plan.ToDelete[j].Path })
	sort.Strings(plan.NewlyMissing)
	sort.Strings(plan.Reappeared)

	return plan
}
