// Package workflow compiles review decisions into store mutations.
//
// Applications start as applied and move to confirmed or rejected. Transition
// itself is unconditional; Guard is the optional check callers run at the
// write boundary to keep terminal states terminal.
package workflow

import (
	"fmt"
	"time"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
)

// Transition returns one status write per id, {status: target,
// reviewed_at: now}. A single transition is a batch of one.
func Transition(ids []string, target model.Status, now time.Time) ([]mutation.Mutation, error) {
	if target != model.StatusConfirmed && target != model.StatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	if len(ids) == 0 {
		return nil, ErrNothingToApply
	}
	out := make([]mutation.Mutation, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		status := target
		reviewedAt := now
		out = append(out, mutation.UpdateApplication{
			ID:         id,
			Status:     &status,
			ReviewedAt: &reviewedAt,
			UpdatedAt:  now,
		})
	}
	return out, nil
}

// EditNotes returns the write for an internal-notes edit. Notes are
// independent of status.
func EditNotes(id, notes string, now time.Time) mutation.Mutation {
	return mutation.UpdateApplication{ID: id, InternalNotes: &notes, UpdatedAt: now}
}

// SkipReason says why Guard left an id out.
type SkipReason string

// Skip reasons.
const (
	SkipTerminal SkipReason = "terminal"
	SkipUnknown  SkipReason = "unknown"
)

// Skip is an id Guard refused, with the status it was found in.
type Skip struct {
	ID     string       `json:"id"`
	Reason SkipReason   `json:"reason"`
	Status model.Status `json:"status,omitempty"`
}

// Plan is the outcome of Guard: the ids to write and the ids left out.
type Plan struct {
	Apply   []string `json:"apply"`
	Skipped []Skip   `json:"skipped,omitempty"`
}

// Guard splits ids into those that may move out of applied and those that
// may not. records is the event's current record set. With enforce false
// every known id is kept, which reproduces the unguarded behaviour.
func Guard(records []model.Application, ids []string, enforce bool) Plan {
	byID := make(map[string]model.Status, len(records))
	for _, r := range records {
		byID[r.ID] = r.Status
	}
	var p Plan
	for _, id := range ids {
		status, ok := byID[id]
		switch {
		case !ok:
			p.Skipped = append(p.Skipped, Skip{ID: id, Reason: SkipUnknown})
		case enforce && status.Terminal():
			p.Skipped = append(p.Skipped, Skip{ID: id, Reason: SkipTerminal, Status: status})
		default:
			p.Apply = append(p.Apply, id)
		}
	}
	return p
}
