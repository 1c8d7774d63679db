package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/domain/filter"
	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/internal/domain/selection"
	"github.com/okian/admit/internal/domain/types"
	"github.com/okian/admit/internal/domain/workflow"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// ReviewView is everything a reviewer sees for one event.
type ReviewView struct {
	SessionID       string             `json:"session_id"`
	Event           model.Event        `json:"event"`
	Questions       []model.Question   `json:"questions"`
	Criteria        []model.Criterion  `json:"criteria"`
	Status          model.StatusFilter `json:"status"`
	Query           string             `json:"query"`
	ActiveCriterion *model.Criterion   `json:"active_criterion"`
	// Loading is set while the active criterion's search is in flight.
	Loading  bool            `json:"loading"`
	Counts   types.TabCounts `json:"counts"`
	Rows     []types.Row     `json:"rows"`
	Selected []string        `json:"selected"`
}

// TransitionResult reports which applications were written and which the
// terminal-state guard left out.
type TransitionResult struct {
	Applied []string        `json:"applied"`
	Skipped []workflow.Skip `json:"skipped,omitempty"`
	View    ReviewView      `json:"view"`
}

// ReviewSession is one reviewer's live view of an event. The view is always
// re-derived from the latest snapshot, the filters, the active criterion's
// scores and the selection; nothing derived is stored.
type ReviewSession struct {
	id      string
	eventID string
	svc     *Service
	cache   *scoring.Cache
	picked  *selection.Tracker
	logger  logger.Logger

	sub repository.Subscription

	mu         sync.Mutex
	graph      *model.EventGraph
	status     model.StatusFilter
	query      string
	active     *model.Criterion
	generation uint64
	scores     scoring.AppScores
	seen       time.Time
	closed     bool
}

func newReviewSession(svc *Service, id, eventID string) *ReviewSession {
	l := svc.logger.Named("review").With(logger.String("session_id", id), logger.String("event_id", eventID))
	return &ReviewSession{
		id:      id,
		eventID: eventID,
		svc:     svc,
		cache:   scoring.NewCache(svc.searcher, scoring.WithCacheLogger(l)),
		picked:  selection.New(),
		logger:  l,
		graph:   &model.EventGraph{},
		status:  model.FilterAll,
		seen:    svc.now(),
	}
}

// ID returns the session id.
func (r *ReviewSession) ID() string { return r.id }

// EventID returns the reviewed event's id.
func (r *ReviewSession) EventID() string { return r.eventID }

// onSnapshot replaces the record set. Snapshots are shared and never
// modified here.
func (r *ReviewSession) onSnapshot(g *model.EventGraph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.graph = g
	if r.active == nil {
		return
	}
	var still *model.Criterion
	for i := range g.Criteria {
		if g.Criteria[i].ID == r.active.ID {
			c := g.Criteria[i]
			still = &c
			break
		}
	}
	if still == nil {
		r.active = nil
		r.scores = nil
		r.generation++
		return
	}
	r.active = still
	if ps, ok := r.cache.Lookup(still.Text); ok {
		r.scores = scoring.NewIdentityMap(g.Applications).Translate(ps)
	}
}

// View renders the current state.
func (r *ReviewSession) View() (ReviewView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ReviewView{}, ErrSessionClosed
	}
	r.touch()
	return r.viewLocked(), nil
}

func (r *ReviewSession) visibleLocked() []model.Application {
	return filter.Apply(filter.Input{
		Records: r.graph.Applications,
		Status:  r.status,
		Query:   r.query,
		Scores:  r.scores,
	})
}

func (r *ReviewSession) viewLocked() ReviewView {
	visible := r.visibleLocked()
	rows := make([]types.Row, 0, len(visible))
	for i, a := range visible {
		score, _ := r.scores.Score(a.ID)
		rows = append(rows, types.NewRow(i+1, a, score, r.picked.Contains(a.ID)))
	}
	v := ReviewView{
		SessionID: r.id,
		Event:     r.graph.Event,
		Questions: r.graph.Questions,
		Criteria:  r.graph.Criteria,
		Status:    r.status,
		Query:     r.query,
		Counts:    filter.Counts(r.graph.Applications, r.query),
		Rows:      rows,
		Selected:  r.picked.IDs(),
	}
	if r.active != nil {
		c := *r.active
		v.ActiveCriterion = &c
		v.Loading = r.cache.Loading(c.Text)
	}
	return v
}

func (r *ReviewSession) touch() { r.seen = r.svc.now() }

func (r *ReviewSession) lastSeen() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen
}

// SetFilter changes the status tab and the search text.
func (r *ReviewSession) SetFilter(status model.StatusFilter, query string) (ReviewView, error) {
	if !status.Valid() {
		return ReviewView{}, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	if status == "" {
		status = model.FilterAll
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ReviewView{}, ErrSessionClosed
	}
	r.touch()
	r.status, r.query = status, query
	return r.viewLocked(), nil
}

// SelectCriterion makes criterionID the active criterion, or clears it when
// it already is. Scores come from the session cache; a miss runs the search
// without holding the session lock and the result is applied only if no
// other criterion was picked meanwhile.
func (r *ReviewSession) SelectCriterion(ctx context.Context, criterionID string) (ReviewView, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ReviewView{}, ErrSessionClosed
	}
	r.touch()
	if r.active != nil && r.active.ID == criterionID {
		r.generation++
		r.active, r.scores = nil, nil
		v := r.viewLocked()
		r.mu.Unlock()
		return v, nil
	}

	var picked *model.Criterion
	for i := range r.graph.Criteria {
		if r.graph.Criteria[i].ID == criterionID {
			c := r.graph.Criteria[i]
			picked = &c
			break
		}
	}
	if picked == nil {
		r.mu.Unlock()
		return ReviewView{}, fmt.Errorf("%w: %s", ErrCriterionNotFound, criterionID)
	}
	r.generation++
	r.active = picked
	if ps, ok := r.cache.Lookup(picked.Text); ok {
		r.scores = scoring.NewIdentityMap(r.graph.Applications).Translate(ps)
		v := r.viewLocked()
		r.mu.Unlock()
		return v, nil
	}
	r.scores = nil
	gen := r.generation
	r.mu.Unlock()

	ps := r.cache.Get(ctx, picked.Text)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation == gen && !r.closed {
		r.scores = scoring.NewIdentityMap(r.graph.Applications).Translate(ps)
	} else {
		r.logger.Debug(ctx, "discarding stale scores", logger.String("criterion", picked.Text))
	}
	return r.viewLocked(), nil
}

// ToggleSelection flips one application in or out of the selection.
func (r *ReviewSession) ToggleSelection(applicationID string) (ReviewView, error) {
	return r.withSelection(func() { r.picked.Toggle(applicationID) })
}

// SelectAll selects exactly the currently visible applications.
func (r *ReviewSession) SelectAll() (ReviewView, error) {
	return r.withSelection(func() {
		visible := r.visibleLocked()
		ids := make([]string, 0, len(visible))
		for _, a := range visible {
			ids = append(ids, a.ID)
		}
		r.picked.SelectAll(ids)
	})
}

// DeselectAll empties the selection.
func (r *ReviewSession) DeselectAll() (ReviewView, error) {
	return r.withSelection(r.picked.DeselectAll)
}

func (r *ReviewSession) withSelection(fn func()) (ReviewView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ReviewView{}, ErrSessionClosed
	}
	r.touch()
	fn()
	return r.viewLocked(), nil
}

// Transition moves the given applications to target in one batch.
func (r *ReviewSession) Transition(ctx context.Context, ids []string, target model.Status) (TransitionResult, error) {
	return r.transition(ctx, ids, target, false)
}

// TransitionSelected moves every selected application to target in one
// batch and clears the selection once the write succeeds. Selected ids hidden
// by the current filter are included. When the guard skips every id the
// selection is kept.
func (r *ReviewSession) TransitionSelected(ctx context.Context, target model.Status) (TransitionResult, error) {
	return r.transition(ctx, r.picked.IDs(), target, true)
}

func (r *ReviewSession) transition(ctx context.Context, ids []string, target model.Status, bulk bool) (TransitionResult, error) {
	const op = "service.transition"
	if target != model.StatusConfirmed && target != model.StatusRejected {
		return TransitionResult{}, fmt.Errorf("%s: %w: %q", op, workflow.ErrInvalidTarget, target)
	}
	if len(ids) == 0 {
		return TransitionResult{}, fmt.Errorf("%s: %w", op, workflow.ErrNothingToApply)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return TransitionResult{}, ErrSessionClosed
	}
	r.touch()
	records := r.graph.Applications
	r.mu.Unlock()

	plan := workflow.Guard(records, ids, r.svc.enforceTerminal)
	if len(plan.Skipped) > 0 {
		metrics.RecordTransitionsSkipped(len(plan.Skipped))
		r.logger.Info(ctx, "transition skipped applications",
			logger.Int("skipped", len(plan.Skipped)),
			logger.String("target", string(target)))
	}

	if len(plan.Apply) > 0 {
		batch, err := workflow.Transition(plan.Apply, target, r.svc.now().UTC())
		if err != nil {
			return TransitionResult{}, fmt.Errorf("%s: %w", op, err)
		}
		if err := r.svc.store.Apply(ctx, batch); err != nil {
			metrics.RecordErrorByComponent("review", "store_write")
			return TransitionResult{}, fmt.Errorf("%s: %w", op, err)
		}
		metrics.RecordTransitions(string(target), len(plan.Apply))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bulk && len(plan.Apply) > 0 {
		r.picked.DeselectAll()
	}
	return TransitionResult{
		Applied: plan.Apply,
		Skipped: plan.Skipped,
		View:    r.viewLocked(),
	}, nil
}

// EditNotes overwrites an application's internal notes.
func (r *ReviewSession) EditNotes(ctx context.Context, applicationID, notes string) (ReviewView, error) {
	const op = "service.edit_notes"
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ReviewView{}, ErrSessionClosed
	}
	r.touch()
	_, ok := r.graph.Application(applicationID)
	r.mu.Unlock()
	if !ok {
		return ReviewView{}, fmt.Errorf("%s: %w: %s", op, ErrApplicationNotFound, applicationID)
	}

	if err := r.svc.store.Apply(ctx, []mutation.Mutation{workflow.EditNotes(applicationID, notes, r.svc.now().UTC())}); err != nil {
		return ReviewView{}, fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked(), nil
}

// Close tears down the store subscription. It is safe to call twice.
func (r *ReviewSession) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	sub := r.sub
	r.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}
