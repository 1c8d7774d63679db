package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/internal/domain/questions"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// EventFields are the editable fields of an event. A save overwrites all of
// them.
type EventFields struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	StartsAt       *time.Time        `json:"starts_at"`
	EndsAt         *time.Time        `json:"ends_at"`
	Location       string            `json:"location"`
	Status         model.EventStatus `json:"status"`
	SelectionNotes string            `json:"selection_notes"`
}

func fieldsOf(e model.Event) EventFields {
	return EventFields{
		Title:          e.Title,
		Description:    e.Description,
		StartsAt:       e.StartsAt,
		EndsAt:         e.EndsAt,
		Location:       e.Location,
		Status:         e.Status,
		SelectionNotes: e.SelectionNotes,
	}
}

func (f EventFields) validate() error {
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !f.Status.Valid() {
		return fmt.Errorf("%w: event status %q", ErrInvalidInput, f.Status)
	}
	if f.StartsAt != nil && f.EndsAt != nil && f.EndsAt.Before(*f.StartsAt) {
		return fmt.Errorf("%w: event ends before it starts", ErrInvalidInput)
	}
	return nil
}

// EditorView is the editor's working copy.
type EditorView struct {
	SessionID string            `json:"session_id"`
	EventID   string            `json:"event_id"`
	Slug      string            `json:"slug"`
	Fields    EventFields       `json:"fields"`
	Questions []questions.Entry `json:"questions"`
	Saving    bool              `json:"saving"`
}

// EditorSession holds an event's form state and working question list until
// it is saved. Questions are edited locally and written together with the
// event fields in one batch.
type EditorSession struct {
	id     string
	svc    *Service
	logger logger.Logger

	mu     sync.Mutex
	event  model.Event
	fields EventFields
	list   *questions.List
	saving bool
	seen   time.Time
}

func newEditorSession(svc *Service, id string, g *model.EventGraph) *EditorSession {
	return &EditorSession{
		id:     id,
		svc:    svc,
		logger: svc.logger.Named("editor").With(logger.String("session_id", id), logger.String("event_id", g.Event.ID)),
		event:  g.Event,
		fields: fieldsOf(g.Event),
		list:   questions.NewList(g.Questions, questions.WithIDGenerator(svc.newID)),
		seen:   svc.now(),
	}
}

// ID returns the session id.
func (e *EditorSession) ID() string { return e.id }

func (e *EditorSession) lastSeen() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen
}

// View renders the working copy.
func (e *EditorSession) View() EditorView {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = e.svc.now()
	return e.viewLocked()
}

func (e *EditorSession) viewLocked() EditorView {
	return EditorView{
		SessionID: e.id,
		EventID:   e.event.ID,
		Slug:      e.event.Slug,
		Fields:    e.fields,
		Questions: e.list.Entries(),
		Saving:    e.saving,
	}
}

// edit runs fn on the working copy unless a save is in flight.
func (e *EditorSession) edit(fn func() error) (EditorView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.saving {
		return EditorView{}, ErrSaveInProgress
	}
	e.seen = e.svc.now()
	if err := fn(); err != nil {
		return EditorView{}, err
	}
	return e.viewLocked(), nil
}

// SetFields replaces the form fields. They are validated on save.
func (e *EditorSession) SetFields(f EventFields) (EditorView, error) {
	return e.edit(func() error {
		e.fields = f
		return nil
	})
}

// AppendQuestion adds an empty question at the end.
func (e *EditorSession) AppendQuestion() (questions.EntryID, EditorView, error) {
	var id questions.EntryID
	v, err := e.edit(func() error {
		id = e.list.Append()
		return nil
	})
	return id, v, err
}

// UpdateQuestion patches one question.
func (e *EditorSession) UpdateQuestion(id questions.EntryID, p questions.Patch) (EditorView, error) {
	return e.edit(func() error { return e.list.Update(id, p) })
}

// RemoveQuestion drops one question from the working list.
func (e *EditorSession) RemoveQuestion(id questions.EntryID) (EditorView, error) {
	return e.edit(func() error { return e.list.Remove(id) })
}

// MoveQuestion swaps one question with its neighbour above or below.
func (e *EditorSession) MoveQuestion(id questions.EntryID, up bool) (EditorView, error) {
	return e.edit(func() error {
		var err error
		if up {
			_, err = e.list.MoveUp(id)
		} else {
			_, err = e.list.MoveDown(id)
		}
		return err
	})
}

// Save writes the event fields and the reconciled questions in one batch.
// On failure the working copy is left exactly as it was.
func (e *EditorSession) Save(ctx context.Context) (EditorView, error) {
	const op = "service.save_event"

	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return EditorView{}, ErrSaveInProgress
	}
	if err := e.fields.validate(); err != nil {
		e.mu.Unlock()
		return EditorView{}, fmt.Errorf("%s: %w", op, err)
	}
	e.seen = e.svc.now()
	now := e.svc.now().UTC()
	f := e.fields
	f.Title = strings.TrimSpace(f.Title)
	saved := e.event
	saved.Title = f.Title
	saved.Slug = model.EventSlug(f.Title, saved.ID)
	saved.Description = f.Description
	saved.StartsAt, saved.EndsAt = f.StartsAt, f.EndsAt
	saved.Location = f.Location
	saved.Status = f.Status
	saved.SelectionNotes = f.SelectionNotes
	saved.UpdatedAt = now

	changes := e.list.Reconcile()
	batch := []mutation.Mutation{mutation.UpdateEvent{
		ID:             saved.ID,
		Slug:           saved.Slug,
		Title:          saved.Title,
		Description:    saved.Description,
		StartsAt:       saved.StartsAt,
		EndsAt:         saved.EndsAt,
		Location:       saved.Location,
		Status:         saved.Status,
		SelectionNotes: saved.SelectionNotes,
		UpdatedAt:      now,
	}}
	batch = append(batch, changes.Mutations(saved.ID, e.svc.newID)...)
	e.saving = true
	e.mu.Unlock()

	err := e.svc.store.Apply(ctx, batch)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if err != nil {
		e.logger.Warn(ctx, "event save failed", logger.Error(err))
		return EditorView{}, fmt.Errorf("%s: %w", op, err)
	}
	e.event = saved
	e.fields = fieldsOf(saved)
	e.list = questions.NewList(savedQuestions(saved.ID, batch), questions.WithIDGenerator(e.svc.newID))
	metrics.RecordQuestionSave()
	e.logger.Info(ctx, "event saved",
		logger.Int("deleted", len(changes.Deletes)),
		logger.Int("created", len(changes.Creates)),
		logger.Int("updated", len(changes.Updates)))
	return e.viewLocked(), nil
}

// savedQuestions rebuilds the stored question set from a committed batch.
func savedQuestions(eventID string, batch []mutation.Mutation) []model.Question {
	var out []model.Question
	for _, m := range batch {
		switch m := m.(type) {
		case mutation.UpdateQuestion:
			out = append(out, model.Question{ID: m.ID, EventID: eventID, Text: m.Text, Required: m.Required, Order: m.Order})
		case mutation.CreateQuestion:
			out = append(out, m.Question)
		}
	}
	return out
}
