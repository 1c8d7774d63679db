package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/pkg/logger"
)

// NewQuestion is a question supplied when an event is created.
type NewQuestion struct {
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// NewEvent is the input of CreateEvent.
type NewEvent struct {
	EventFields
	Questions []NewQuestion `json:"questions"`
	Criteria  []string      `json:"criteria"`
}

// CreateEvent writes the event with its non-blank questions and criteria in
// one batch. An empty status means draft.
func (s *Service) CreateEvent(ctx context.Context, in NewEvent) (model.Event, error) {
	const op = "service.create_event"
	if in.Status == "" {
		in.Status = model.EventDraft
	}
	if err := in.EventFields.validate(); err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	id := s.newID()
	title := strings.TrimSpace(in.Title)
	ev := model.Event{
		ID:             id,
		Slug:           model.EventSlug(title, id),
		Title:          title,
		Description:    in.Description,
		StartsAt:       in.StartsAt,
		EndsAt:         in.EndsAt,
		Location:       in.Location,
		Status:         in.Status,
		SelectionNotes: in.SelectionNotes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	batch := []mutation.Mutation{mutation.CreateEvent{Event: ev}}
	order := 0
	for _, q := range in.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		batch = append(batch, mutation.CreateQuestion{Question: model.Question{
			ID: s.newID(), EventID: id, Text: text, Required: q.Required, Order: order,
		}})
		order++
	}
	for _, c := range in.Criteria {
		text := strings.TrimSpace(c)
		if text == "" {
			continue
		}
		batch = append(batch, mutation.CreateCriterion{Criterion: model.Criterion{
			ID: s.newID(), EventID: id, Text: text, CreatedAt: now,
		}})
	}

	if err := s.store.Apply(ctx, batch); err != nil {
		return model.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "event created",
		logger.String("event_id", id),
		logger.String("slug", ev.Slug),
		logger.Int("questions", order))
	return ev, nil
}

// ListEvents lists events newest first; publishedOnly restricts the list to
// what applicants may see.
func (s *Service) ListEvents(ctx context.Context, publishedOnly bool) ([]model.Event, error) {
	var status model.EventStatus
	if publishedOnly {
		status = model.EventPublished
	}
	events, err := s.store.ListEvents(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service.list_events: %w", err)
	}
	return events, nil
}

// EventBySlug returns an event with its questions, as an applicant sees it.
func (s *Service) EventBySlug(ctx context.Context, slug string) (model.Event, []model.Question, error) {
	const op = "service.event_by_slug"
	ev, err := s.store.EventBySlug(ctx, slug)
	if err != nil {
		return model.Event{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	g, err := s.store.LoadEvent(ctx, ev.ID)
	if err != nil {
		return model.Event{}, nil, fmt.Errorf("%s: %w", op, err)
	}
	return g.Event, g.Questions, nil
}

// AddCriterion stores a new criterion for eventID right away.
func (s *Service) AddCriterion(ctx context.Context, eventID, text string) (model.Criterion, error) {
	const op = "service.add_criterion"
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Criterion{}, fmt.Errorf("%s: %w: criterion text is required", op, ErrInvalidInput)
	}
	if _, err := s.store.LoadEvent(ctx, eventID); err != nil {
		return model.Criterion{}, fmt.Errorf("%s: %w", op, err)
	}
	c := model.Criterion{ID: s.newID(), EventID: eventID, Text: text, CreatedAt: s.now().UTC()}
	if err := s.store.Apply(ctx, []mutation.Mutation{mutation.CreateCriterion{Criterion: c}}); err != nil {
		return model.Criterion{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// RemoveCriterion deletes a criterion. Removing an unknown id is a no-op.
func (s *Service) RemoveCriterion(ctx context.Context, criterionID string) error {
	if err := s.store.Apply(ctx, []mutation.Mutation{mutation.DeleteCriterion{ID: criterionID}}); err != nil {
		return fmt.Errorf("service.remove_criterion: %w", err)
	}
	return nil
}
