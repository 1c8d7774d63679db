package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// Submission outcomes recorded in metrics.
const (
	outcomeAccepted  = "accepted"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// Submit creates personID's application to the event at slug together with
// one answer per question. answers maps question id to text; every required
// question needs a non-blank answer and unanswered optional questions are
// stored blank.
func (s *Service) Submit(ctx context.Context, slug, personID string, answers map[string]string) (model.Application, error) {
	const op = "service.submit"
	app, outcome, err := s.submit(ctx, slug, personID, answers)
	metrics.RecordSubmission(outcome)
	if err != nil {
		return model.Application{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "application submitted",
		logger.String("application_id", app.ID),
		logger.String("event_id", app.EventID),
		logger.String("person_id", personID))
	return app, nil
}

func (s *Service) submit(ctx context.Context, slug, personID string, answers map[string]string) (model.Application, string, error) {
	ev, err := s.store.EventBySlug(ctx, slug)
	if err != nil {
		return model.Application{}, outcomeInvalid, err
	}
	if _, err := s.store.Person(ctx, personID); err != nil {
		return model.Application{}, outcomeInvalid, err
	}

	if s.guard.SeenAndRecord(ctx, ev.ID, personID) {
		return model.Application{}, outcomeDuplicate, repository.ErrDuplicateApplication
	}
	ok := false
	defer func() {
		if !ok {
			s.guard.Unrecord(ctx, ev.ID, personID)
		}
	}()

	g, err := s.store.LoadEvent(ctx, ev.ID)
	if err != nil {
		return model.Application{}, outcomeFailed, err
	}
	if _, exists := g.ApplicationFor(personID); exists {
		// keep the pair recorded: the application is already stored
		ok = true
		return model.Application{}, outcomeDuplicate, repository.ErrDuplicateApplication
	}
	for _, q := range g.Questions {
		if q.Required && strings.TrimSpace(answers[q.ID]) == "" {
			return model.Application{}, outcomeInvalid, fmt.Errorf("%w: %q", ErrMissingAnswer, q.Text)
		}
	}

	now := s.now().UTC()
	app := model.Application{
		ID:        s.newID(),
		EventID:   ev.ID,
		PersonID:  personID,
		Status:    model.StatusApplied,
		CreatedAt: now,
		UpdatedAt: now,
	}
	batch := make([]mutation.Mutation, 0, 1+len(g.Questions))
	batch = append(batch, mutation.CreateApplication{Application: app})
	for _, q := range g.Questions {
		a := model.Answer{ID: s.newID(), ApplicationID: app.ID, QuestionID: q.ID, QuestionText: q.Text, Text: answers[q.ID]}
		app.Answers = append(app.Answers, a)
		batch = append(batch, mutation.CreateAnswer{Answer: a})
	}
	if err := s.store.Apply(ctx, batch); err != nil {
		if errors.Is(err, repository.ErrDuplicateApplication) {
			ok = true
			return model.Application{}, outcomeDuplicate, err
		}
		return model.Application{}, outcomeFailed, err
	}
	ok = true
	return app, outcomeAccepted, nil
}
