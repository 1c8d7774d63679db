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
)

// applyAllBatch is how many applications ApplyAll writes per transaction.
const applyAllBatch = 100

// SetAdmin grants admin rights to the person registered with email,
// creating the profile (first name = the address's local part) if needed.
func (s *Service) SetAdmin(ctx context.Context, email string) (model.Person, bool, error) {
	const op = "service.set_admin"
	email = model.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return model.Person{}, false, fmt.Errorf("%s: %w: email %q", op, ErrInvalidInput, email)
	}
	now := s.now().UTC()
	admin := true

	p, err := s.store.PersonByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.store.Apply(ctx, []mutation.Mutation{mutation.UpdatePerson{ID: p.ID, IsAdmin: &admin, UpdatedAt: now}}); err != nil {
			return model.Person{}, false, fmt.Errorf("%s: %w", op, err)
		}
		p.IsAdmin, p.UpdatedAt = true, now
		s.logger.Info(ctx, "promoted to admin", logger.String("person_id", p.ID))
		return p, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return model.Person{}, false, fmt.Errorf("%s: %w", op, err)
	}

	local, _, _ := strings.Cut(email, "@")
	p = model.Person{ID: s.newID(), Email: email, FirstName: local, IsAdmin: true, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Apply(ctx, []mutation.Mutation{mutation.UpsertPerson{Person: p}}); err != nil {
		return model.Person{}, false, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "created admin", logger.String("person_id", p.ID))
	return p, true, nil
}

// ApplyAll creates an applied application for every person who has not
// applied to eventID yet and returns how many were created. Answers are not
// created.
func (s *Service) ApplyAll(ctx context.Context, eventID string) (int, error) {
	const op = "service.apply_all"
	if _, err := s.store.LoadEvent(ctx, eventID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	people, err := s.store.PeopleWithoutApplication(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	created := 0
	for start := 0; start < len(people); start += applyAllBatch {
		end := min(start+applyAllBatch, len(people))
		now := s.now().UTC()
		batch := make([]mutation.Mutation, 0, end-start)
		for _, p := range people[start:end] {
			batch = append(batch, mutation.CreateApplication{Application: model.Application{
				ID: s.newID(), EventID: eventID, PersonID: p.ID, Status: model.StatusApplied,
				CreatedAt: now, UpdatedAt: now,
			}})
		}
		if err := s.store.Apply(ctx, batch); err != nil {
			return created, fmt.Errorf("%s: batch at %d: %w", op, start, err)
		}
		created += len(batch)
		s.logger.Debug(ctx, "apply-all batch written", logger.Int("created", created), logger.Int("total", len(people)))
	}
	return created, nil
}

// ProfileText returns the text the suggest service embeds for the person
// registered with email.
func (s *Service) ProfileText(ctx context.Context, email string) (string, error) {
	p, err := s.store.PersonByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("service.profile_text: %w", err)
	}
	return p.ProfileText(), nil
}
