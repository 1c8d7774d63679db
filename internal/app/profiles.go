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

// ProfilePatch lists the profile fields to change; nil fields are kept.
type ProfilePatch struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	LinkedIn      *string `json:"linkedin,omitempty"`
	Location      *string `json:"location,omitempty"`
	CurrentRole   *string `json:"current_role,omitempty"`
	PriorRole     *string `json:"prior_role,omitempty"`
	Education     *string `json:"education,omitempty"`
	InternalNotes *string `json:"internal_notes,omitempty"`
}

// EnsureProfile returns the person registered with email, creating an empty
// profile on first sight.
func (s *Service) EnsureProfile(ctx context.Context, email string) (model.Person, error) {
	const op = "service.ensure_profile"
	email = model.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return model.Person{}, fmt.Errorf("%s: %w: email %q", op, ErrInvalidInput, email)
	}
	p, err := s.store.PersonByEmail(ctx, email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Person{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	p = model.Person{ID: s.newID(), Email: email, CreatedAt: now, UpdatedAt: now}
	err = s.store.Apply(ctx, []mutation.Mutation{mutation.UpsertPerson{Person: p}})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		// created concurrently
		p, err = s.store.PersonByEmail(ctx, email)
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "profile created", logger.String("person_id", p.ID))
	return p, nil
}

// UpdateProfile changes the given fields of a person's profile.
func (s *Service) UpdateProfile(ctx context.Context, personID string, patch ProfilePatch) (model.Person, error) {
	const op = "service.update_profile"
	m := mutation.UpdatePerson{
		ID:            personID,
		FirstName:     trimmed(patch.FirstName),
		LastName:      trimmed(patch.LastName),
		LinkedIn:      trimmed(patch.LinkedIn),
		Location:      trimmed(patch.Location),
		CurrentRole:   trimmed(patch.CurrentRole),
		PriorRole:     trimmed(patch.PriorRole),
		Education:     trimmed(patch.Education),
		InternalNotes: patch.InternalNotes,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.store.Apply(ctx, []mutation.Mutation{m}); err != nil {
		return model.Person{}, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.store.Person(ctx, personID)
	if err != nil {
		return model.Person{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Person returns a profile by id.
func (s *Service) Person(ctx context.Context, personID string) (model.Person, error) {
	p, err := s.store.Person(ctx, personID)
	if err != nil {
		return model.Person{}, fmt.Errorf("service.person: %w", err)
	}
	return p, nil
}

// PersonByEmail returns a profile by email.
func (s *Service) PersonByEmail(ctx context.Context, email string) (model.Person, error) {
	p, err := s.store.PersonByEmail(ctx, email)
	if err != nil {
		return model.Person{}, fmt.Errorf("service.person_by_email: %w", err)
	}
	return p, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
