package service

import (
	"context"
	"fmt"

	"github.com/okian/admit/pkg/logger"
)

// OpenReview starts a review session on eventID and subscribes it to the
// event's snapshots.
func (s *Service) OpenReview(ctx context.Context, eventID string) (*ReviewSession, error) {
	const op = "service.open_review"
	r := newReviewSession(s, s.newID(), eventID)
	sub, err := s.store.Subscribe(ctx, eventID, r.onSnapshot)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()

	s.mu.Lock()
	s.reviews[r.id] = r
	s.updateSessionGauge()
	s.mu.Unlock()

	s.logger.Info(ctx, "review session opened",
		logger.String("session_id", r.id),
		logger.String("event_id", eventID))
	return r, nil
}

// Review returns an open review session.
func (s *Service) Review(id string) (*ReviewSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return r, nil
}

// CloseReview closes and forgets a review session.
func (s *Service) CloseReview(id string) error {
	s.mu.Lock()
	r, ok := s.reviews[id]
	delete(s.reviews, id)
	s.updateSessionGauge()
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	r.Close()
	return nil
}

// OpenEditor loads eventID into a new editor session.
func (s *Service) OpenEditor(ctx context.Context, eventID string) (*EditorSession, error) {
	const op = "service.open_editor"
	g, err := s.store.LoadEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	e := newEditorSession(s, s.newID(), g)

	s.mu.Lock()
	s.editors[e.id] = e
	s.updateSessionGauge()
	s.mu.Unlock()
	return e, nil
}

// Editor returns an open editor session.
func (s *Service) Editor(id string) (*EditorSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.editors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// CloseEditor discards an editor session and its unsaved changes.
func (s *Service) CloseEditor(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.editors[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.editors, id)
	s.updateSessionGauge()
	return nil
}
