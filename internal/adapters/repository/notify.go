package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

type subscription struct {
	once    sync.Once
	store   *SQLiteStore
	eventID string
	id      uint64
}

func (s *subscription) Close() {
	s.once.Do(func() { s.store.unsubscribe(s.eventID, s.id) })
}

// Subscribe delivers the current snapshot of eventID to fn before returning,
// then a fresh one after every committed batch that touches the event.
// Snapshots are shared between subscribers and must not be modified. fn runs
// on the writer's goroutine and must not call Apply.
func (s *SQLiteStore) Subscribe(ctx context.Context, eventID string, fn func(*model.EventGraph)) (Subscription, error) {
	const op = "repository.subscribe"
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	if s.closed {
		s.subsMu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}
	s.nextSub++
	id := s.nextSub
	if s.subs[eventID] == nil {
		s.subs[eventID] = make(map[uint64]func(*model.EventGraph))
	}
	s.subs[eventID][id] = fn
	s.subsMu.Unlock()

	sub := &subscription{store: s, eventID: eventID, id: id}
	g, err := loadGraph(ctx, s.db, eventID)
	if err != nil {
		sub.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fn(g)
	metrics.RecordSnapshotPush()
	return sub, nil
}

func (s *SQLiteStore) unsubscribe(eventID string, id uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if m := s.subs[eventID]; m != nil {
		delete(m, id)
		if len(m) == 0 {
			delete(s.subs, eventID)
		}
	}
}

func (s *SQLiteStore) isClosed() bool {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return s.closed
}

func (s *SQLiteStore) listeners(eventID string) []func(*model.EventGraph) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	m := s.subs[eventID]
	out := make([]func(*model.EventGraph), 0, len(m))
	for _, fn := range m {
		out = append(out, fn)
	}
	return out
}

// publish reloads every touched event that has listeners and pushes the
// snapshot. Failures are logged; the batch has already committed.
func (s *SQLiteStore) publish(ctx context.Context, events touched) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for eventID := range events {
		fns := s.listeners(eventID)
		if len(fns) == 0 {
			continue
		}
		g, err := loadGraph(ctx, s.db, eventID)
		if err != nil {
			s.logger.Error(ctx, "snapshot reload failed",
				logger.String("event_id", eventID),
				logger.Error(err))
			continue
		}
		for _, fn := range fns {
			fn(g)
			metrics.RecordSnapshotPush()
		}
	}
}
