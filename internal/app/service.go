// Package service implements the review engine's use cases on top of the
// document store and the semantic search client: review and editor
// sessions, submissions, profiles and admin operations.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/domain/dedupe"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

const (
	defaultSessionTTL = 2 * time.Hour
	defaultDedupeSize = 10_000
	janitorInterval   = time.Minute
)

// Service owns the store, the search client and every open session.
type Service struct {
	store    repository.Store
	searcher scoring.Searcher
	guard    dedupe.Guard

	enforceTerminal bool
	sessionTTL      time.Duration
	dedupeSize      int
	now             func() time.Time
	newID           func() string
	logger          logger.Logger

	mu      sync.Mutex
	reviews map[string]*ReviewSession
	editors map[string]*EditorSession
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEnforceTerminalStates controls whether confirmed and rejected
// applications are protected from further transitions.
func WithEnforceTerminalStates(enforce bool) Option {
	return func(s *Service) { s.enforceTerminal = enforce }
}

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithDedupeSize bounds the submission guard.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the random UUID generator for new records.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a Service. searcher may be nil, in which case criteria
// never produce scores.
func New(store repository.Store, searcher scoring.Searcher, opts ...Option) *Service {
	s := &Service{
		store:           store,
		searcher:        searcher,
		enforceTerminal: true,
		sessionTTL:      defaultSessionTTL,
		dedupeSize:      defaultDedupeSize,
		now:             time.Now,
		newID:           uuid.NewString,
		logger:          logger.Nop(),
		reviews:         make(map[string]*ReviewSession),
		editors:         make(map[string]*EditorSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.searcher == nil {
		s.searcher = noSearcher{}
	}
	s.guard = dedupe.NewInMemoryGuard(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start launches the idle-session janitor.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.janitor(ctx, s.stopCh, s.doneCh)
	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.Bool("enforce_terminal_states", s.enforceTerminal),
		logger.Duration("session_ttl", s.sessionTTL))
	return nil
}

// Stop closes every session and stops the janitor.
func (s *Service) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	stopCh, doneCh := s.stopCh, s.doneCh
	reviews := s.reviews
	s.reviews = make(map[string]*ReviewSession)
	s.editors = make(map[string]*EditorSession)
	s.mu.Unlock()

	if started {
		close(stopCh)
		<-doneCh
	}
	for _, r := range reviews {
		r.Close()
	}
	metrics.UpdateActiveSessions(0)
	s.logger.Info(context.Background(), "review service stopped")
}

func (s *Service) janitor(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-t.C:
			if n := s.ExpireIdle(); n > 0 {
				s.logger.Info(ctx, "expired idle sessions", logger.Int("count", n))
			}
		}
	}
}

// ExpireIdle closes sessions idle for longer than the TTL and returns how
// many were closed.
func (s *Service) ExpireIdle() int {
	cutoff := s.now().Add(-s.sessionTTL)
	var expired []*ReviewSession
	n := 0

	s.mu.Lock()
	for id, r := range s.reviews {
		if r.lastSeen().Before(cutoff) {
			expired = append(expired, r)
			delete(s.reviews, id)
		}
	}
	for id, e := range s.editors {
		if e.lastSeen().Before(cutoff) {
			delete(s.editors, id)
			n++
		}
	}
	s.updateSessionGauge()
	s.mu.Unlock()

	for _, r := range expired {
		r.Close()
	}
	return n + len(expired)
}

// updateSessionGauge must be called with s.mu held.
func (s *Service) updateSessionGauge() {
	metrics.UpdateActiveSessions(len(s.reviews) + len(s.editors))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"started":                 s.started,
		"reviewSessions":          len(s.reviews),
		"editorSessions":          len(s.editors),
		"recentSubmissions":       s.guard.Size(),
		"enforceTerminalStates":   s.enforceTerminal,
		"sessionTTLSeconds":       s.sessionTTL.Seconds(),
		"submissionGuardCapacity": s.dedupeSize,
	}
}

// noSearcher scores nothing.
type noSearcher struct{}

func (noSearcher) Search(context.Context, string) ([]scoring.Suggestion, error) {
	return nil, nil
}
