package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/admit/internal/adapters/mq/queue"
	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/pkg/logger"
)

// QueryEmbedder embeds search queries.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// People lists the profiles to index.
type People interface {
	ListPeople(ctx context.Context) ([]model.Person, error)
	Person(ctx context.Context, id string) (model.Person, error)
}

// Service answers suggestion queries and feeds the indexing queue.
type Service struct {
	embedder QueryEmbedder
	index    *Index
	queue    queue.Queue
	people   People
	topK     int
	logger   logger.Logger
}

// NewService wires a suggest service. topK below one means no cap.
func NewService(e QueryEmbedder, ix *Index, q queue.Queue, people People, topK int, l logger.Logger) *Service {
	if l == nil {
		l = logger.Nop()
	}
	return &Service{embedder: e, index: ix, queue: q, people: people, topK: topK, logger: l.Named("suggest")}
}

// Suggest ranks indexed people against query.
func (s *Service) Suggest(ctx context.Context, query string) ([]scoring.Suggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, scoring.ErrBlankQuery
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return s.index.Query(vec, s.topK), nil
}

// Enqueue schedules p for (re)indexing.
func (s *Service) Enqueue(ctx context.Context, p model.Person) error {
	if !s.queue.Enqueue(ctx, JobFor(p)) {
		return fmt.Errorf("suggest: person %s: %w", p.ID, queue.ErrFull)
	}
	return nil
}

// EnqueuePerson loads the person with id and schedules it.
func (s *Service) EnqueuePerson(ctx context.Context, id string) error {
	p, err := s.people.Person(ctx, id)
	if err != nil {
		return fmt.Errorf("suggest: %w", err)
	}
	return s.Enqueue(ctx, p)
}

// EnqueueAll schedules every known profile and returns how many were queued.
// It stops at the first rejection.
func (s *Service) EnqueueAll(ctx context.Context) (int, error) {
	people, err := s.people.ListPeople(ctx)
	if err != nil {
		return 0, fmt.Errorf("suggest: list people: %w", err)
	}
	for i, p := range people {
		if err := s.Enqueue(ctx, p); err != nil {
			return i, err
		}
	}
	s.logger.Info(ctx, "profiles queued for indexing", logger.Int("count", len(people)))
	return len(people), nil
}

// Indexed returns the number of people in the index.
func (s *Service) Indexed() int { return s.index.Len() }

// JobFor builds the indexing job of a profile.
func JobFor(p model.Person) queue.Job {
	return queue.Job{
		PersonID: p.ID,
		Text:     p.ProfileText(),
		Metadata: map[string]string{
			"name":  strings.TrimSpace(p.FirstName + " " + p.LastName),
			"email": p.Email,
		},
	}
}
