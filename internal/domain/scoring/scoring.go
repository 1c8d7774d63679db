// Package scoring turns criterion text into per-application relevance scores.
//
// The semantic search service scores people, not applications. Cache keeps
// one mapping per criterion for the lifetime of a review session and
// IdentityMap translates it to the applications of the current event.
package scoring

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
)

// Suggestion is one scored person returned by the search service.
type Suggestion struct {
	PersonID string         `json:"userId"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Searcher ranks people against free text. Implementations return ErrBlankQuery
// for blank text without doing any work.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Suggestion, error)
}

// PersonScores maps person id to a similarity in [0,1]. A missing key means
// the person was not scored.
type PersonScores map[string]float64

// AppScores maps application id to a similarity in [0,1].
type AppScores map[string]float64

// Score returns the score for id and whether it is known.
func (s AppScores) Score(id string) (*float64, bool) {
	v, ok := s[id]
	if !ok {
		return nil, false
	}
	return &v, true
}

// Default in-memory searcher configuration.
const (
	defaultMinLatency = 20 * time.Millisecond
	defaultMaxLatency = 60 * time.Millisecond
	defaultRandomSeed = 42
)

// SearcherOption configures an InMemorySearcher.
type SearcherOption func(*InMemorySearcher)

// WithLatencyRange sets the simulated latency range. A zero range disables it.
func WithLatencyRange(minLatency, maxLatency time.Duration) SearcherOption {
	return func(s *InMemorySearcher) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithDocuments seeds the searcher with person id -> profile text.
func WithDocuments(docs map[string]string) SearcherOption {
	return func(s *InMemorySearcher) {
		for id, text := range docs {
			s.docs[id] = tokenize(text)
		}
	}
}

// InMemorySearcher is a local stand-in for the semantic search service. It
// scores a profile by the share of query terms it contains, which is enough
// to exercise ranking without an embedding backend.
type InMemorySearcher struct {
	mu         sync.RWMutex
	docs       map[string]map[string]struct{}
	minLatency time.Duration
	maxLatency time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewInMemorySearcher creates a searcher with simulated latency.
func NewInMemorySearcher(opts ...SearcherOption) *InMemorySearcher {
	s := &InMemorySearcher{
		docs:       make(map[string]map[string]struct{}),
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		rng:        rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic latency
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDocument adds or replaces the profile text of a person.
func (s *InMemorySearcher) SetDocument(personID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[personID] = tokenize(text)
}

// Search scores every document against query, best first. Documents sharing
// no term with the query are left out.
func (s *InMemorySearcher) Search(ctx context.Context, query string) ([]Suggestion, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, ErrBlankQuery
	}

	if latency := s.latency(); latency > 0 {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(latency):
		}
	}

	s.mu.RLock()
	out := make([]Suggestion, 0, len(s.docs))
	for id, doc := range s.docs {
		hit := 0
		for t := range terms {
			if _, ok := doc[t]; ok {
				hit++
			}
		}
		if hit > 0 {
			out = append(out, Suggestion{PersonID: id, Score: float64(hit) / float64(len(terms))})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PersonID < out[j].PersonID
	})
	return out, nil
}

func (s *InMemorySearcher) latency() time.Duration {
	if s.maxLatency <= 0 {
		return 0
	}
	if s.maxLatency == s.minLatency {
		return s.minLatency
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}
