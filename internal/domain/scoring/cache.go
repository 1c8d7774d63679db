package scoring

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheLogger sets the logger used to report degraded searches.
func WithCacheLogger(l logger.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cache memoises person scores per criterion text. It never refetches a
// criterion it holds and never runs two searches for the same text at once.
// Failed searches degrade to an empty mapping and are not stored, so a later
// Get retries them.
type Cache struct {
	searcher Searcher
	logger   logger.Logger
	group    singleflight.Group

	mu       sync.Mutex
	entries  map[string]PersonScores
	inflight map[string]int
}

// NewCache creates an empty cache backed by searcher.
func NewCache(searcher Searcher, opts ...CacheOption) *Cache {
	c := &Cache{
		searcher: searcher,
		logger:   logger.Nop(),
		entries:  make(map[string]PersonScores),
		inflight: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the scores for text, calling the searcher only when text has
// not been cached yet. Blank text yields an empty mapping without a call.
// The search is detached from ctx cancellation so a result that arrives after
// the caller gave up still fills the cache.
func (c *Cache) Get(ctx context.Context, text string) PersonScores {
	if strings.TrimSpace(text) == "" {
		return PersonScores{}
	}

	c.mu.Lock()
	if scores, ok := c.entries[text]; ok {
		c.mu.Unlock()
		metrics.RecordScoreCacheHit()
		return scores
	}
	c.inflight[text]++
	c.mu.Unlock()

	v, _, _ := c.group.Do(text, func() (any, error) {
		c.mu.Lock()
		if scores, ok := c.entries[text]; ok {
			c.mu.Unlock()
			return scores, nil
		}
		c.mu.Unlock()

		metrics.RecordScoreCacheMiss()
		scores, err := c.fetch(context.WithoutCancel(ctx), text)
		if err == nil {
			c.mu.Lock()
			c.entries[text] = scores
			c.mu.Unlock()
		}
		return scores, nil
	})

	c.mu.Lock()
	if c.inflight[text]--; c.inflight[text] <= 0 {
		delete(c.inflight, text)
	}
	c.mu.Unlock()
	return v.(PersonScores)
}

// Lookup returns the cached scores for text without calling the searcher.
func (c *Cache) Lookup(text string) (PersonScores, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scores, ok := c.entries[text]
	return scores, ok
}

// Loading reports whether a search for text is in flight.
func (c *Cache) Loading(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[text] > 0
}

// Len returns the number of cached criteria.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) fetch(ctx context.Context, text string) (PersonScores, error) {
	start := time.Now()
	suggestions, err := c.searcher.Search(ctx, text)
	metrics.RecordSearchCall(float64(time.Since(start).Milliseconds()))
	if err != nil {
		reason := "transport"
		if errors.Is(err, ErrInvalidResponse) {
			reason = "malformed"
		}
		metrics.RecordSearchFailure(reason)
		metrics.RecordErrorByComponent("score_cache", reason)
		c.logger.Warn(ctx, "criterion search failed; continuing without scores",
			logger.String("criterion", text),
			logger.Error(err),
		)
		return PersonScores{}, err
	}

	scores := make(PersonScores, len(suggestions))
	for _, s := range suggestions {
		if s.PersonID == "" {
			continue
		}
		v := clamp(s.Score)
		if prev, ok := scores[s.PersonID]; !ok || v > prev {
			scores[s.PersonID] = v
		}
	}
	c.logger.Debug(ctx, "criterion scored",
		logger.String("criterion", text),
		logger.Int("people", len(scores)),
		logger.Duration("took", time.Since(start)),
	)
	return scores, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
