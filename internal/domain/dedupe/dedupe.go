// Package dedupe guards application submissions so that one person cannot
// submit to the same event twice at the same time.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

// Guard records which (event, person) submissions are in flight or done.
type Guard interface {
	// SeenAndRecord reports true if the pair was already recorded, otherwise
	// records it and reports false. It is atomic.
	SeenAndRecord(ctx context.Context, eventID, personID string) bool

	// Unrecord forgets the pair so the submission can be retried. Callers
	// use it when the write that followed SeenAndRecord failed.
	Unrecord(ctx context.Context, eventID, personID string)

	Size() int
}

type key struct {
	event, person string
}

// memoryGuard keeps at most maxSize pairs, evicting the oldest first. An
// evicted pair is still protected by the store's unique index.
type memoryGuard struct {
	mu      sync.Mutex
	seen    map[key]*list.Element
	order   *list.List
	maxSize int
}

// NewInMemoryGuard creates a bounded in-memory guard.
func NewInMemoryGuard(opts ...Option) Guard {
	g := &memoryGuard{
		maxSize: 50000,
		seen:    make(map[key]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *memoryGuard) SeenAndRecord(_ context.Context, eventID, personID string) bool {
	k := key{eventID, personID}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[k]; ok {
		return true
	}
	if g.maxSize > 0 && len(g.seen) >= g.maxSize {
		if oldest := g.order.Front(); oldest != nil {
			delete(g.seen, oldest.Value.(key))
			g.order.Remove(oldest)
		}
	}
	g.seen[k] = g.order.PushBack(k)
	return false
}

func (g *memoryGuard) Unrecord(_ context.Context, eventID, personID string) {
	k := key{eventID, personID}
	g.mu.Lock()
	defer g.mu.Unlock()
	if el, ok := g.seen[k]; ok {
		g.order.Remove(el)
		delete(g.seen, k)
	}
}

func (g *memoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
