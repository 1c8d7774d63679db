// Package selection tracks which applications are chosen for a bulk action.
package selection

import "sync"

// Tracker is a set of application ids that remembers insertion order. It is
// safe for concurrent use.
//
// The set is not kept in sync with any filtered list: ids that are no longer
// visible stay selected until deselected.
type Tracker struct {
	mu    sync.RWMutex
	index map[string]int
	ids   []string
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{index: make(map[string]int)}
}

// Toggle adds id if absent, removes it otherwise, and reports whether id is
// selected afterwards.
func (t *Tracker) Toggle(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[id]; ok {
		t.remove(id)
		return false
	}
	t.index[id] = len(t.ids)
	t.ids = append(t.ids, id)
	return true
}

// SelectAll replaces the selection with visible.
func (t *Tracker) SelectAll(visible []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = make(map[string]int, len(visible))
	t.ids = t.ids[:0]
	for _, id := range visible {
		if _, dup := t.index[id]; dup {
			continue
		}
		t.index[id] = len(t.ids)
		t.ids = append(t.ids, id)
	}
}

// DeselectAll empties the selection.
func (t *Tracker) DeselectAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = make(map[string]int)
	t.ids = nil
}

// Contains reports whether id is selected.
func (t *Tracker) Contains(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[id]
	return ok
}

// IDs returns the selected ids in the order they were selected.
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Len returns the number of selected ids.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ids)
}

func (t *Tracker) remove(id string) {
	i := t.index[id]
	delete(t.index, id)
	t.ids = append(t.ids[:i], t.ids[i+1:]...)
	for j := i; j < len(t.ids); j++ {
		t.index[t.ids[j]] = j
	}
}
