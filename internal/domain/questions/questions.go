// Package questions keeps an edited, ordered question list and compiles it
// into the creates, updates and deletes needed to save it.
package questions

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
)

// EntryID identifies a working-list entry: either a question that only
// exists locally (Pending) or one already stored (Persisted).
type EntryID struct {
	pending bool
	value   string
}

// Pending returns the id of a not-yet-saved entry.
func Pending(localID string) EntryID { return EntryID{pending: true, value: localID} }

// Persisted returns the id of a stored question.
func Persisted(serverID string) EntryID { return EntryID{value: serverID} }

// IsPending reports whether the entry has never been saved.
func (id EntryID) IsPending() bool { return id.pending }

// Value is the local or server id without its tag.
func (id EntryID) Value() string { return id.value }

// String renders the id as "pending:<id>" or "persisted:<id>".
func (id EntryID) String() string {
	if id.pending {
		return "pending:" + id.value
	}
	return "persisted:" + id.value
}

// MarshalText implements encoding.TextMarshaler.
func (id EntryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EntryID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntryID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseEntryID parses the String form of an EntryID.
func ParseEntryID(s string) (EntryID, error) {
	tag, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return EntryID{}, fmt.Errorf("%w: %q", ErrBadEntryID, s)
	}
	switch tag {
	case "pending":
		return Pending(value), nil
	case "persisted":
		return Persisted(value), nil
	}
	return EntryID{}, fmt.Errorf("%w: %q", ErrBadEntryID, s)
}

// Entry is one question in the working list.
type Entry struct {
	ID       EntryID `json:"id"`
	Text     string  `json:"text"`
	Required bool    `json:"required"`
	// Order is always the entry's index in the list.
	Order int `json:"order"`
}

// Patch changes the text, the required flag, or both.
type Patch struct {
	Text     *string `json:"text,omitempty"`
	Required *bool   `json:"required,omitempty"`
}

// Option configures a List.
type Option func(*List)

// WithIDGenerator overrides how local ids for new entries are made.
func WithIDGenerator(gen func() string) Option {
	return func(l *List) {
		if gen != nil {
			l.newID = gen
		}
	}
}

// List is the working copy of an event's questions. It is not safe for
// concurrent use; the owning editor session serialises access.
type List struct {
	original []string
	entries  []Entry
	newID    func() string
}

// NewList starts a working list from the questions as loaded, sorted by
// their stored order.
func NewList(loaded []model.Question, opts ...Option) *List {
	qs := append([]model.Question(nil), loaded...)
	model.SortQuestions(qs)
	l := &List{newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	for _, q := range qs {
		l.original = append(l.original, q.ID)
		l.entries = append(l.entries, Entry{ID: Persisted(q.ID), Text: q.Text, Required: q.Required})
	}
	l.renumber()
	return l
}

// Append adds an empty pending entry at the end and returns its id.
func (l *List) Append() EntryID {
	id := Pending(l.newID())
	l.entries = append(l.entries, Entry{ID: id, Order: len(l.entries)})
	return id
}

// Update applies p to the entry with id.
func (l *List) Update(id EntryID, p Patch) error {
	i := l.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	if p.Text != nil {
		l.entries[i].Text = *p.Text
	}
	if p.Required != nil {
		l.entries[i].Required = *p.Required
	}
	return nil
}

// Remove drops the entry with id.
func (l *List) Remove(id EntryID) error {
	i := l.find(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.renumber()
	return nil
}

// MoveUp swaps the entry with its predecessor. It reports false, changing
// nothing, for the first entry.
func (l *List) MoveUp(id EntryID) (bool, error) {
	return l.move(id, -1)
}

// MoveDown swaps the entry with its successor. It reports false, changing
// nothing, for the last entry.
func (l *List) MoveDown(id EntryID) (bool, error) {
	return l.move(id, 1)
}

func (l *List) move(id EntryID, delta int) (bool, error) {
	i := l.find(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	j := i + delta
	if j < 0 || j >= len(l.entries) {
		return false, nil
	}
	l.entries[i], l.entries[j] = l.entries[j], l.entries[i]
	l.renumber()
	return true, nil
}

// Entries returns a copy of the working list.
func (l *List) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *List) Len() int { return len(l.entries) }

func (l *List) find(id EntryID) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) renumber() {
	for i := range l.entries {
		l.entries[i].Order = i
	}
}

// Create is a question to insert.
type Create struct {
	LocalID  string
	Text     string
	Required bool
	Order    int
}

// Update is a stored question to rewrite.
type Update struct {
	ID       string
	Text     string
	Required bool
	Order    int
}

// Changes is the diff between the working list and what was loaded.
type Changes struct {
	Deletes []string
	Creates []Create
	Updates []Update
}

// Empty reports whether saving would write nothing.
func (c Changes) Empty() bool {
	return len(c.Deletes) == 0 && len(c.Creates) == 0 && len(c.Updates) == 0
}

// Reconcile compiles the working list into changes. Entries with blank text
// are not saved; a stored question whose text was blanked is deleted so the
// saved orders stay dense. Answers to it are kept without their question
// text. Orders are positions among the saved entries.
func (l *List) Reconcile() Changes {
	var c Changes
	kept := make(map[string]struct{}, len(l.entries))
	order := 0
	for _, e := range l.entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		if e.ID.IsPending() {
			c.Creates = append(c.Creates, Create{LocalID: e.ID.Value(), Text: text, Required: e.Required, Order: order})
		} else {
			kept[e.ID.Value()] = struct{}{}
			c.Updates = append(c.Updates, Update{ID: e.ID.Value(), Text: text, Required: e.Required, Order: order})
		}
		order++
	}
	for _, id := range l.original {
		if _, ok := kept[id]; !ok {
			c.Deletes = append(c.Deletes, id)
		}
	}
	return c
}

// Mutations compiles the changes for eventID. New question ids come from
// newID; nil uses random UUIDs.
func (c Changes) Mutations(eventID string, newID func() string) []mutation.Mutation {
	if newID == nil {
		newID = uuid.NewString
	}
	out := make([]mutation.Mutation, 0, len(c.Deletes)+len(c.Updates)+len(c.Creates))
	for _, id := range c.Deletes {
		out = append(out, mutation.DeleteQuestion{ID: id})
	}
	for _, u := range c.Updates {
		out = append(out, mutation.UpdateQuestion{ID: u.ID, Text: u.Text, Required: u.Required, Order: u.Order})
	}
	for _, cr := range c.Creates {
		out = append(out, mutation.CreateQuestion{Question: model.Question{
			ID:       newID(),
			EventID:  eventID,
			Text:     cr.Text,
			Required: cr.Required,
			Order:    cr.Order,
		}})
	}
	return out
}
