// Package repository stores events, people and applications, applies
// mutation batches atomically and pushes event snapshots to subscribers
// after every committed batch.
package repository

import (
	"context"

	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
)

// Reader resolves events with everything joined to them.
type Reader interface {
	// LoadEvent returns the event with ordered questions, criteria and its
	// applications joined to people and answers. ErrNotFound if unknown.
	LoadEvent(ctx context.Context, eventID string) (*model.EventGraph, error)
	// EventBySlug looks an event up by slug. ErrNotFound if unknown.
	EventBySlug(ctx context.Context, slug string) (model.Event, error)
	// ListEvents returns events newest first, optionally only those in status.
	ListEvents(ctx context.Context, status model.EventStatus) ([]model.Event, error)

	Person(ctx context.Context, id string) (model.Person, error)
	PersonByEmail(ctx context.Context, email string) (model.Person, error)
	ListPeople(ctx context.Context) ([]model.Person, error)
	// PeopleWithoutApplication lists people who have not applied to eventID.
	PeopleWithoutApplication(ctx context.Context, eventID string) ([]model.Person, error)
}

// Writer applies a batch of mutations as one unit: all or nothing.
type Writer interface {
	Apply(ctx context.Context, batch []mutation.Mutation) error
}

// Subscription is an active snapshot feed. Close is idempotent.
type Subscription interface {
	Close()
}

// Subscriber pushes a fresh snapshot of an event on subscribe and after every
// committed batch that touches it.
type Subscriber interface {
	Subscribe(ctx context.Context, eventID string, fn func(*model.EventGraph)) (Subscription, error)
}

// Store is the full document store contract.
type Store interface {
	Reader
	Writer
	Subscriber
	Close() error
}
