// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// EventStatus is the publication state of an event.
type EventStatus string

// Event statuses.
const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventClosed    EventStatus = "closed"
	EventArchived  EventStatus = "archived"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventDraft, EventPublished, EventClosed, EventArchived:
		return true
	}
	return false
}

// Event is something people apply to attend.
type Event struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	StartsAt    *time.Time  `json:"starts_at,omitempty"`
	EndsAt      *time.Time  `json:"ends_at,omitempty"`
	Location    string      `json:"location,omitempty"`
	Status      EventStatus `json:"status"`
	// SelectionNotes are admin-only notes on who should be picked.
	SelectionNotes string    `json:"selection_notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Question is asked of every applicant to an event.
type Question struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
	// Order is dense and zero-based within the event.
	Order int `json:"order"`
}

// Criterion is free text used verbatim as a semantic search query.
type Criterion struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// EventGraph is an event with everything the review pipeline reads.
type EventGraph struct {
	Event        Event
	Questions    []Question
	Criteria     []Criterion
	Applications []Application
}

// SortQuestions orders questions by their order field, keeping ties stable.
func SortQuestions(qs []Question) {
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
}

// Application returns the application with id, if it belongs to the graph.
func (g *EventGraph) Application(id string) (Application, bool) {
	for _, a := range g.Applications {
		if a.ID == id {
			return a, true
		}
	}
	return Application{}, false
}

// ApplicationFor returns the application submitted by personID, if any.
func (g *EventGraph) ApplicationFor(personID string) (Application, bool) {
	for _, a := range g.Applications {
		if a.PersonID == personID {
			return a, true
		}
	}
	return Application{}, false
}
