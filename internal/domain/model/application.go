package model

import "time"

// Status is the review state of an application.
type Status string

// Application statuses. Applied is the initial state; confirmed and
// rejected are terminal.
const (
	StatusApplied   Status = "applied"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Statuses lists every status in tab order.
var Statuses = []Status{StatusApplied, StatusConfirmed, StatusRejected}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// StatusFilter selects applications by status. The zero value and FilterAll
// keep everything.
type StatusFilter string

// FilterAll keeps every status.
const FilterAll StatusFilter = "all"

// Keeps reports whether an application with status s passes the filter.
func (f StatusFilter) Keeps(s Status) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return Status(f) == s
}

// Valid reports whether f is all or a known status.
func (f StatusFilter) Valid() bool {
	return f == "" || f == FilterAll || Status(f).Valid()
}

// Application is a person's request to attend an event. At most one exists
// per (event, person) pair.
type Application struct {
	ID            string     `json:"id"`
	EventID       string     `json:"event_id"`
	PersonID      string     `json:"person_id"`
	Status        Status     `json:"status"`
	InternalNotes string     `json:"internal_notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`

	Person  Person   `json:"person"`
	Answers []Answer `json:"answers"`
}

// Answer is the applicant's reply to one question.
type Answer struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	QuestionID    string `json:"question_id"`
	// QuestionText is joined from the question when loaded.
	QuestionText string `json:"question_text,omitempty"`
	Text         string `json:"text"`
}
