// Package mutation describes record writes submitted to the store as one
// atomic batch.
//
// A batch is an ordered []Mutation. Each concrete type names the entity kind
// it touches; relationship links are carried as id fields (EventID,
// ApplicationID, ...). Update types use pointer fields so that only the
// fields that are set are written.
package mutation

import (
	"time"

	"github.com/okian/admit/internal/domain/model"
)

// Mutation is one record write. The set of implementations is closed.
type Mutation interface {
	// Kind names the mutation for logs and metrics.
	Kind() string
	isMutation()
}

// UpsertPerson creates a person or overwrites the given profile fields.
type UpsertPerson struct {
	Person model.Person
}

// UpdatePerson changes selected profile fields.
type UpdatePerson struct {
	ID            string
	FirstName     *string
	LastName      *string
	LinkedIn      *string
	Location      *string
	CurrentRole   *string
	PriorRole     *string
	Education     *string
	InternalNotes *string
	IsAdmin       *bool
	UpdatedAt     time.Time
}

// CreateEvent inserts an event.
type CreateEvent struct {
	Event model.Event
}

// UpdateEvent overwrites an event's editable fields.
type UpdateEvent struct {
	ID             string
	Slug           string
	Title          string
	Description    string
	StartsAt       *time.Time
	EndsAt         *time.Time
	Location       string
	Status         model.EventStatus
	SelectionNotes string
	UpdatedAt      time.Time
}

// CreateQuestion inserts a question linked to EventID.
type CreateQuestion struct {
	Question model.Question
}

// UpdateQuestion rewrites a question's text, required flag and order.
type UpdateQuestion struct {
	ID       string
	Text     string
	Required bool
	Order    int
}

// DeleteQuestion removes a question. Answers keep their text.
type DeleteQuestion struct {
	ID string
}

// CreateCriterion inserts a criterion linked to EventID.
type CreateCriterion struct {
	Criterion model.Criterion
}

// DeleteCriterion removes a criterion.
type DeleteCriterion struct {
	ID string
}

// CreateApplication inserts an application linked to an event and a person.
type CreateApplication struct {
	Application model.Application
}

// UpdateApplication sets the status and review time, the notes, or both.
type UpdateApplication struct {
	ID            string
	Status        *model.Status
	ReviewedAt    *time.Time
	InternalNotes *string
	UpdatedAt     time.Time
}

// CreateAnswer inserts an answer linked to an application and a question.
type CreateAnswer struct {
	Answer model.Answer
}

func (UpsertPerson) Kind() string      { return "upsert_person" }
func (UpdatePerson) Kind() string      { return "update_person" }
func (CreateEvent) Kind() string       { return "create_event" }
func (UpdateEvent) Kind() string       { return "update_event" }
func (CreateQuestion) Kind() string    { return "create_question" }
func (UpdateQuestion) Kind() string    { return "update_question" }
func (DeleteQuestion) Kind() string    { return "delete_question" }
func (CreateCriterion) Kind() string   { return "create_criterion" }
func (DeleteCriterion) Kind() string   { return "delete_criterion" }
func (CreateApplication) Kind() string { return "create_application" }
func (UpdateApplication) Kind() string { return "update_application" }
func (CreateAnswer) Kind() string      { return "create_answer" }

func (UpsertPerson) isMutation()      {}
func (UpdatePerson) isMutation()      {}
func (CreateEvent) isMutation()       {}
func (UpdateEvent) isMutation()       {}
func (CreateQuestion) isMutation()    {}
func (UpdateQuestion) isMutation()    {}
func (DeleteQuestion) isMutation()    {}
func (CreateCriterion) isMutation()   {}
func (DeleteCriterion) isMutation()   {}
func (CreateApplication) isMutation() {}
func (UpdateApplication) isMutation() {}
func (CreateAnswer) isMutation()      {}

// Kinds counts mutations per kind, for logging a batch.
func Kinds(batch []Mutation) map[string]int {
	out := make(map[string]int, len(batch))
	for _, m := range batch {
		out[m.Kind()]++
	}
	return out
}
