package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/okian/admit/internal/domain/model"
)

const personColumns = `p.id, p.email, p.first_name, p.last_name, p.linkedin, p.location, p.current_title,
	p.prior_title, p.education, p.internal_notes, p.is_admin, p.created_at, p.updated_at`

const eventColumns = `id, slug, title, description, starts_at, ends_at, location, status,
	selection_notes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner, extra ...any) (model.Person, error) {
	var (
		p                model.Person
		created, updated int64
	)
	dest := append([]any{&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.LinkedIn, &p.Location,
		&p.CurrentRole, &p.PriorRole, &p.Education, &p.InternalNotes, &p.IsAdmin, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.Person{}, err
	}
	p.CreatedAt, p.UpdatedAt = fromMillis(created), fromMillis(updated)
	return p, nil
}

func scanEvent(row scanner) (model.Event, error) {
	var (
		e                model.Event
		status           string
		starts, ends     sql.NullInt64
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.Slug, &e.Title, &e.Description, &starts, &ends, &e.Location, &status,
		&e.SelectionNotes, &created, &updated); err != nil {
		return model.Event{}, err
	}
	e.Status = model.EventStatus(status)
	e.StartsAt, e.EndsAt = timePtr(starts), timePtr(ends)
	e.CreatedAt, e.UpdatedAt = fromMillis(created), fromMillis(updated)
	return e, nil
}

// LoadEvent implements Reader.
func (s *SQLiteStore) LoadEvent(ctx context.Context, eventID string) (*model.EventGraph, error) {
	const op = "repository.load_event"
	if s.isClosed() {
		return nil, fmt.Errorf("%s: %w", op, ErrClosed)
	}
	g, err := loadGraph(ctx, s.db, eventID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

func loadGraph(ctx context.Context, q querier, eventID string) (*model.EventGraph, error) {
	ev, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID))
	if err != nil {
		return nil, notFound(err, "event", eventID)
	}
	g := &model.EventGraph{Event: ev}

	if g.Questions, err = loadQuestions(ctx, q, eventID); err != nil {
		return nil, err
	}
	if g.Criteria, err = loadCriteria(ctx, q, eventID); err != nil {
		return nil, err
	}
	if g.Applications, err = loadApplications(ctx, q, eventID); err != nil {
		return nil, err
	}
	answers, err := loadAnswers(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	for i := range g.Applications {
		g.Applications[i].Answers = answers[g.Applications[i].ID]
	}
	return g, nil
}

func loadQuestions(ctx context.Context, q querier, eventID string) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, text, required, sort_order FROM questions WHERE event_id = ? ORDER BY sort_order, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Question
	for rows.Next() {
		var qu model.Question
		if err := rows.Scan(&qu.ID, &qu.EventID, &qu.Text, &qu.Required, &qu.Order); err != nil {
			return nil, err
		}
		out = append(out, qu)
	}
	return out, rows.Err()
}

func loadCriteria(ctx context.Context, q querier, eventID string) ([]model.Criterion, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_id, text, created_at FROM criteria WHERE event_id = ? ORDER BY created_at, rowid`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Criterion
	for rows.Next() {
		var (
			c       model.Criterion
			created int64
		)
		if err := rows.Scan(&c.ID, &c.EventID, &c.Text, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = fromMillis(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// loadApplications returns applications in submission order, each joined to
// its person.
func loadApplications(ctx context.Context, q querier, eventID string) ([]model.Application, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+personColumns+`,
		        a.id, a.event_id, a.person_id, a.status, a.internal_notes, a.created_at, a.updated_at, a.reviewed_at
		   FROM applications a JOIN persons p ON p.id = a.person_id
		  WHERE a.event_id = ?
		  ORDER BY a.created_at, a.rowid`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Application
	for rows.Next() {
		var (
			a                model.Application
			status           string
			created, updated int64
			reviewed         sql.NullInt64
		)
		p, err := scanPerson(rows, &a.ID, &a.EventID, &a.PersonID, &status, &a.InternalNotes, &created, &updated, &reviewed)
		if err != nil {
			return nil, err
		}
		a.Person = p
		a.Status = model.Status(status)
		a.CreatedAt, a.UpdatedAt = fromMillis(created), fromMillis(updated)
		a.ReviewedAt = timePtr(reviewed)
		out = append(out, a)
	}
	return out, rows.Err()
}

// loadAnswers groups every answer of the event by application. Answers to
// deleted questions keep an empty question text.
func loadAnswers(ctx context.Context, q querier, eventID string) (map[string][]model.Answer, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT an.id, an.application_id, an.question_id, COALESCE(qu.text, ''), an.text
		   FROM answers an
		   JOIN applications a ON a.id = an.application_id
		   LEFT JOIN questions qu ON qu.id = an.question_id
		  WHERE a.event_id = ?
		  ORDER BY COALESCE(qu.sort_order, 1000000), an.rowid`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]model.Answer)
	for rows.Next() {
		var an model.Answer
		if err := rows.Scan(&an.ID, &an.ApplicationID, &an.QuestionID, &an.QuestionText, &an.Text); err != nil {
			return nil, err
		}
		out[an.ApplicationID] = append(out[an.ApplicationID], an)
	}
	return out, rows.Err()
}

// EventBySlug implements Reader.
func (s *SQLiteStore) EventBySlug(ctx context.Context, slug string) (model.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug))
	if err != nil {
		return model.Event{}, fmt.Errorf("repository.event_by_slug: %w", notFound(err, "event", slug))
	}
	return e, nil
}

// ListEvents implements Reader. An empty status lists every event.
func (s *SQLiteStore) ListEvents(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
	const op = "repository.list_events"
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// Person implements Reader.
func (s *SQLiteStore) Person(ctx context.Context, id string) (model.Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons p WHERE p.id = ?`, id))
	if err != nil {
		return model.Person{}, fmt.Errorf("repository.person: %w", notFound(err, "person", id))
	}
	return p, nil
}

// PersonByEmail implements Reader. The address is normalised first.
func (s *SQLiteStore) PersonByEmail(ctx context.Context, email string) (model.Person, error) {
	email = model.NormalizeEmail(email)
	p, err := scanPerson(s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons p WHERE p.email = ?`, email))
	if err != nil {
		return model.Person{}, fmt.Errorf("repository.person_by_email: %w", notFound(err, "person", email))
	}
	return p, nil
}

// ListPeople implements Reader.
func (s *SQLiteStore) ListPeople(ctx context.Context) ([]model.Person, error) {
	return s.people(ctx, "repository.list_people",
		`SELECT `+personColumns+` FROM persons p ORDER BY p.created_at, p.rowid`)
}

// PeopleWithoutApplication implements Reader.
func (s *SQLiteStore) PeopleWithoutApplication(ctx context.Context, eventID string) ([]model.Person, error) {
	return s.people(ctx, "repository.people_without_application",
		`SELECT `+personColumns+` FROM persons p
		  WHERE NOT EXISTS (SELECT 1 FROM applications a WHERE a.person_id = p.id AND a.event_id = ?)
		  ORDER BY p.created_at, p.rowid`, eventID)
}

func (s *SQLiteStore) people(ctx context.Context, op, query string, args ...any) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var out []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
