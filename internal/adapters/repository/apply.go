package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okian/admit/internal/domain/mutation"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// touched collects the events whose snapshots a batch changes.
type touched map[string]struct{}

func (t touched) add(ids ...string) {
	for _, id := range ids {
		if id != "" {
			t[id] = struct{}{}
		}
	}
}

// Apply writes the batch in one transaction. On any failure nothing is
// written and the error names the offending mutation. After commit every
// subscriber of a touched event receives a fresh snapshot.
func (s *SQLiteStore) Apply(ctx context.Context, batch []mutation.Mutation) error {
	const op = "repository.apply"
	if s.isClosed() {
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordStoreTxError()
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	events := make(touched)
	for i, m := range batch {
		if err := applyOne(ctx, tx, m, events); err != nil {
			_ = tx.Rollback()
			metrics.RecordStoreTxError()
			s.logger.Warn(ctx, "batch rolled back",
				logger.Int("index", i),
				logger.String("kind", m.Kind()),
				logger.Error(err))
			return fmt.Errorf("%s: mutation %d (%s): %w", op, i, m.Kind(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		metrics.RecordStoreTxError()
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	elapsed := time.Since(start)
	metrics.RecordStoreTx(float64(elapsed.Milliseconds()), len(batch))
	s.logger.Debug(ctx, "batch committed",
		logger.Int("mutations", len(batch)),
		logger.Any("kinds", mutation.Kinds(batch)),
		logger.Duration("took", elapsed))

	s.publish(context.WithoutCancel(ctx), events)
	return nil
}

func applyOne(ctx context.Context, tx *sql.Tx, m mutation.Mutation, events touched) error {
	switch m := m.(type) {
	case mutation.UpsertPerson:
		return upsertPerson(ctx, tx, m, events)
	case mutation.UpdatePerson:
		return updatePerson(ctx, tx, m, events)
	case mutation.CreateEvent:
		return createEvent(ctx, tx, m, events)
	case mutation.UpdateEvent:
		return updateEvent(ctx, tx, m, events)
	case mutation.CreateQuestion:
		q := m.Question
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, event_id, text, required, sort_order) VALUES (?, ?, ?, ?, ?)`,
			q.ID, q.EventID, q.Text, q.Required, q.Order); err != nil {
			return err
		}
		events.add(q.EventID)
		return nil
	case mutation.UpdateQuestion:
		var eventID string
		err := tx.QueryRowContext(ctx,
			`UPDATE questions SET text = ?, required = ?, sort_order = ? WHERE id = ? RETURNING event_id`,
			m.Text, m.Required, m.Order, m.ID).Scan(&eventID)
		if err != nil {
			return notFound(err, "question", m.ID)
		}
		events.add(eventID)
		return nil
	case mutation.DeleteQuestion:
		return deleteReturning(ctx, tx, `DELETE FROM questions WHERE id = ? RETURNING event_id`, m.ID, events)
	case mutation.CreateCriterion:
		c := m.Criterion
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO criteria (id, event_id, text, created_at) VALUES (?, ?, ?, ?)`,
			c.ID, c.EventID, c.Text, millis(c.CreatedAt)); err != nil {
			return err
		}
		events.add(c.EventID)
		return nil
	case mutation.DeleteCriterion:
		return deleteReturning(ctx, tx, `DELETE FROM criteria WHERE id = ? RETURNING event_id`, m.ID, events)
	case mutation.CreateApplication:
		return createApplication(ctx, tx, m, events)
	case mutation.UpdateApplication:
		var status sql.NullString
		if m.Status != nil {
			status = sql.NullString{String: string(*m.Status), Valid: true}
		}
		var eventID string
		err := tx.QueryRowContext(ctx,
			`UPDATE applications
			    SET status = COALESCE(?, status),
			        reviewed_at = COALESCE(?, reviewed_at),
			        internal_notes = COALESCE(?, internal_notes),
			        updated_at = ?
			  WHERE id = ? RETURNING event_id`,
			status, nullMillis(m.ReviewedAt), nullString(m.InternalNotes), millis(m.UpdatedAt), m.ID).Scan(&eventID)
		if err != nil {
			return notFound(err, "application", m.ID)
		}
		events.add(eventID)
		return nil
	case mutation.CreateAnswer:
		a := m.Answer
		var eventID string
		if err := tx.QueryRowContext(ctx, `SELECT event_id FROM applications WHERE id = ?`, a.ApplicationID).Scan(&eventID); err != nil {
			return notFound(err, "application", a.ApplicationID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (id, application_id, question_id, text) VALUES (?, ?, ?, ?)`,
			a.ID, a.ApplicationID, a.QuestionID, a.Text); err != nil {
			return err
		}
		events.add(eventID)
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnknownMutation, m)
}

func upsertPerson(ctx context.Context, tx *sql.Tx, m mutation.UpsertPerson, events touched) error {
	p := m.Person
	_, err := tx.ExecContext(ctx,
		`INSERT INTO persons (id, email, first_name, last_name, linkedin, location, current_title, prior_title,
		                      education, internal_notes, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     email = excluded.email,
		     first_name = excluded.first_name,
		     last_name = excluded.last_name,
		     linkedin = excluded.linkedin,
		     location = excluded.location,
		     current_title = excluded.current_title,
		     prior_title = excluded.prior_title,
		     education = excluded.education,
		     internal_notes = excluded.internal_notes,
		     is_admin = excluded.is_admin,
		     updated_at = excluded.updated_at`,
		p.ID, p.Email, p.FirstName, p.LastName, p.LinkedIn, p.Location, p.CurrentRole, p.PriorRole,
		p.Education, p.InternalNotes, p.IsAdmin, millis(p.CreatedAt), millis(p.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, p.Email)
	}
	if err != nil {
		return err
	}
	return eventsOfPerson(ctx, tx, p.ID, events)
}

func updatePerson(ctx context.Context, tx *sql.Tx, m mutation.UpdatePerson, events touched) error {
	var admin sql.NullBool
	if m.IsAdmin != nil {
		admin = sql.NullBool{Bool: *m.IsAdmin, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE persons
		    SET first_name = COALESCE(?, first_name),
		        last_name = COALESCE(?, last_name),
		        linkedin = COALESCE(?, linkedin),
		        location = COALESCE(?, location),
		        current_title = COALESCE(?, current_title),
		        prior_title = COALESCE(?, prior_title),
		        education = COALESCE(?, education),
		        internal_notes = COALESCE(?, internal_notes),
		        is_admin = COALESCE(?, is_admin),
		        updated_at = ?
		  WHERE id = ?`,
		nullString(m.FirstName), nullString(m.LastName), nullString(m.LinkedIn), nullString(m.Location),
		nullString(m.CurrentRole), nullString(m.PriorRole), nullString(m.Education), nullString(m.InternalNotes),
		admin, millis(m.UpdatedAt), m.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: person %s", ErrNotFound, m.ID)
	}
	return eventsOfPerson(ctx, tx, m.ID, events)
}

func createEvent(ctx context.Context, tx *sql.Tx, m mutation.CreateEvent, events touched) error {
	e := m.Event
	_, err := tx.ExecContext(ctx,
		`INSERT INTO events (id, slug, title, description, starts_at, ends_at, location, status,
		                     selection_notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Slug, e.Title, e.Description, nullMillis(e.StartsAt), nullMillis(e.EndsAt), e.Location,
		string(e.Status), e.SelectionNotes, millis(e.CreatedAt), millis(e.UpdatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateSlug, e.Slug)
	}
	if err != nil {
		return err
	}
	events.add(e.ID)
	return nil
}

func updateEvent(ctx context.Context, tx *sql.Tx, m mutation.UpdateEvent, events touched) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE events
		    SET slug = ?, title = ?, description = ?, starts_at = ?, ends_at = ?, location = ?,
		        status = ?, selection_notes = ?, updated_at = ?
		  WHERE id = ?`,
		m.Slug, m.Title, m.Description, nullMillis(m.StartsAt), nullMillis(m.EndsAt), m.Location,
		string(m.Status), m.SelectionNotes, millis(m.UpdatedAt), m.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateSlug, m.Slug)
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: event %s", ErrNotFound, m.ID)
	}
	events.add(m.ID)
	return nil
}

func createApplication(ctx context.Context, tx *sql.Tx, m mutation.CreateApplication, events touched) error {
	a := m.Application
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM applications WHERE event_id = ? AND person_id = ?`,
		a.EventID, a.PersonID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: event %s person %s", ErrDuplicateApplication, a.EventID, a.PersonID)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO applications (id, event_id, person_id, status, internal_notes, created_at, updated_at, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EventID, a.PersonID, string(a.Status), a.InternalNotes,
		millis(a.CreatedAt), millis(a.UpdatedAt), nullMillis(a.ReviewedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: event %s person %s", ErrDuplicateApplication, a.EventID, a.PersonID)
	}
	if err != nil {
		return err
	}
	events.add(a.EventID)
	return nil
}

// deleteReturning runs a delete that yields the owning event id. Deleting a
// missing row is a no-op.
func deleteReturning(ctx context.Context, tx *sql.Tx, query, id string, events touched) error {
	var eventID string
	err := tx.QueryRowContext(ctx, query, id).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	events.add(eventID)
	return nil
}

func eventsOfPerson(ctx context.Context, q querier, personID string, events touched) error {
	rows, err := q.QueryContext(ctx, `SELECT event_id FROM applications WHERE person_id = ?`, personID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		events.add(id)
	}
	return rows.Err()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return err
}
