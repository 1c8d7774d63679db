package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/internal/domain/mutation"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()
	s, err := repository.Open(context.Background(), filepath.Join(t.TempDir(), "admit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func person(id, email, first string, at time.Time) mutation.Mutation {
	return mutation.UpsertPerson{Person: model.Person{
		ID: id, Email: email, FirstName: first, CreatedAt: at, UpdatedAt: at,
	}}
}

func event(id, slug string) mutation.Mutation {
	return mutation.CreateEvent{Event: model.Event{
		ID: id, Slug: slug, Title: slug, Status: model.EventPublished, CreatedAt: base, UpdatedAt: base,
	}}
}

func application(id, eventID, personID string, at time.Time) mutation.Mutation {
	return mutation.CreateApplication{Application: model.Application{
		ID: id, EventID: eventID, PersonID: personID, Status: model.StatusApplied, CreatedAt: at, UpdatedAt: at,
	}}
}

// seed creates one event with two questions and two applicants.
func seed(t *testing.T, s *repository.SQLiteStore) {
	t.Helper()
	require.NoError(t, s.Apply(context.Background(), []mutation.Mutation{
		person("p1", "ada@example.com", "Ada", base),
		person("p2", "grace@example.com", "Grace", base.Add(time.Minute)),
		event("e1", "demo-day"),
		mutation.CreateQuestion{Question: model.Question{ID: "q2", EventID: "e1", Text: "Second", Order: 1}},
		mutation.CreateQuestion{Question: model.Question{ID: "q1", EventID: "e1", Text: "First", Required: true, Order: 0}},
		application("a1", "e1", "p1", base.Add(time.Hour)),
		application("a2", "e1", "p2", base.Add(2*time.Hour)),
		mutation.CreateAnswer{Answer: model.Answer{ID: "an1", ApplicationID: "a1", QuestionID: "q1", Text: "Because"}},
	}))
}

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "admit.db")
	s, err := repository.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = repository.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestLoadEvent_JoinsEverything(t *testing.T) {
	s := openStore(t)
	seed(t, s)

	g, err := s.LoadEvent(context.Background(), "e1")
	require.NoError(t, err)

	assert.Equal(t, "demo-day", g.Event.Slug)
	require.Len(t, g.Questions, 2)
	assert.Equal(t, "q1", g.Questions[0].ID)
	assert.True(t, g.Questions[0].Required)

	require.Len(t, g.Applications, 2)
	assert.Equal(t, "a1", g.Applications[0].ID)
	assert.Equal(t, "Ada", g.Applications[0].Person.FirstName)
	assert.True(t, g.Applications[0].CreatedAt.Equal(base.Add(time.Hour)))
	require.Len(t, g.Applications[0].Answers, 1)
	assert.Equal(t, "First", g.Applications[0].Answers[0].QuestionText)
	assert.Nil(t, g.Applications[0].ReviewedAt)

	_, err = s.LoadEvent(context.Background(), "missing")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestApply_RollsBackWholeBatch(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	ctx := context.Background()

	confirmed := model.StatusConfirmed
	err := s.Apply(ctx, []mutation.Mutation{
		mutation.UpdateApplication{ID: "a1", Status: &confirmed, ReviewedAt: &base, UpdatedAt: base},
		mutation.UpdateApplication{ID: "nope", Status: &confirmed, UpdatedAt: base},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
	assert.Contains(t, err.Error(), "mutation 1")

	g, err := s.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApplied, g.Applications[0].Status)
}

func TestApply_PartialApplicationUpdate(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	ctx := context.Background()

	rejected := model.StatusRejected
	reviewed := base.Add(24 * time.Hour)
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{
		mutation.UpdateApplication{ID: "a2", Status: &rejected, ReviewedAt: &reviewed, UpdatedAt: reviewed},
	}))
	notes := "strong maybe"
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{
		mutation.UpdateApplication{ID: "a2", InternalNotes: &notes, UpdatedAt: reviewed},
	}))

	g, err := s.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	a, ok := g.Application("a2")
	require.True(t, ok)
	assert.Equal(t, model.StatusRejected, a.Status)
	assert.Equal(t, "strong maybe", a.InternalNotes)
	require.NotNil(t, a.ReviewedAt)
	assert.True(t, a.ReviewedAt.Equal(reviewed))
}

func TestApply_DuplicateApplication(t *testing.T) {
	s := openStore(t)
	seed(t, s)

	err := s.Apply(context.Background(), []mutation.Mutation{application("a3", "e1", "p1", base)})
	assert.True(t, errors.Is(err, repository.ErrDuplicateApplication))

	err = s.Apply(context.Background(), []mutation.Mutation{event("e2", "demo-day")})
	assert.True(t, errors.Is(err, repository.ErrDuplicateSlug))

	err = s.Apply(context.Background(), []mutation.Mutation{person("p9", "ada@example.com", "Imposter", base)})
	assert.True(t, errors.Is(err, repository.ErrDuplicateEmail))
}

func TestApply_AnswersOutliveQuestions(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, []mutation.Mutation{
		mutation.DeleteQuestion{ID: "q1"},
		mutation.UpdateQuestion{ID: "q2", Text: "Second", Order: 0},
	}))
	// deleting again is a no-op
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{mutation.DeleteQuestion{ID: "q1"}}))

	g, err := s.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, g.Questions, 1)
	assert.Equal(t, 0, g.Questions[0].Order)
	require.Len(t, g.Applications[0].Answers, 1)
	assert.Equal(t, "Because", g.Applications[0].Answers[0].Text)
	assert.Empty(t, g.Applications[0].Answers[0].QuestionText)
}

func TestReaders(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, []mutation.Mutation{
		person("p3", "linus@example.com", "Linus", base.Add(3*time.Minute)),
		mutation.CreateEvent{Event: model.Event{ID: "e2", Slug: "draft-night", Title: "Draft", Status: model.EventDraft,
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)}},
	}))

	p, err := s.PersonByEmail(ctx, "  ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	admin := true
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{mutation.UpdatePerson{ID: "p1", IsAdmin: &admin, UpdatedAt: base}}))
	p, err = s.Person(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, "Ada", p.FirstName)

	ev, err := s.EventBySlug(ctx, "draft-night")
	require.NoError(t, err)
	assert.Equal(t, "e2", ev.ID)

	all, err := s.ListEvents(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "e2", all[0].ID)

	published, err := s.ListEvents(ctx, model.EventPublished)
	require.NoError(t, err)
	require.Len(t, published, 1)

	people, err := s.ListPeople(ctx)
	require.NoError(t, err)
	assert.Len(t, people, 3)

	missing, err := s.PeopleWithoutApplication(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "p3", missing[0].ID)
}

func TestSubscribe_PushesAfterCommit(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		snaps []*model.EventGraph
	)
	sub, err := s.Subscribe(ctx, "e1", func(g *model.EventGraph) {
		mu.Lock()
		snaps = append(snaps, g)
		mu.Unlock()
	})
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, snaps, 1, "initial snapshot is delivered before Subscribe returns")
	mu.Unlock()

	require.NoError(t, s.Apply(ctx, []mutation.Mutation{
		mutation.CreateCriterion{Criterion: model.Criterion{ID: "c1", EventID: "e1", Text: "rust", CreatedAt: base}},
	}))
	// a batch touching another event pushes nothing here
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{event("e2", "other")}))

	mu.Lock()
	require.Len(t, snaps, 2)
	require.Len(t, snaps[1].Criteria, 1)
	mu.Unlock()

	sub.Close()
	sub.Close()
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{mutation.DeleteCriterion{ID: "c1"}}))
	mu.Lock()
	assert.Len(t, snaps, 2)
	mu.Unlock()
}

func TestSubscribe_PushesAfterCallerCancels(t *testing.T) {
	s := openStore(t)
	seed(t, s)
	require.NoError(t, s.Apply(context.Background(), []mutation.Mutation{
		event("e2", "other"),
		application("a3", "e2", "p1", base.Add(3*time.Hour)),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		armed atomic.Bool
		mu    sync.Mutex
		snaps = map[string]int{}
	)
	listen := func(eventID string) func(*model.EventGraph) {
		return func(*model.EventGraph) {
			mu.Lock()
			snaps[eventID]++
			mu.Unlock()
			// the caller gives up during the first push of the batch
			if armed.CompareAndSwap(true, false) {
				cancel()
			}
		}
	}
	for _, id := range []string{"e1", "e2"} {
		sub, err := s.Subscribe(ctx, id, listen(id))
		require.NoError(t, err)
		defer sub.Close()
	}
	armed.Store(true)

	admin := true
	require.NoError(t, s.Apply(ctx, []mutation.Mutation{
		mutation.UpdatePerson{ID: "p1", IsAdmin: &admin, UpdatedAt: base.Add(4 * time.Hour)},
	}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, snaps["e1"], "every touched event is pushed once the batch committed")
	assert.Equal(t, 2, snaps["e2"])
}

func TestClosedStore(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err := s.Apply(context.Background(), []mutation.Mutation{event("e1", "x")})
	assert.True(t, errors.Is(err, repository.ErrClosed))
	_, err = s.Subscribe(context.Background(), "e1", func(*model.EventGraph) {})
	assert.True(t, errors.Is(err, repository.ErrClosed))
}

func BenchmarkApply_UpdateApplication(b *testing.B) {
	s, err := repository.Open(context.Background(), filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, err)
	defer s.Close()
	ctx := context.Background()

	batch := []mutation.Mutation{event("e1", "bench")}
	for i := 0; i < 100; i++ {
		pid := fmt.Sprintf("p%d", i)
		batch = append(batch,
			person(pid, pid+"@example.com", pid, base),
			application(fmt.Sprintf("a%d", i), "e1", pid, base.Add(time.Duration(i)*time.Second)))
	}
	require.NoError(b, s.Apply(ctx, batch))

	confirmed := model.StatusConfirmed
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := fmt.Sprintf("a%d", i%100)
		if err := s.Apply(ctx, []mutation.Mutation{
			mutation.UpdateApplication{ID: id, Status: &confirmed, UpdatedAt: base},
		}); err != nil {
			b.Fatal(err)
		}
	}
}
