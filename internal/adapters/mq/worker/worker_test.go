package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/admit/internal/adapters/mq/queue"
	"github.com/okian/admit/internal/adapters/mq/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEmbedder struct {
	mu   sync.Mutex
	fail map[string]bool
}

func (f *fakeEmbedder) EmbedPassage(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[text] {
		return nil, errors.New("model not loaded")
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	vectors map[string][]float32
	meta    map[string]map[string]string
	fail    bool
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{vectors: map[string][]float32{}, meta: map[string]map[string]string{}}
}

func (f *fakeIndexer) Upsert(_ context.Context, id string, vec []float32, md map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("disk full")
	}
	f.vectors[id] = vec
	f.meta[id] = md
	return nil
}

func (f *fakeIndexer) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.vectors[id]
	return ok
}

func (f *fakeIndexer) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.vectors)
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		emb := &fakeEmbedder{fail: map[string]bool{"broken": true}}
		ix := newFakeIndexer()
		w := worker.NewInMemoryWorker(q, emb, ix, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		convey.Convey("When jobs are queued and the queue is closed", func() {
			q.Enqueue(ctx, queue.Job{PersonID: "p1", Text: "Name: Ada.", Metadata: map[string]string{"name": "Ada"}})
			q.Enqueue(ctx, queue.Job{PersonID: "p2", Text: "broken"})
			q.Enqueue(ctx, queue.Job{PersonID: "p3", Text: "Name: Grace."})
			_ = q.Close()
			w.Run(ctx)

			convey.Convey("Then good jobs are indexed and failures are skipped", func() {
				convey.So(ix.has("p1"), convey.ShouldBeTrue)
				convey.So(ix.has("p2"), convey.ShouldBeFalse)
				convey.So(ix.has("p3"), convey.ShouldBeTrue)
				convey.So(ix.meta["p1"]["name"], convey.ShouldEqual, "Ada")
			})
		})

		convey.Convey("When the index rejects writes", func() {
			ix.fail = true
			q.Enqueue(ctx, queue.Job{PersonID: "p1", Text: "Name: Ada."})
			_ = q.Close()
			w.Run(ctx)
			convey.So(ix.len(), convey.ShouldEqual, 0)
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(ctx)
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			_ = q.Close()
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		ix := newFakeIndexer()
		p := worker.NewPool(3, q, &fakeEmbedder{}, ix)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		convey.Convey("When fifty profiles are queued and the pool shuts down", func() {
			for i := 0; i < 50; i++ {
				q.Enqueue(ctx, queue.Job{PersonID: fmt.Sprintf("p%d", i), Text: "Name: someone."})
			}
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then the buffered jobs are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ix.len(), convey.ShouldEqual, 50)
				convey.So(p.Processed(), convey.ShouldEqual, 50)
			})
		})
	})
}
