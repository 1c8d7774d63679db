// Package worker embeds queued profiles and writes their vectors to the
// suggest index.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/admit/internal/adapters/mq/queue"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// Embedder turns profile text into a vector.
type Embedder interface {
	EmbedPassage(ctx context.Context, text string) ([]float32, error)
}

// Indexer stores a person's vector and metadata, replacing any previous one.
type Indexer interface {
	Upsert(ctx context.Context, personID string, vec []float32, metadata map[string]string) error
}

// Queue is where workers read jobs from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker embeds one job at a time.
type InMemoryWorker struct {
	queue    Queue
	embedder Embedder
	indexer  Indexer
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	processed *atomic.Int64
	logger    logger.Logger
}

// NewInMemoryWorker creates a worker reading from q.
func NewInMemoryWorker(q Queue, e Embedder, ix Indexer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		embedder:  e,
		indexer:   ix,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		processed: new(atomic.Int64),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run consumes jobs until the queue is closed, ctx is done or Shutdown is
// called. Failed jobs are logged and dropped.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "index job failed",
					logger.String("person_id", j.PersonID),
					logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker and waits for its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	start := time.Now()
	vec, err := w.embedder.EmbedPassage(ctx, j.Text)
	if err != nil {
		metrics.RecordIndexError()
		metrics.RecordErrorByComponent("worker", "embed_error")
		return fmt.Errorf("embed %s: %w", j.PersonID, err)
	}
	embedMs := float64(time.Since(start).Milliseconds())

	if err := w.indexer.Upsert(ctx, j.PersonID, vec, j.Metadata); err != nil {
		metrics.RecordIndexError()
		metrics.RecordErrorByComponent("worker", "index_error")
		return fmt.Errorf("index %s: %w", j.PersonID, err)
	}
	metrics.RecordProfileIndexed(embedMs)
	w.processed.Add(1)
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers. A count below one uses the CPU count.
func NewPool(workerCount int, q Queue, e Embedder, ix Indexer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, e, ix, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.processed = &p.processed
		p.workers[i] = w
	}
	if len(p.workers) > 0 {
		p.logger = p.workers[0].logger
	}
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Processed returns how many jobs were indexed successfully.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue, lets the workers drain what is buffered and
// stops them outright if ctx expires first.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer metrics.UpdateWorkerActiveCount(0)

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			w.shutdownOnce.Do(func() { close(w.shutdown) })
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
		}
	}
	if timedOut {
		return fmt.Errorf("pool shutdown: %w", ctx.Err())
	}
	return nil
}
