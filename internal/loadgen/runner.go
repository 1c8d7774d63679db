package loadgen

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/admit/pkg/logger"
)

type job struct {
	applicant Applicant
	personID  string
}

type counters struct {
	submitted, accepted, duplicate, failed atomic.Int64
}

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config, l logger.Logger) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.Nop()
	}
	stats := &Stats{StartTime: time.Now()}

	l.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("event", cfg.EventSlug),
		logger.Int("applicants", cfg.Applicants),
		logger.Int("resubmit", cfg.Resubmit),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Read the event's questions
	ev, err := c.event(ctx, cfg.EventSlug)
	if err != nil {
		return nil, fmt.Errorf("event lookup failed: %w", err)
	}
	questionIDs := make([]string, 0, len(ev.Questions))
	for _, q := range ev.Questions {
		questionIDs = append(questionIDs, q.ID)
	}

	// Step 3: Generate applicants
	applicants := generateApplicants(cfg.Applicants, questionIDs)
	stats.Generated = len(applicants)

	// Step 4: Register and submit concurrently
	var cnt counters
	registered := submitAll(ctx, cfg, l, c, applicants, &cnt)

	// Step 5: Submit again for the first Resubmit applicants
	var again counters
	if cfg.Resubmit > 0 {
		resubmitAll(ctx, cfg, l, c, registered[:min(cfg.Resubmit, len(registered))], &again)
	}

	stats.Submitted = int(cnt.submitted.Load() + again.submitted.Load())
	stats.Accepted = int(cnt.accepted.Load() + again.accepted.Load())
	stats.Duplicate = int(cnt.duplicate.Load() + again.duplicate.Load())
	stats.Failed = int(cnt.failed.Load() + again.failed.Load())
	stats.Resubmits = int(again.submitted.Load())
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	if stats.Duration > 0 {
		stats.Throughput = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("load run interrupted: %w", err)
	}

	// Step 6: Verify
	if err := verify(cnt.accepted.Load(), &again); err != nil {
		return stats, err
	}
	displayFinalStats(ctx, l, stats)
	return stats, nil
}

// submitAll registers and submits every applicant with cfg.Workers workers
// and returns the ones that were accepted.
func submitAll(ctx context.Context, cfg *Config, l logger.Logger, c *client, applicants []Applicant, cnt *counters) []job {
	in := make(chan Applicant, cfg.Workers*workerChannelMultiplier)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []job
	)
	progress := newProgress(l, len(applicants), cnt)

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for a := range in {
				if ctx.Err() != nil {
					continue
				}
				id, err := c.register(ctx, a)
				if err != nil {
					cnt.submitted.Add(1)
					cnt.failed.Add(1)
					if cfg.Verbose {
						l.Warn(ctx, "registration failed", logger.String("email", a.Email), logger.Error(err))
					}
					continue
				}
				if record(ctx, cfg, l, c, id, a.Answers, cnt) == resultAccepted {
					mu.Lock()
					accepted = append(accepted, job{applicant: a, personID: id})
					mu.Unlock()
				}
				progress.tick(ctx)
			}
		}()
	}

	feed(ctx, in, applicants)
	wg.Wait()
	return accepted
}

func resubmitAll(ctx context.Context, cfg *Config, l logger.Logger, c *client, jobs []job, cnt *counters) {
	in := make(chan job, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range in {
				if ctx.Err() != nil {
					continue
				}
				record(ctx, cfg, l, c, j.personID, j.applicant.Answers, cnt)
			}
		}()
	}
	feed(ctx, in, jobs)
	wg.Wait()
}

func feed[T any](ctx context.Context, in chan<- T, items []T) {
	defer close(in)
	for _, it := range items {
		select {
		case <-ctx.Done():
			return
		case in <- it:
		}
	}
}

func record(ctx context.Context, cfg *Config, l logger.Logger, c *client, personID string, answers map[string]string, cnt *counters) string {
	result, err := c.submit(ctx, cfg.EventSlug, personID, answers)
	cnt.submitted.Add(1)
	switch result {
	case resultAccepted:
		cnt.accepted.Add(1)
	case resultDuplicate:
		cnt.duplicate.Add(1)
	default:
		cnt.failed.Add(1)
		if cfg.Verbose {
			l.Warn(ctx, "submission failed", logger.String("person_id", personID), logger.Error(err))
		}
	}
	return result
}

// verify checks that no person got a second application in.
func verify(accepted int64, again *counters) error {
	if n := again.accepted.Load(); n > 0 {
		return fmt.Errorf("verification failed: %d resubmissions were accepted", n)
	}
	if accepted == 0 {
		return fmt.Errorf("verification failed: no application was accepted")
	}
	return nil
}

type progress struct {
	mu     sync.Mutex
	last   time.Time
	total  int
	cnt    *counters
	logger logger.Logger
}

func newProgress(l logger.Logger, total int, cnt *counters) *progress {
	return &progress{last: time.Now(), total: total, cnt: cnt, logger: l}
}

func (p *progress) tick(ctx context.Context) {
	p.mu.Lock()
	if time.Since(p.last) < progressInterval {
		p.mu.Unlock()
		return
	}
	p.last = time.Now()
	p.mu.Unlock()
	p.logger.Info(ctx, "progress",
		logger.Int("submitted", int(p.cnt.submitted.Load())),
		logger.Int("total", p.total),
		logger.Int("accepted", int(p.cnt.accepted.Load())),
		logger.Int("duplicate", int(p.cnt.duplicate.Load())),
		logger.Int("failed", int(p.cnt.failed.Load())))
}

func displayFinalStats(ctx context.Context, l logger.Logger, stats *Stats) {
	l.Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("resubmits", stats.Resubmits),
		logger.Duration("duration", stats.Duration),
		logger.Float64("submissionsPerSecond", stats.Throughput))
}
