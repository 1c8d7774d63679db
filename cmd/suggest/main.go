// Command suggest serves semantic attendee suggestions over the profiles in
// the review database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/admit/internal/adapters/mq/queue"
	"github.com/okian/admit/internal/adapters/mq/worker"
	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/adapters/suggest"
	"github.com/okian/admit/internal/config"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

const (
	readHeaderTimeout = 5 * time.Second
	embedTimeout      = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("suggest: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Options{Format: cfg.LogFormat, Level: cfg.LogLevel}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	l := logger.Named("suggest")

	people, err := repository.Open(ctx, cfg.DatabasePath, repository.WithLogger(l))
	if err != nil {
		return err
	}
	defer people.Close()

	ix, err := suggest.OpenIndex(ctx, cfg.IndexPath)
	if err != nil {
		return err
	}
	defer ix.Close()

	embedder, err := suggest.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbedModel, &http.Client{Timeout: embedTimeout})
	if err != nil {
		return err
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(cfg.IndexQueueSize))
	metrics.UpdateQueueCapacity(cfg.IndexQueueSize)
	pool := worker.NewPool(cfg.IndexWorkers, q, embedder, ix, worker.WithLogger(l))
	pool.Start(ctx)

	svc := suggest.NewService(embedder, ix, q, people, cfg.TopK, l)
	go func() {
		n, err := svc.EnqueueAll(ctx)
		if err != nil {
			l.Warn(ctx, "initial indexing incomplete", logger.Int("queued", n), logger.Error(err))
			return
		}
		l.Info(ctx, "initial indexing queued", logger.Int("queued", n), logger.Int("indexed", svc.Indexed()))
	}()

	srv := &http.Server{
		Addr:              cfg.SuggestAddr,
		Handler:           suggest.NewHandler(svc, l).Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting suggest server",
			logger.String("addr", cfg.SuggestAddr),
			logger.String("model", cfg.EmbedModel),
			logger.Int("workers", cfg.IndexWorkers))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		l.Warn(ctx, "index workers did not drain", logger.Error(err))
	}
	l.Info(ctx, "suggest server stopped", logger.Any("processed", pool.Processed()))
	return nil
}
