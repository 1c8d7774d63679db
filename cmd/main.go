package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/admit/internal/adapters/http/api"
	"github.com/okian/admit/internal/adapters/http/swagger"
	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/adapters/search"
	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/config"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// We export our own runtime gauges instead of the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		os.Stderr.WriteString("admit: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Options{Format: cfg.LogFormat, Level: cfg.LogLevel}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	l := logger.Get()

	store, err := repository.Open(ctx, cfg.DatabasePath, repository.WithLogger(l))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	searcher, err := newSearcher(cfg, l)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, searcher, l)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(ctx, svc, l),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("search_provider", cfg.SearchProvider))
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
	l.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	l.Info(ctx, "server stopped")
	return nil
}

// newSearcher picks the scoring backend named by the configuration.
func newSearcher(cfg *config.Config, l logger.Logger) (scoring.Searcher, error) {
	if cfg.SearchProvider == "memory" {
		return scoring.NewInMemorySearcher(), nil
	}
	c, err := search.NewClient(cfg.SearchURL,
		search.WithTimeout(cfg.SearchTimeout),
		search.WithRateLimit(cfg.SearchRatePerSec, cfg.SearchBurst),
		search.WithLogger(l))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newService(cfg *config.Config, store repository.Store, searcher scoring.Searcher, l logger.Logger) *service.Service {
	return service.New(store, searcher,
		service.WithLogger(l),
		service.WithEnforceTerminalStates(cfg.EnforceTerminalStates),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithDedupeSize(cfg.DedupeSize),
	)
}

func newRouter(ctx context.Context, svc *service.Service, l logger.Logger) *mux.Router {
	r := mux.NewRouter()
	swagger.Register(ctx, r)
	api.NewServer(svc, svc, api.WithLogger(l)).Register(ctx, r)
	return r
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
