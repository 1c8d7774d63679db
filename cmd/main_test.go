package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/adapters/search"
	"github.com/okian/admit/internal/config"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/pkg/logger"
)

func TestMainWiring(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		t.Setenv("ADMIT_ADDR", ":18080")
		t.Setenv("ADMIT_SEARCH_PROVIDER", "memory")
		t.Setenv("ADMIT_SESSION_TTL", "30m")
		t.Setenv("ADMIT_DATABASE_PATH", filepath.Join(t.TempDir(), "admit.db"))

		ctx := context.Background()
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.Addr, convey.ShouldEqual, ":18080")
		convey.So(cfg.SessionTTL, convey.ShouldEqual, 30*time.Minute)

		convey.Convey("When the memory provider is selected", func() {
			s, err := newSearcher(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			_, ok := s.(*scoring.InMemorySearcher)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When the http provider is selected", func() {
			cfg.SearchProvider = "http"
			cfg.SearchURL = "http://localhost:9090"
			s, err := newSearcher(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			_, ok := s.(*search.Client)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("When the whole server is assembled", func() {
			store, err := repository.Open(ctx, cfg.DatabasePath)
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			searcher, err := newSearcher(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			svc := newService(cfg, store, searcher, logger.Nop())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			r := newRouter(ctx, svc, logger.Nop())

			convey.Convey("Then health, docs and the API answer", func() {
				for _, path := range []string{"/healthz", "/api-docs", "/openapi.yaml", "/api/events"} {
					w := httptest.NewRecorder()
					r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("Then stats reflect the configured options", func() {
				stats := svc.GetStats()
				convey.So(stats["enforceTerminalStates"], convey.ShouldEqual, true)
				convey.So(stats["sessionTTLSeconds"], convey.ShouldEqual, 1800)
			})
		})
	})
}

func TestMainConfigErrors(t *testing.T) {
	convey.Convey("Given an unknown search provider", t, func() {
		t.Setenv("ADMIT_SEARCH_PROVIDER", "carrier-pigeon")

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given a short-lived context", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then the updater returns when it is done", func() {
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}
