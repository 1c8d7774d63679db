package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/admit/internal/adapters/repository"
	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/pkg/logger"
)

func TestStatusFor(t *testing.T) {
	Convey("Given wrapped service errors", t, func() {
		wrap := func(err error) error { return fmt.Errorf("service.op: %w", err) }

		status, _ := statusFor(wrap(repository.ErrDuplicateSlug))
		So(status, ShouldEqual, http.StatusConflict)
		status, _ = statusFor(wrap(service.ErrSessionNotFound))
		So(status, ShouldEqual, http.StatusNotFound)
		status, _ = statusFor(WrapKind("api.x", ErrBadRequest, errors.New("eof")))
		So(status, ShouldEqual, http.StatusBadRequest)
		status, code := statusFor(errors.New("database is locked"))
		So(status, ShouldEqual, http.StatusInternalServerError)
		So(code, ShouldEqual, "internal")

		Convey("Then internal errors are not echoed to the client", func() {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
			(&errorWriter{logger: logger.Nop()}).write(w, r, errors.New("database is locked"))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "locked")
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a handler that panics", t, func() {
		h := RecoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		Convey("Then the client gets a generic 500", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, `"code":"internal"`)
			So(w.Body.String(), ShouldNotContainSubstring, "boom")
		})
	})

	Convey("Given the metrics wrapper", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusGone)
		}, "test")

		Convey("Then the handler's status passes through", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusGone)
		})

		Convey("Then error statuses are classified", func() {
			class, _, ok := errorClass(http.StatusGone)
			So(ok, ShouldBeTrue)
			So(class, ShouldEqual, "session_closed")
			_, _, ok = errorClass(http.StatusCreated)
			So(ok, ShouldBeFalse)
		})
	})
}
