// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/domain/model"
	"github.com/okian/admit/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	OpenReview(ctx context.Context, eventID string) (*service.ReviewSession, error)
	Review(id string) (*service.ReviewSession, error)
	CloseReview(id string) error

	OpenEditor(ctx context.Context, eventID string) (*service.EditorSession, error)
	Editor(id string) (*service.EditorSession, error)
	CloseEditor(id string) error

	CreateEvent(ctx context.Context, in service.NewEvent) (model.Event, error)
	ListEvents(ctx context.Context, publishedOnly bool) ([]model.Event, error)
	EventBySlug(ctx context.Context, slug string) (model.Event, []model.Question, error)
	AddCriterion(ctx context.Context, eventID, text string) (model.Criterion, error)
	RemoveCriterion(ctx context.Context, criterionID string) error
	Submit(ctx context.Context, slug, personID string, answers map[string]string) (model.Application, error)

	EnsureProfile(ctx context.Context, email string) (model.Person, error)
	UpdateProfile(ctx context.Context, personID string, patch service.ProfilePatch) (model.Person, error)
	Person(ctx context.Context, personID string) (model.Person, error)
	SetAdmin(ctx context.Context, email string) (model.Person, bool, error)
	ApplyAll(ctx context.Context, eventID string) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	logger         logger.Logger
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	eventsHandler  *EventsHandler
	profileHandler *ProfilesHandler
	reviewHandler  *ReviewsHandler
	editorHandler  *EditorsHandler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	errs := &errorWriter{logger: s.logger}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.eventsHandler = &EventsHandler{deps: deps, errs: errs}
	s.profileHandler = &ProfilesHandler{deps: deps, errs: errs}
	s.reviewHandler = &ReviewsHandler{deps: deps, errs: errs}
	s.editorHandler = &EditorsHandler{deps: deps, errs: errs}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.Use(RecoveryMiddleware(s.logger))
	route := func(path, endpoint string, h http.HandlerFunc, methods ...string) {
		r.HandleFunc(path, MetricsMiddleware(h, endpoint)).Methods(methods...)
	}

	route("/healthz", "healthz", s.healthHandler.HandleHealth, http.MethodGet)
	r.HandleFunc("/metrics", s.healthHandler.HandleMetrics).Methods(http.MethodGet)
	route("/stats", "stats", s.statsHandler.HandleStats, http.MethodGet)

	ev := s.eventsHandler
	route("/api/events", "events", ev.HandleList, http.MethodGet)
	route("/api/events", "events", ev.HandleCreate, http.MethodPost)
	route("/api/events/{slug}", "event", ev.HandleGet, http.MethodGet)
	route("/api/events/{slug}/applications", "submit", ev.HandleSubmit, http.MethodPost)
	route("/api/admin/events/{id}/criteria", "criteria", ev.HandleAddCriterion, http.MethodPost)
	route("/api/admin/criteria/{id}", "criteria", ev.HandleRemoveCriterion, http.MethodDelete)
	route("/api/admin/events/{id}/apply-all", "apply_all", ev.HandleApplyAll, http.MethodPost)

	pr := s.profileHandler
	route("/api/profiles", "profiles", pr.HandleEnsure, http.MethodPost)
	route("/api/profiles/{id}", "profile", pr.HandleGet, http.MethodGet)
	route("/api/profiles/{id}", "profile", pr.HandleUpdate, http.MethodPatch)
	route("/api/admin/admins", "admins", pr.HandleSetAdmin, http.MethodPost)

	rv := s.reviewHandler
	route("/api/admin/events/{id}/reviews", "reviews", rv.HandleOpen, http.MethodPost)
	route("/api/reviews/{sid}", "review", rv.HandleView, http.MethodGet)
	route("/api/reviews/{sid}", "review", rv.HandleClose, http.MethodDelete)
	route("/api/reviews/{sid}/filter", "review_filter", rv.HandleFilter, http.MethodPut)
	route("/api/reviews/{sid}/criterion", "review_criterion", rv.HandleCriterion, http.MethodPost)
	route("/api/reviews/{sid}/selection/toggle", "review_selection", rv.HandleToggle, http.MethodPost)
	route("/api/reviews/{sid}/selection/all", "review_selection", rv.HandleSelectAll, http.MethodPost)
	route("/api/reviews/{sid}/selection", "review_selection", rv.HandleDeselectAll, http.MethodDelete)
	route("/api/reviews/{sid}/transitions", "review_transition", rv.HandleTransition, http.MethodPost)
	route("/api/reviews/{sid}/applications/{aid}/notes", "review_notes", rv.HandleNotes, http.MethodPut)

	ed := s.editorHandler
	route("/api/admin/events/{id}/editors", "editors", ed.HandleOpen, http.MethodPost)
	route("/api/editors/{sid}", "editor", ed.HandleView, http.MethodGet)
	route("/api/editors/{sid}", "editor", ed.HandleClose, http.MethodDelete)
	route("/api/editors/{sid}/fields", "editor_fields", ed.HandleFields, http.MethodPut)
	route("/api/editors/{sid}/questions", "editor_questions", ed.HandleAppend, http.MethodPost)
	route("/api/editors/{sid}/questions/{qid}", "editor_questions", ed.HandleUpdate, http.MethodPatch)
	route("/api/editors/{sid}/questions/{qid}", "editor_questions", ed.HandleRemove, http.MethodDelete)
	route("/api/editors/{sid}/questions/{qid}/move", "editor_questions", ed.HandleMove, http.MethodPost)
	route("/api/editors/{sid}/save", "editor_save", ed.HandleSave, http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// errorWriter maps service errors to responses. Unexpected errors are
// logged and answered with a generic message.
type errorWriter struct {
	logger logger.Logger
}

func (e *errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		e.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, op string, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
