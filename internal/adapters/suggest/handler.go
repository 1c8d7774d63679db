package suggest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/admit/internal/adapters/mq/queue"
	"github.com/okian/admit/internal/adapters/repository"
	"github.com/okian/admit/internal/domain/scoring"
	"github.com/okian/admit/pkg/logger"
	"github.com/okian/admit/pkg/metrics"
)

type suggestRequest struct {
	Query string `json:"query"`
}

type suggestResponse struct {
	Suggestions []scoring.Suggestion `json:"suggestions"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Handler serves the suggest API.
type Handler struct {
	svc    *Service
	logger logger.Logger
}

// NewHandler creates the suggest HTTP handler.
func NewHandler(svc *Service, l logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	return &Handler{svc: svc, logger: l}
}

// Router returns the routes of the suggest service.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/suggest-attendees", h.handleSuggest).Methods(http.MethodPost)
	r.HandleFunc("/api/index", h.handleIndexAll).Methods(http.MethodPost)
	r.HandleFunc("/api/index/{id}", h.handleIndexOne).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	return r
}

func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	out, err := h.svc.Suggest(r.Context(), req.Query)
	switch {
	case errors.Is(err, scoring.ErrBlankQuery):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "query is required"})
		return
	case errors.Is(err, ErrEmptyEmbedding):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to generate embedding"})
		return
	case err != nil:
		h.logger.Error(r.Context(), "suggest-attendees failed", logger.Error(err))
		metrics.RecordErrorByComponent("suggest", "embed_error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}
	if out == nil {
		out = []scoring.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestResponse{Suggestions: out})
}

func (h *Handler) handleIndexAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.EnqueueAll(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrFull) {
			status = http.StatusTooManyRequests
		}
		writeJSON(w, status, map[string]any{"error": err.Error(), "queued": n})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": n})
}

func (h *Handler) handleIndexOne(w http.ResponseWriter, r *http.Request) {
	err := h.svc.EnqueuePerson(r.Context(), mux.Vars(r)["id"])
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "person not found"})
	case errors.Is(err, queue.ErrFull):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]int{"queued": 1})
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "indexed": h.svc.Indexed()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
