package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/domain/model"
)

// EventsHandler serves events, criteria and submissions.
type EventsHandler struct {
	deps Dependencies
	errs *errorWriter
}

type eventResponse struct {
	model.Event
	Questions []model.Question `json:"questions"`
}

type submitRequest struct {
	PersonID string            `json:"person_id"`
	Answers  map[string]string `json:"answers"`
}

type criterionRequest struct {
	Text string `json:"text"`
}

// HandleList handles GET /api/events. ?published=true hides drafts and
// closed events.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	published := false
	if v := r.URL.Query().Get("published"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.errs.write(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		published = b
	}
	events, err := h.deps.ListEvents(r.Context(), published)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleCreate handles POST /api/events.
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req service.NewEvent
	if err := decode(r, "api.create_event", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	ev, err := h.deps.CreateEvent(r.Context(), req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// HandleGet handles GET /api/events/{slug}.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ev, qs, err := h.deps.EventBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if qs == nil {
		qs = []model.Question{}
	}
	writeJSON(w, http.StatusOK, eventResponse{Event: ev, Questions: qs})
}

// HandleSubmit handles POST /api/events/{slug}/applications.
func (h *EventsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	var req submitRequest
	if err := decode(r, op, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if strings.TrimSpace(req.PersonID) == "" {
		h.errs.write(w, r, WrapKind(op, ErrBadRequest, errMissing("person_id")))
		return
	}
	app, err := h.deps.Submit(r.Context(), mux.Vars(r)["slug"], req.PersonID, req.Answers)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// HandleAddCriterion handles POST /api/admin/events/{id}/criteria.
func (h *EventsHandler) HandleAddCriterion(w http.ResponseWriter, r *http.Request) {
	var req criterionRequest
	if err := decode(r, "api.add_criterion", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	c, err := h.deps.AddCriterion(r.Context(), mux.Vars(r)["id"], req.Text)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleRemoveCriterion handles DELETE /api/admin/criteria/{id}.
func (h *EventsHandler) HandleRemoveCriterion(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.RemoveCriterion(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.errs.write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApplyAll handles POST /api/admin/events/{id}/apply-all.
func (h *EventsHandler) HandleApplyAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.deps.ApplyAll(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": n})
}
