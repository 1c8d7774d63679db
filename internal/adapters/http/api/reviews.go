package api

import (
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/domain/model"
)

// ReviewsHandler serves review sessions.
type ReviewsHandler struct {
	deps Dependencies
	errs *errorWriter
}

type filterRequest struct {
	Status model.StatusFilter `json:"status"`
	Query  string             `json:"query"`
}

type criterionSelectRequest struct {
	CriterionID string `json:"criterion_id"`
}

type toggleRequest struct {
	ApplicationID string `json:"application_id"`
}

// transitionRequest moves ids, or the current selection when ids is empty.
type transitionRequest struct {
	IDs    []string     `json:"ids"`
	Target model.Status `json:"target"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// session resolves {sid} or writes the error.
func (h *ReviewsHandler) session(w http.ResponseWriter, r *http.Request) (*service.ReviewSession, bool) {
	rs, err := h.deps.Review(mux.Vars(r)["sid"])
	if err != nil {
		h.errs.write(w, r, err)
		return nil, false
	}
	return rs, true
}

func (h *ReviewsHandler) respond(w http.ResponseWriter, r *http.Request, v service.ReviewView, err error) {
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleOpen handles POST /api/admin/events/{id}/reviews.
func (h *ReviewsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	rs, err := h.deps.OpenReview(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	v, err := rs.View()
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// HandleView handles GET /api/reviews/{sid}.
func (h *ReviewsHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	v, err := rs.View()
	h.respond(w, r, v, err)
}

// HandleClose handles DELETE /api/reviews/{sid}.
func (h *ReviewsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseReview(mux.Vars(r)["sid"]); err != nil {
		h.errs.write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFilter handles PUT /api/reviews/{sid}/filter.
func (h *ReviewsHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	var req filterRequest
	if err := decode(r, "api.review_filter", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	v, err := rs.SetFilter(req.Status, req.Query)
	h.respond(w, r, v, err)
}

// HandleCriterion handles POST /api/reviews/{sid}/criterion. Selecting the
// active criterion again clears it.
func (h *ReviewsHandler) HandleCriterion(w http.ResponseWriter, r *http.Request) {
	const op = "api.review_criterion"
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	var req criterionSelectRequest
	if err := decode(r, op, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if req.CriterionID == "" {
		h.errs.write(w, r, WrapKind(op, ErrBadRequest, errMissing("criterion_id")))
		return
	}
	v, err := rs.SelectCriterion(r.Context(), req.CriterionID)
	h.respond(w, r, v, err)
}

// HandleToggle handles POST /api/reviews/{sid}/selection/toggle.
func (h *ReviewsHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	const op = "api.review_toggle"
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := decode(r, op, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if req.ApplicationID == "" {
		h.errs.write(w, r, WrapKind(op, ErrBadRequest, errMissing("application_id")))
		return
	}
	v, err := rs.ToggleSelection(req.ApplicationID)
	h.respond(w, r, v, err)
}

// HandleSelectAll handles POST /api/reviews/{sid}/selection/all.
func (h *ReviewsHandler) HandleSelectAll(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	v, err := rs.SelectAll()
	h.respond(w, r, v, err)
}

// HandleDeselectAll handles DELETE /api/reviews/{sid}/selection.
func (h *ReviewsHandler) HandleDeselectAll(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	v, err := rs.DeselectAll()
	h.respond(w, r, v, err)
}

// HandleTransition handles POST /api/reviews/{sid}/transitions.
func (h *ReviewsHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decode(r, "api.review_transition", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	var (
		res service.TransitionResult
		err error
	)
	if len(req.IDs) > 0 {
		res, err = rs.Transition(r.Context(), req.IDs, req.Target)
	} else {
		res, err = rs.TransitionSelected(r.Context(), req.Target)
	}
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleNotes handles PUT /api/reviews/{sid}/applications/{aid}/notes.
func (h *ReviewsHandler) HandleNotes(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.session(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if err := decode(r, "api.review_notes", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	v, err := rs.EditNotes(r.Context(), mux.Vars(r)["aid"], req.Notes)
	h.respond(w, r, v, err)
}
