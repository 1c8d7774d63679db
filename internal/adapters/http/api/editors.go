package api

import (
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/domain/questions"
)

// EditorsHandler serves event editor sessions.
type EditorsHandler struct {
	deps Dependencies
	errs *errorWriter
}

type appendResponse struct {
	ID   questions.EntryID  `json:"id"`
	View service.EditorView `json:"view"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

func (h *EditorsHandler) session(w http.ResponseWriter, r *http.Request) (*service.EditorSession, bool) {
	es, err := h.deps.Editor(mux.Vars(r)["sid"])
	if err != nil {
		h.errs.write(w, r, err)
		return nil, false
	}
	return es, true
}

// entry resolves {qid} or writes the error.
func (h *EditorsHandler) entry(w http.ResponseWriter, r *http.Request) (questions.EntryID, bool) {
	id, err := questions.ParseEntryID(mux.Vars(r)["qid"])
	if err != nil {
		h.errs.write(w, r, err)
		return questions.EntryID{}, false
	}
	return id, true
}

func (h *EditorsHandler) respond(w http.ResponseWriter, r *http.Request, v service.EditorView, err error) {
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleOpen handles POST /api/admin/events/{id}/editors.
func (h *EditorsHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	es, err := h.deps.OpenEditor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, es.View())
}

// HandleView handles GET /api/editors/{sid}.
func (h *EditorsHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, es.View())
}

// HandleClose handles DELETE /api/editors/{sid}, discarding unsaved edits.
func (h *EditorsHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.CloseEditor(mux.Vars(r)["sid"]); err != nil {
		h.errs.write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFields handles PUT /api/editors/{sid}/fields.
func (h *EditorsHandler) HandleFields(w http.ResponseWriter, r *http.Request) {
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	var f service.EventFields
	if err := decode(r, "api.editor_fields", &f); err != nil {
		h.errs.write(w, r, err)
		return
	}
	v, err := es.SetFields(f)
	h.respond(w, r, v, err)
}

// HandleAppend handles POST /api/editors/{sid}/questions.
func (h *EditorsHandler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	id, v, err := es.AppendQuestion()
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appendResponse{ID: id, View: v})
}

// HandleUpdate handles PATCH /api/editors/{sid}/questions/{qid}.
func (h *EditorsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.entry(w, r)
	if !ok {
		return
	}
	var p questions.Patch
	if err := decode(r, "api.editor_update", &p); err != nil {
		h.errs.write(w, r, err)
		return
	}
	v, err := es.UpdateQuestion(id, p)
	h.respond(w, r, v, err)
}

// HandleRemove handles DELETE /api/editors/{sid}/questions/{qid}.
func (h *EditorsHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.entry(w, r)
	if !ok {
		return
	}
	v, err := es.RemoveQuestion(id)
	h.respond(w, r, v, err)
}

// HandleMove handles POST /api/editors/{sid}/questions/{qid}/move with
// direction "up" or "down".
func (h *EditorsHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	const op = "api.editor_move"
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := h.entry(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decode(r, op, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if req.Direction != "up" && req.Direction != "down" {
		h.errs.write(w, r, NewKind(op, ErrBadRequest))
		return
	}
	v, err := es.MoveQuestion(id, req.Direction == "up")
	h.respond(w, r, v, err)
}

// HandleSave handles POST /api/editors/{sid}/save.
func (h *EditorsHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	es, ok := h.session(w, r)
	if !ok {
		return
	}
	v, err := es.Save(r.Context())
	h.respond(w, r, v, err)
}
