package api

import (
	"net/http"

	"github.com/gorilla/mux"

	service "github.com/okian/admit/internal/app"
	"github.com/okian/admit/internal/domain/model"
)

// ProfilesHandler serves people and admin grants.
type ProfilesHandler struct {
	deps Dependencies
	errs *errorWriter
}

type emailRequest struct {
	Email string `json:"email"`
}

type setAdminResponse struct {
	Person  model.Person `json:"person"`
	Created bool         `json:"created"`
}

// HandleEnsure handles POST /api/profiles: find or create by email.
func (h *ProfilesHandler) HandleEnsure(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, "api.ensure_profile", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	p, err := h.deps.EnsureProfile(r.Context(), req.Email)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleGet handles GET /api/profiles/{id}.
func (h *ProfilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Person(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PATCH /api/profiles/{id}.
func (h *ProfilesHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.ProfilePatch
	if err := decode(r, "api.update_profile", &patch); err != nil {
		h.errs.write(w, r, err)
		return
	}
	p, err := h.deps.UpdateProfile(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleSetAdmin handles POST /api/admin/admins.
func (h *ProfilesHandler) HandleSetAdmin(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, "api.set_admin", &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	p, created, err := h.deps.SetAdmin(r.Context(), req.Email)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, setAdminResponse{Person: p, Created: created})
}
