package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"stayhub/internal/domain"
)

func (h *Handlers) saveMe(w http.ResponseWriter, r *http.Request) {
	var in domain.UserInput
	if !decode(w, r, &in) {
		return
	}
	u, err := h.Users.Save(r.Context(), SessionFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// getUser returns a profile to its owner or an admin.
func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s := SessionFrom(r.Context())
	if id == "me" {
		id = s.UserID
	}
	if !s.Authenticated() || (s.UserID != id && !s.IsAdmin()) {
		writeError(w, r, domain.ErrForbidden)
		return
	}
	u, err := h.Users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
