package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stayhub/internal/app"
	"stayhub/internal/domain"
)

func (h *Handlers) listProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := queryLimit(r, 50, 100)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
		return
	}
	featured, _ := strconv.ParseBool(q.Get("featured"))
	out, err := h.Properties.List(r.Context(), app.ListFilter{
		Query:    q.Get("q"),
		OwnerID:  q.Get("owner"),
		Featured: featured,
		Limit:    limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Properties.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, p)
}

func (h *Handlers) createProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if !decode(w, r, &in) {
		return
	}
	p, err := h.Properties.Create(r.Context(), SessionFrom(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/properties/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) updateProperty(w http.ResponseWriter, r *http.Request) {
	var patch domain.PropertyPatch
	if !decode(w, r, &patch) {
		return
	}
	p, err := h.Properties.Update(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deleteProperty(w http.ResponseWriter, r *http.Request) {
	if err := h.Properties.Delete(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in, err1 := domain.ParseDay(q.Get("checkIn"))
	out, err2 := domain.ParseDay(q.Get("checkOut"))
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "checkIn and checkOut must be YYYY-MM-DD")
		return
	}
	id := chi.URLParam(r, "id")
	ok, err := h.Availability.IsAvailable(r.Context(), id, in, out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"propertyId": id,
		"checkIn":    domain.Day(in).Format(domain.DayLayout),
		"checkOut":   domain.Day(out).Format(domain.DayLayout),
		"available":  ok,
	})
}

func (h *Handlers) propertyBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.ListByProperty(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
