package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stayhub/internal/domain"
)

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.Get(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// bookingConfirmation is the landing call after the hosted checkout redirects back.
func (h *Handlers) bookingConfirmation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := h.Bookings.ConfirmPayment(r.Context(), id, r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, h.Bookings.Cancel)
}

func (h *Handlers) completeBooking(w http.ResponseWriter, r *http.Request) {
	h.bookingAction(w, r, h.Bookings.Complete)
}

func (h *Handlers) bookingAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, s domain.Session, id string) (domain.Booking, error)) {
	b, err := fn(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.Delete(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) recentBookings(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, 10, 100)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
		return
	}
	out, err := h.Bookings.ListRecent(r.Context(), SessionFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handlers) userBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.ListByUser(r.Context(), SessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}
