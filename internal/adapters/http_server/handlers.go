package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"stayhub/internal/app"
	"stayhub/internal/domain"
)

const maxBody = 1 << 20

type Handlers struct {
	Properties   *app.PropertyService
	Availability *app.AvailabilityChecker
	Bookings     *app.BookingService
	Checkout     *app.CheckoutService
	Users        *app.UserService
	Files        domain.FileStore
	Payments     domain.PaymentProvider
}

type problem struct {
	Type    string              `json:"type"`
	Title   string              `json:"title"`
	Status  int                 `json:"status"`
	Detail  string              `json:"detail,omitempty"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
	DraftID string              `json:"draftId,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/properties", h.listProperties)
	s.mux.Post("/v1/properties", h.createProperty)
	s.mux.Get("/v1/properties/{id}", h.getProperty)
	s.mux.Patch("/v1/properties/{id}", h.updateProperty)
	s.mux.Delete("/v1/properties/{id}", h.deleteProperty)
	s.mux.Get("/v1/properties/{id}/availability", h.availability)
	s.mux.Get("/v1/properties/{id}/bookings", h.propertyBookings)

	s.mux.Post("/v1/checkout", h.startCheckout)
	s.mux.Get("/v1/checkout/{draftID}", h.getCheckout)
	s.mux.Post("/v1/checkout/{draftID}/dates", h.submitDates)
	s.mux.Post("/v1/checkout/{draftID}/guests", h.adjustGuests)
	s.mux.Post("/v1/checkout/{draftID}/guest-info", h.submitGuestInfo)
	s.mux.Post("/v1/checkout/{draftID}/payment", h.retryPayment)
	s.mux.Post("/v1/checkout/{draftID}/confirm", h.confirmCheckout)
	s.mux.Post("/v1/checkout/{draftID}/back", h.checkoutBack)
	s.mux.Post("/v1/checkout/{draftID}/cancel", h.cancelCheckout)

	s.mux.Get("/v1/bookings/recent", h.recentBookings)
	s.mux.Get("/v1/bookings/{id}", h.getBooking)
	s.mux.Delete("/v1/bookings/{id}", h.deleteBooking)
	s.mux.Get("/v1/bookings/{id}/confirmation", h.bookingConfirmation)
	s.mux.Post("/v1/bookings/{id}/cancel", h.cancelBooking)
	s.mux.Post("/v1/bookings/{id}/complete", h.completeBooking)

	s.mux.Put("/v1/users/me", h.saveMe)
	s.mux.Get("/v1/users/{id}", h.getUser)
	s.mux.Get("/v1/users/{id}/bookings", h.userBookings)

	s.mux.Post("/v1/uploads/delete", h.deleteUpload)
	s.mux.Post("/v1/payments/stripe/webhook", h.stripeWebhook)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// problemFor maps domain errors onto HTTP problems.
func problemFor(err error) problem {
	p := problem{Type: "about:blank", Detail: err.Error()}
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		p.Status, p.Title, p.Errors = http.StatusUnprocessableEntity, "Validation Failed", verrs
		p.Detail = "one or more fields are invalid"
	case errors.Is(err, domain.ErrAvailabilityConflict):
		p.Status, p.Title = http.StatusConflict, "Not Available"
		p.Detail = domain.ErrAvailabilityConflict.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		p.Status, p.Title = http.StatusConflict, "Invalid State"
	case errors.Is(err, domain.ErrNotFound):
		p.Status, p.Title = http.StatusNotFound, "Not Found"
	case errors.Is(err, domain.ErrForbidden):
		p.Status, p.Title = http.StatusForbidden, "Forbidden"
	case errors.Is(err, domain.ErrPayment):
		p.Status, p.Title = http.StatusBadGateway, "Payment Error"
	case errors.Is(err, domain.ErrTransientIO):
		p.Status, p.Title = http.StatusServiceUnavailable, "Temporarily Unavailable"
		p.Detail = domain.ErrTransientIO.Error()
	default:
		p.Status, p.Title, p.Detail = http.StatusInternalServerError, "Internal Error", ""
	}
	return p
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err)
	if p.Status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeProblemBody(w, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// decode reads a JSON body, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func queryLimit(r *http.Request, def, max int) (int, bool) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return def, true
	}
	l, err := strconv.Atoi(ls)
	if err != nil || l <= 0 || l > max {
		return 0, false
	}
	return l, true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached serves v with an ETag, answering 304 when the client is current.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write cached body")
	}
}
