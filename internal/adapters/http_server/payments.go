package httpserver

import (
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"stayhub/internal/domain"
)

const maxWebhookBody = 64 << 10

func (h *Handlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeProblem(w, http.StatusBadRequest, "Missing Signature", "Stripe-Signature header is required")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "could not read webhook body")
		return
	}
	ev, err := h.Payments.ParseWebhook(payload, sig)
	if err != nil {
		log.Warn().Err(err).Msg("stripe webhook rejected")
		writeProblem(w, http.StatusBadRequest, "Invalid Webhook", "signature verification failed")
		return
	}
	if err := h.Bookings.HandlePaymentEvent(r.Context(), ev); err != nil {
		// non-2xx makes Stripe retry delivery
		log.Error().Err(err).Str("booking_id", ev.Status.BookingID).Msg("stripe webhook handling failed")
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type deleteUploadReq struct {
	FileKey  string   `json:"fileKey,omitempty"`
	FileKeys []string `json:"fileKeys,omitempty"`
}

func (h *Handlers) deleteUpload(w http.ResponseWriter, r *http.Request) {
	if !SessionFrom(r.Context()).Authenticated() {
		writeError(w, r, domain.ErrForbidden)
		return
	}
	var req deleteUploadReq
	if !decode(w, r, &req) {
		return
	}
	keys := req.FileKeys
	if req.FileKey != "" {
		keys = append(keys, req.FileKey)
	}
	for i, k := range keys {
		keys[i] = strings.TrimSpace(k)
		if keys[i] == "" {
			writeError(w, r, domain.Invalid("fileKey", "file key is required"))
			return
		}
	}
	if len(keys) == 0 {
		writeError(w, r, domain.Invalid("fileKey", "file key is required"))
		return
	}
	if err := h.Files.DeleteFiles(r.Context(), keys...); err != nil {
		log.Warn().Strs("keys", keys).Err(err).Msg("upload delete failed")
		writeProblem(w, http.StatusBadGateway, "Upload Provider Error", "file could not be deleted")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": len(keys)})
}
