package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"stayhub/internal/app"
	"stayhub/internal/domain"
)

type startCheckoutReq struct {
	PropertyID string `json:"propertyId"`
	CheckIn    string `json:"checkIn,omitempty"`
	CheckOut   string `json:"checkOut,omitempty"`
	Guests     int    `json:"guests,omitempty"`
}

type datesReq struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	Guests   int    `json:"guests"`
}

type guestInfoReq struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone,omitempty"`
	GuestNames []string `json:"guestNames,omitempty"`
}

type guestsReq struct {
	Delta int `json:"delta"`
}

type confirmReq struct {
	SessionID string `json:"sessionId"`
}

type checkoutResp struct {
	Checkout *app.BookingWorkflow    `json:"checkout"`
	Booking  *domain.Booking         `json:"booking,omitempty"`
	Payment  *domain.CheckoutSession `json:"payment,omitempty"`
}

func parseDates(checkIn, checkOut string, guests int) (app.DatesInput, error) {
	var verrs domain.ValidationErrors
	in, err := domain.ParseDay(checkIn)
	if err != nil {
		verrs = append(verrs, domain.FieldError{Field: "checkIn", Message: "checkIn must be YYYY-MM-DD"})
	}
	out, err := domain.ParseDay(checkOut)
	if err != nil {
		verrs = append(verrs, domain.FieldError{Field: "checkOut", Message: "checkOut must be YYYY-MM-DD"})
	}
	if len(verrs) > 0 {
		return app.DatesInput{}, verrs
	}
	return app.DatesInput{CheckIn: in, CheckOut: out, Guests: guests}, nil
}

// failDraft stores the draft so the client can retry from it, then reports err.
func (h *Handlers) failDraft(w http.ResponseWriter, r *http.Request, wf *app.BookingWorkflow, err error) {
	if serr := h.Checkout.Save(r.Context(), wf); serr != nil {
		writeError(w, r, serr)
		return
	}
	p := problemFor(err)
	p.DraftID = wf.ID
	writeProblemBody(w, p)
}

func (h *Handlers) startCheckout(w http.ResponseWriter, r *http.Request) {
	var req startCheckoutReq
	if !decode(w, r, &req) {
		return
	}
	if req.PropertyID == "" {
		writeError(w, r, domain.Invalid("propertyId", "propertyId is required"))
		return
	}
	wf, err := h.Checkout.Begin(r.Context(), SessionFrom(r.Context()), req.PropertyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.CheckIn != "" || req.CheckOut != "" {
		in, err := parseDates(req.CheckIn, req.CheckOut, req.Guests)
		if err == nil {
			err = h.Checkout.SubmitDates(r.Context(), wf, in)
		}
		if err != nil {
			h.failDraft(w, r, wf, err)
			return
		}
	}
	if err := h.Checkout.Save(r.Context(), wf); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/checkout/"+wf.ID)
	writeJSON(w, http.StatusCreated, checkoutResp{Checkout: wf})
}

// withDraft loads the draft named in the path and hands it to fn.
func (h *Handlers) withDraft(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error)) {
	ctx := r.Context()
	wf, err := h.Checkout.Load(ctx, SessionFrom(ctx), chi.URLParam(r, "draftID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp, err := fn(ctx, wf)
	if err != nil {
		h.failDraft(w, r, wf, err)
		return
	}
	if err := h.Checkout.Save(ctx, wf); err != nil {
		writeError(w, r, err)
		return
	}
	resp.Checkout = wf
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) getCheckout(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		return checkoutResp{}, nil
	})
}

func (h *Handlers) submitDates(w http.ResponseWriter, r *http.Request) {
	var req datesReq
	if !decode(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		in, err := parseDates(req.CheckIn, req.CheckOut, req.Guests)
		if err != nil {
			return checkoutResp{}, err
		}
		return checkoutResp{}, h.Checkout.SubmitDates(ctx, wf, in)
	})
}

func (h *Handlers) adjustGuests(w http.ResponseWriter, r *http.Request) {
	var req guestsReq
	if !decode(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		return checkoutResp{}, h.Checkout.AdjustGuests(wf, req.Delta)
	})
}

// submitGuestInfo reserves the stay and opens the payment page in one step.
func (h *Handlers) submitGuestInfo(w http.ResponseWriter, r *http.Request) {
	var req guestInfoReq
	if !decode(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		b, err := h.Checkout.SubmitGuestInfo(ctx, wf, app.GuestInfoInput{
			GuestInfo:  domain.GuestInfo{Name: req.Name, Email: req.Email, Phone: req.Phone},
			GuestNames: req.GuestNames,
		})
		if err != nil {
			return checkoutResp{}, err
		}
		// the booking is stored; keep the draft in step before talking to the provider
		if err := h.Checkout.Save(ctx, wf); err != nil {
			return checkoutResp{}, err
		}
		payCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		cs, err := h.Checkout.StartPayment(payCtx, wf)
		if err != nil {
			return checkoutResp{}, err
		}
		return checkoutResp{Booking: &b, Payment: &cs}, nil
	})
}

// retryPayment opens a hosted checkout again for a draft whose payment could not start.
func (h *Handlers) retryPayment(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		payCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		cs, err := h.Checkout.StartPayment(payCtx, wf)
		if err != nil {
			return checkoutResp{}, err
		}
		return checkoutResp{Payment: &cs}, nil
	})
}

func (h *Handlers) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	var req confirmReq
	if !decode(w, r, &req) {
		return
	}
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		b, err := h.Checkout.ConfirmPayment(ctx, wf, req.SessionID)
		if err != nil {
			return checkoutResp{}, err
		}
		return checkoutResp{Booking: &b}, nil
	})
}

func (h *Handlers) checkoutBack(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		return checkoutResp{}, h.Checkout.Back(ctx, wf)
	})
}

func (h *Handlers) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	h.withDraft(w, r, func(ctx context.Context, wf *app.BookingWorkflow) (checkoutResp, error) {
		return checkoutResp{}, h.Checkout.Cancel(ctx, wf)
	})
}
