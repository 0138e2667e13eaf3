package app

import (
	"fmt"
	"time"

	"stayhub/internal/domain"
)

type WorkflowState string

const (
	CollectingDates     WorkflowState = "collecting_dates"
	CollectingGuestInfo WorkflowState = "collecting_guest_info"
	AwaitingPayment     WorkflowState = "awaiting_payment"
	Confirmed           WorkflowState = "confirmed"
	Cancelled           WorkflowState = "cancelled"
	Failed              WorkflowState = "failed"
)

// Terminal reports whether no further step is possible.
func (s WorkflowState) Terminal() bool {
	return s == Confirmed || s == Cancelled
}

// WorkflowProperty is the slice of a listing the checkout needs.
type WorkflowProperty struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Price     int64  `json:"price"`
	MaxGuests int    `json:"maxGuests"`
}

func workflowProperty(p domain.Property) WorkflowProperty {
	wp := WorkflowProperty{ID: p.ID, OwnerID: p.OwnerID, Title: p.Title, Price: p.Price, MaxGuests: p.Guests}
	if len(p.Images) > 0 {
		wp.Image = p.Images[0]
	}
	return wp
}

// BookingWorkflow is one guest's checkout for one property. It is a plain value
// so drafts can be stored between requests.
type BookingWorkflow struct {
	ID         string                  `json:"id"`
	State      WorkflowState           `json:"state"`
	Session    domain.Session          `json:"session"`
	Property   WorkflowProperty        `json:"property"`
	CheckIn    time.Time               `json:"checkIn,omitempty"`
	CheckOut   time.Time               `json:"checkOut,omitempty"`
	Guests     int                     `json:"guests"`
	GuestInfo  domain.GuestInfo        `json:"guestInfo"`
	GuestNames []string                `json:"guestNames,omitempty"`
	Quote      *domain.Quote           `json:"quote,omitempty"`
	BookingID  string                  `json:"bookingId,omitempty"`
	HeldAt     time.Time               `json:"heldAt,omitempty"`
	Attempt    int                     `json:"attempt,omitempty"` // reservation attempts released so far
	Retries    int                     `json:"retries,omitempty"` // failed payment starts
	Checkout   *domain.CheckoutSession `json:"checkout,omitempty"`
	Message    string                  `json:"message,omitempty"`
	UpdatedAt  time.Time               `json:"updatedAt"`
}

func NewWorkflow(id string, s domain.Session, p domain.Property, now time.Time) *BookingWorkflow {
	w := &BookingWorkflow{
		ID:        id,
		State:     CollectingDates,
		Session:   s,
		Property:  workflowProperty(p),
		Guests:    1,
		UpdatedAt: now,
	}
	w.GuestInfo.Email = s.Email
	return w
}

func (w *BookingWorkflow) expect(states ...WorkflowState) error {
	for _, s := range states {
		if w.State == s {
			return nil
		}
	}
	return fmt.Errorf("%w: checkout is %s", domain.ErrInvalidTransition, w.State)
}

func (w *BookingWorkflow) moveTo(s WorkflowState, now time.Time) {
	w.State = s
	w.UpdatedAt = now
}

// IncrementGuests adds a guest unless the property is already at capacity.
func (w *BookingWorkflow) IncrementGuests() error {
	if err := w.expect(CollectingDates, CollectingGuestInfo); err != nil {
		return err
	}
	if w.Guests < w.Property.MaxGuests {
		w.Guests++
		w.resizeGuestNames()
	}
	return nil
}

// DecrementGuests removes a guest unless only one is left.
func (w *BookingWorkflow) DecrementGuests() error {
	if err := w.expect(CollectingDates, CollectingGuestInfo); err != nil {
		return err
	}
	if w.Guests > 1 {
		w.Guests--
		w.resizeGuestNames()
	}
	return nil
}

func (w *BookingWorkflow) resizeGuestNames() {
	if w.GuestNames == nil {
		return
	}
	if len(w.GuestNames) > w.Guests {
		w.GuestNames = w.GuestNames[:w.Guests]
		return
	}
	for len(w.GuestNames) < w.Guests {
		w.GuestNames = append(w.GuestNames, "")
	}
}

// Fail records a failed step. The pending booking, if any, is left in place.
func (w *BookingWorkflow) Fail(reason string, now time.Time) {
	if w.State.Terminal() {
		return
	}
	w.Message = reason
	w.moveTo(Failed, now)
}

// Back returns to date selection keeping the guest details entered so far.
// It returns the booking the draft was holding, which the caller must release;
// the next reservation from this draft gets a new booking id.
func (w *BookingWorkflow) Back(now time.Time) (string, error) {
	if err := w.expect(CollectingGuestInfo, AwaitingPayment, Failed); err != nil {
		return "", err
	}
	held := w.BookingID
	if held != "" {
		w.Attempt++
	}
	w.BookingID = ""
	w.HeldAt = time.Time{}
	w.Retries = 0
	w.Checkout = nil
	w.Message = ""
	w.moveTo(CollectingDates, now)
	return held, nil
}

// Cancel abandons the checkout. Like Back it hands the held booking to the caller.
func (w *BookingWorkflow) Cancel(now time.Time) (string, error) {
	if w.State.Terminal() {
		return "", fmt.Errorf("%w: checkout is %s", domain.ErrInvalidTransition, w.State)
	}
	held := w.BookingID
	w.BookingID = ""
	w.Checkout = nil
	w.moveTo(Cancelled, now)
	return held, nil
}
