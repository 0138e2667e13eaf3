package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

const draftKeyPrefix = "checkout:"

// minPaymentWindow is the shortest hosted checkout Stripe accepts.
const minPaymentWindow = 30 * time.Minute

// bookingSpace namespaces booking ids derived from checkout drafts.
var bookingSpace = uuid.MustParse("3b9e4f62-1c7a-4d0e-8f15-6a2c9d47b0e3")

type CheckoutDeps struct {
	Properties   domain.PropertyRepository
	Bookings     domain.BookingRepository
	Availability *AvailabilityChecker
	BookingSvc   *BookingService
	Payments     domain.PaymentProvider
	Drafts       domain.Cache
	Notifier     *Notifier
	AppURL       string
	DraftTTL     time.Duration
	PendingTTL   time.Duration // how long the sweeper lets a pending booking hold its nights
}

// CheckoutService drives BookingWorkflow drafts through their steps.
type CheckoutService struct {
	d     CheckoutDeps
	now   func() time.Time
	newID func() string
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	if d.DraftTTL <= 0 {
		d.DraftTTL = time.Hour
	}
	if d.PendingTTL <= 0 {
		d.PendingTTL = time.Hour
	}
	d.AppURL = strings.TrimRight(d.AppURL, "/")
	return &CheckoutService{d: d, now: time.Now, newID: uuid.NewString}
}

type DatesInput struct {
	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
}

type GuestInfoInput struct {
	domain.GuestInfo
	GuestNames []string
}

// Begin opens a checkout draft for a property.
func (c *CheckoutService) Begin(ctx context.Context, sess domain.Session, propertyID string) (*BookingWorkflow, error) {
	p, err := c.d.Properties.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, storeErr("get property", err)
	}
	w := NewWorkflow(c.newID(), sess, p, c.now().UTC())
	return w, nil
}

// Load fetches a stored draft. Drafts started by a signed-in user are private to them.
func (c *CheckoutService) Load(ctx context.Context, sess domain.Session, draftID string) (*BookingWorkflow, error) {
	var w BookingWorkflow
	ok, err := c.d.Drafts.Get(ctx, draftKeyPrefix+draftID, &w)
	if err != nil {
		return nil, domain.Transient("load checkout", err)
	}
	if !ok {
		return nil, fmt.Errorf("checkout %s: %w", draftID, domain.ErrNotFound)
	}
	if w.Session.UserID != "" && w.Session.UserID != sess.UserID {
		return nil, domain.ErrForbidden
	}
	return &w, nil
}

func (c *CheckoutService) Save(ctx context.Context, w *BookingWorkflow) error {
	if err := c.d.Drafts.Set(ctx, draftKeyPrefix+w.ID, w, int(c.d.DraftTTL.Seconds())); err != nil {
		return domain.Transient("save checkout", err)
	}
	return nil
}

// SubmitDates validates the stay, checks availability and prices it.
// On a conflict the draft stays on date selection with a message.
func (c *CheckoutService) SubmitDates(ctx context.Context, w *BookingWorkflow, in DatesInput) error {
	if err := w.expect(CollectingDates); err != nil {
		return err
	}
	p, err := c.d.Properties.GetProperty(ctx, w.Property.ID)
	if err != nil {
		return storeErr("get property", err)
	}
	w.Property = workflowProperty(p)

	if verr := c.validateDates(in, p.Guests); len(verr) > 0 {
		return verr
	}
	w.Message = ""
	if !p.IsAvailable {
		w.Message = "This property is not accepting bookings"
		return fmt.Errorf("%w: property is not accepting bookings", domain.ErrAvailabilityConflict)
	}

	ok, err := c.d.Availability.IsAvailable(ctx, p.ID, in.CheckIn, in.CheckOut)
	if err != nil {
		return err
	}
	if !ok {
		w.Message = "Property is not available for selected dates"
		observability.ObserveBooking("conflict")
		return domain.ErrAvailabilityConflict
	}

	w.CheckIn, w.CheckOut = domain.Day(in.CheckIn), domain.Day(in.CheckOut)
	w.Guests = in.Guests
	w.resizeGuestNames()
	q := domain.NewQuote(p.Price, domain.Nights(w.CheckIn, w.CheckOut))
	w.Quote = &q
	w.moveTo(CollectingGuestInfo, c.now().UTC())
	return nil
}

func (c *CheckoutService) validateDates(in DatesInput, maxGuests int) domain.ValidationErrors {
	var out domain.ValidationErrors
	today := domain.Day(c.now())
	switch {
	case in.CheckIn.IsZero():
		out = append(out, domain.FieldError{Field: "checkIn", Message: "checkIn is required"})
	case domain.Day(in.CheckIn).Before(today):
		out = append(out, domain.FieldError{Field: "checkIn", Message: "check-in cannot be in the past"})
	}
	switch {
	case in.CheckOut.IsZero():
		out = append(out, domain.FieldError{Field: "checkOut", Message: "checkOut is required"})
	case !in.CheckIn.IsZero() && !domain.Day(in.CheckIn).Before(domain.Day(in.CheckOut)):
		out = append(out, domain.FieldError{Field: "checkOut", Message: "check-out must be after check-in"})
	}
	if in.Guests < 1 || in.Guests > maxGuests {
		out = append(out, domain.FieldError{
			Field:   "guests",
			Message: fmt.Sprintf("guests must be between 1 and %d", maxGuests),
		})
	}
	return out
}

// AdjustGuests applies a +1/-1 step, clamped to the property's capacity.
func (c *CheckoutService) AdjustGuests(w *BookingWorkflow, delta int) error {
	switch delta {
	case 1:
		return w.IncrementGuests()
	case -1:
		return w.DecrementGuests()
	default:
		return domain.Invalid("delta", "delta must be 1 or -1")
	}
}

// SubmitGuestInfo validates contact details and reserves the stay as a pending
// booking. The confirmation email is queued and never fails the booking.
func (c *CheckoutService) SubmitGuestInfo(ctx context.Context, w *BookingWorkflow, in GuestInfoInput) (domain.Booking, error) {
	if err := w.expect(CollectingGuestInfo); err != nil {
		return domain.Booking{}, err
	}
	info := domain.GuestInfo{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
	if err := validateStruct(info); err != nil {
		return domain.Booking{}, err
	}
	names, err := guestNames(in.GuestNames, w.Guests)
	if err != nil {
		return domain.Booking{}, err
	}
	if w.Guests < 1 || w.Guests > w.Property.MaxGuests {
		return domain.Booking{}, domain.Invalid("guests", fmt.Sprintf("guests must be between 1 and %d", w.Property.MaxGuests))
	}
	w.GuestInfo, w.GuestNames = info, names

	now := c.now().UTC().Truncate(time.Second)
	b := domain.Booking{
		ID:         heldBookingID(w),
		PropertyID: w.Property.ID,
		UserID:     w.Session.BookingUserID(),
		CheckIn:    w.CheckIn,
		CheckOut:   w.CheckOut,
		Guests:     w.Guests,
		TotalPrice: w.Quote.Total,
		Status:     domain.StatusPending,
		GuestInfo:  info,
		GuestNames: names,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.d.Bookings.CreatePending(ctx, b); err != nil {
		if errors.Is(err, domain.ErrAvailabilityConflict) {
			if held, gerr := c.d.Bookings.GetBooking(ctx, b.ID); gerr == nil {
				return c.resume(w, held, now)
			}
			observability.ObserveBooking("conflict")
			w.Message = "Property is not available for selected dates"
			w.Quote = nil
			w.moveTo(CollectingDates, now)
			return domain.Booking{}, domain.ErrAvailabilityConflict
		}
		return domain.Booking{}, storeErr("create booking", err)
	}
	observability.ObserveBooking("created")
	log.Info().Str("booking_id", b.ID).Str("property_id", b.PropertyID).Int("nights", b.Nights()).Msg("pending booking created")

	c.d.Notifier.BookingCreated(BookingEmail{
		BookingID:     b.ID,
		PropertyTitle: w.Property.Title,
		CheckIn:       b.CheckIn,
		CheckOut:      b.CheckOut,
		Nights:        b.Nights(),
		Total:         b.TotalPrice,
		GuestName:     info.Name,
		To:            info.Email,
	})

	w.BookingID, w.HeldAt = b.ID, b.CreatedAt
	w.Message = ""
	w.moveTo(AwaitingPayment, now)
	return b, nil
}

// heldBookingID is stable for one reservation attempt of a draft, so a repeated
// submit of the same step finds the booking the first one created.
func heldBookingID(w *BookingWorkflow) string {
	key := fmt.Sprintf("%s|%d|%s|%s", w.ID, w.Attempt,
		w.CheckIn.Format(domain.DayLayout), w.CheckOut.Format(domain.DayLayout))
	return uuid.NewSHA1(bookingSpace, []byte(key)).String()
}

// resume handles a repeated submit that found this draft's own booking.
func (c *CheckoutService) resume(w *BookingWorkflow, held domain.Booking, now time.Time) (domain.Booking, error) {
	switch held.Status {
	case domain.StatusPending:
	case domain.StatusConfirmed, domain.StatusCompleted:
		w.BookingID, w.HeldAt, w.Message = held.ID, held.CreatedAt, ""
		w.moveTo(Confirmed, now)
		return held, nil
	default:
		// the earlier reservation was released; the next one needs a new id
		w.Attempt++
		w.Quote = nil
		w.Message = "Your reservation expired, please confirm your dates again"
		w.moveTo(CollectingDates, now)
		return domain.Booking{}, fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidTransition, held.ID, held.Status)
	}
	log.Info().Str("booking_id", held.ID).Str("checkout_id", w.ID).Msg("repeated guest info submit")
	w.GuestInfo, w.GuestNames = held.GuestInfo, held.GuestNames
	w.BookingID, w.HeldAt, w.Message = held.ID, held.CreatedAt, ""
	w.moveTo(AwaitingPayment, now)
	return held, nil
}

func guestNames(names []string, guests int) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) != guests {
		return nil, domain.Invalid("guestNames", fmt.Sprintf("expected %d guest names, got %d", guests, len(names)))
	}
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return nil, domain.Invalid(fmt.Sprintf("guestNames[%d]", i), "guest name is required")
		}
		out[i] = n
	}
	return out, nil
}

// StartPayment opens a hosted checkout for the pending booking. A provider failure
// fails the draft and leaves the booking pending; calling it again from Failed retries.
// The hosted page closes when the reservation would be swept.
func (c *CheckoutService) StartPayment(ctx context.Context, w *BookingWorkflow) (domain.CheckoutSession, error) {
	if err := w.expect(AwaitingPayment, Failed); err != nil {
		return domain.CheckoutSession{}, err
	}
	if w.BookingID == "" {
		return domain.CheckoutSession{}, fmt.Errorf("%w: checkout has no booking", domain.ErrInvalidTransition)
	}
	now := c.now().UTC()
	if w.Checkout != nil {
		w.moveTo(AwaitingPayment, now)
		return *w.Checkout, nil
	}
	heldAt := w.HeldAt
	if heldAt.IsZero() {
		heldAt = now
	}
	expires := heldAt.Add(c.d.PendingTTL)
	if expires.Sub(now) < minPaymentWindow {
		w.Fail("Your reservation is about to expire, please choose your dates again", now)
		return domain.CheckoutSession{}, fmt.Errorf("%w: reservation expires at %s", domain.ErrPayment, expires.Format(time.RFC3339))
	}
	q := w.Quote
	req := domain.CheckoutRequest{
		LineItems: []domain.LineItem{
			{
				Name:        fmt.Sprintf("%s (%d nights)", w.Property.Title, q.Nights),
				Description: fmt.Sprintf("%s to %s", w.CheckIn.Format(domain.DayLayout), w.CheckOut.Format(domain.DayLayout)),
				UnitAmount:  q.Subtotal * 100,
				Quantity:    1,
			},
			{
				Name:        "Service fee",
				Description: fmt.Sprintf("%d%% service fee", domain.ServiceFeePercent),
				UnitAmount:  q.ServiceFee * 100,
				Quantity:    1,
			},
		},
		SuccessURL:    fmt.Sprintf("%s/booking/confirmation?id=%s&session_id={CHECKOUT_SESSION_ID}", c.d.AppURL, w.BookingID),
		CancelURL:     fmt.Sprintf("%s/property/%s?canceled=true", c.d.AppURL, w.Property.ID),
		CustomerEmail: w.GuestInfo.Email,
		Metadata: map[string]string{
			"bookingId":  w.BookingID,
			"propertyId": w.Property.ID,
			"userId":     w.Session.BookingUserID(),
		},
		ExpiresAt:      expires,
		IdempotencyKey: fmt.Sprintf("checkout-%s-%d", w.BookingID, w.Retries),
	}
	cs, err := c.d.Payments.CreateCheckoutSession(ctx, req)
	if err != nil {
		observability.ObserveBooking("payment_failed")
		log.Error().Str("booking_id", w.BookingID).Err(err).Msg("create checkout session failed")
		w.Retries++
		w.Fail("Payment could not be started, please try again", now)
		return domain.CheckoutSession{}, fmt.Errorf("%w: %v", domain.ErrPayment, err)
	}
	w.Checkout = &cs
	w.Message = ""
	w.moveTo(AwaitingPayment, now)
	return cs, nil
}

// ConfirmPayment finishes the draft once the provider reports the session paid.
func (c *CheckoutService) ConfirmPayment(ctx context.Context, w *BookingWorkflow, sessionID string) (domain.Booking, error) {
	if err := w.expect(AwaitingPayment, Failed); err != nil {
		return domain.Booking{}, err
	}
	if w.BookingID == "" {
		return domain.Booking{}, fmt.Errorf("%w: checkout has no booking", domain.ErrInvalidTransition)
	}
	b, err := c.d.BookingSvc.ConfirmPayment(ctx, w.BookingID, sessionID)
	if err != nil {
		return domain.Booking{}, err
	}
	w.Message = ""
	w.moveTo(Confirmed, c.now().UTC())
	return b, nil
}

// Back returns the draft to date selection. A pending booking the draft holds is
// cancelled so its nights are free again; retrying payment instead keeps it.
func (c *CheckoutService) Back(ctx context.Context, w *BookingWorkflow) error {
	held, err := w.Back(c.now().UTC())
	if err != nil {
		return err
	}
	if held != "" {
		return c.d.BookingSvc.release(ctx, held)
	}
	return nil
}

func (c *CheckoutService) Cancel(ctx context.Context, w *BookingWorkflow) error {
	held, err := w.Cancel(c.now().UTC())
	if err != nil {
		return err
	}
	if held != "" {
		return c.d.BookingSvc.release(ctx, held)
	}
	return nil
}
