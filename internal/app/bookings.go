package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

type BookingService struct {
	bookings   domain.BookingRepository
	properties domain.PropertyRepository
	payments   domain.PaymentProvider
	now        func() time.Time
}

func NewBookingService(b domain.BookingRepository, p domain.PropertyRepository, pay domain.PaymentProvider) *BookingService {
	return &BookingService{bookings: b, properties: p, payments: pay, now: time.Now}
}

// Get returns a booking to its guest, the property owner or an admin.
// Bookings made without an account are readable by anyone holding the id.
func (s *BookingService) Get(ctx context.Context, sess domain.Session, id string) (domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, storeErr("get booking", err)
	}
	if b.UserID == domain.GuestUserID {
		return b, nil
	}
	if err := s.authorize(ctx, sess, b, true); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (s *BookingService) ListByUser(ctx context.Context, sess domain.Session, userID string) ([]domain.Booking, error) {
	if sess.UserID != userID && !sess.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	out, err := s.bookings.ListBookingsByUser(ctx, userID)
	return out, storeErr("list user bookings", err)
}

// ListByProperty loads the listing and its bookings together; only the owner or an admin sees them.
func (s *BookingService) ListByProperty(ctx context.Context, sess domain.Session, propertyID string) ([]domain.Booking, error) {
	var (
		p   domain.Property
		out []domain.Booking
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		p, err = s.properties.GetProperty(gctx, propertyID)
		return storeErr("get property", err)
	})
	g.Go(func() error {
		var err error
		out, err = s.bookings.ListBookingsByProperty(gctx, propertyID)
		return storeErr("list property bookings", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if p.OwnerID != sess.UserID && !sess.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return out, nil
}

func (s *BookingService) ListRecent(ctx context.Context, sess domain.Session, limit int) ([]domain.Booking, error) {
	if !sess.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	out, err := s.bookings.ListRecentBookings(ctx, limit)
	return out, storeErr("list recent bookings", err)
}

// Cancel releases a pending or confirmed booking. The guest, the property owner
// and admins may cancel.
func (s *BookingService) Cancel(ctx context.Context, sess domain.Session, id string) (domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, storeErr("get booking", err)
	}
	if err := s.authorize(ctx, sess, b, true); err != nil {
		return domain.Booking{}, err
	}
	return s.transition(ctx, b, domain.StatusCancelled, nil)
}

// Complete marks a confirmed stay as done. Only the host or an admin may do it.
func (s *BookingService) Complete(ctx context.Context, sess domain.Session, id string) (domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, storeErr("get booking", err)
	}
	if err := s.authorize(ctx, sess, b, false); err != nil {
		return domain.Booking{}, err
	}
	return s.transition(ctx, b, domain.StatusCompleted, nil)
}

func (s *BookingService) Delete(ctx context.Context, sess domain.Session, id string) error {
	if !sess.IsAdmin() {
		return domain.ErrForbidden
	}
	return storeErr("delete booking", s.bookings.DeleteBooking(ctx, id))
}

// ConfirmPayment checks the checkout session with the payment provider and
// confirms the booking it paid for. Confirming twice is a no-op.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID, sessionID string) (domain.Booking, error) {
	if sessionID == "" {
		return domain.Booking{}, domain.Invalid("session_id", "session_id is required")
	}
	st, err := s.payments.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("%w: %v", domain.ErrPayment, err)
	}
	if st.BookingID != bookingID {
		return domain.Booking{}, fmt.Errorf("%w: checkout session belongs to another booking", domain.ErrPayment)
	}
	if !st.Paid {
		return domain.Booking{}, fmt.Errorf("%w: payment not completed", domain.ErrPayment)
	}
	return s.confirm(ctx, st)
}

// HandlePaymentEvent applies a verified provider webhook.
func (s *BookingService) HandlePaymentEvent(ctx context.Context, ev domain.PaymentEvent) error {
	switch ev.Type {
	case domain.PaymentSucceeded:
		if ev.Status.BookingID == "" {
			log.Warn().Str("session_id", ev.Status.SessionID).Msg("paid checkout without booking id")
			return nil
		}
		_, err := s.confirm(ctx, ev.Status)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			log.Warn().Str("booking_id", ev.Status.BookingID).Msg("paid checkout for unknown booking")
			return nil
		case errors.Is(err, domain.ErrInvalidTransition):
			// expired before the payment landed; needs a manual refund
			log.Error().Str("booking_id", ev.Status.BookingID).Str("payment_id", ev.Status.PaymentID).Msg("payment received for released booking")
			return nil
		}
		return err
	case domain.PaymentExpired:
		// the pending booking stays until the sweeper expires it
		log.Info().Str("booking_id", ev.Status.BookingID).Str("session_id", ev.Status.SessionID).Msg("checkout expired")
		return nil
	default:
		return nil
	}
}

func (s *BookingService) confirm(ctx context.Context, st domain.PaymentStatus) (domain.Booking, error) {
	b, err := s.bookings.GetBooking(ctx, st.BookingID)
	if err != nil {
		return domain.Booking{}, storeErr("get booking", err)
	}
	if b.Status == domain.StatusConfirmed || b.Status == domain.StatusCompleted {
		return b, nil
	}
	payment := &domain.PaymentInfo{PaymentID: st.PaymentID, PaymentMethod: st.Method, PaymentStatus: "paid"}
	out, err := s.transition(ctx, b, domain.StatusConfirmed, payment)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// a concurrent confirmation may have won
		if cur, gerr := s.bookings.GetBooking(ctx, b.ID); gerr == nil && cur.Status == domain.StatusConfirmed {
			return cur, nil
		}
	}
	return out, err
}

// release cancels a pending booking a checkout draft no longer needs.
func (s *BookingService) release(ctx context.Context, id string) error {
	err := s.bookings.TransitionStatus(ctx, id, domain.StatusPending, domain.StatusCancelled, nil)
	switch {
	case err == nil:
		observability.ObserveBooking("cancelled")
		return nil
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		// already confirmed, cancelled or gone
		return nil
	default:
		return storeErr("release booking", err)
	}
}

func (s *BookingService) transition(ctx context.Context, b domain.Booking, to domain.BookingStatus, payment *domain.PaymentInfo) (domain.Booking, error) {
	if !b.Status.CanTransition(to) {
		return domain.Booking{}, fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, b.Status)
	}
	if err := s.bookings.TransitionStatus(ctx, b.ID, b.Status, to, payment); err != nil {
		return domain.Booking{}, storeErr("update booking", err)
	}
	observability.ObserveBooking(string(to))
	log.Info().Str("booking_id", b.ID).Str("from", string(b.Status)).Str("to", string(to)).Msg("booking status changed")

	b.Status = to
	if payment != nil {
		b.Payment = payment
	}
	b.UpdatedAt = s.now().UTC()
	return b, nil
}

// authorize lets admins and the property owner through, and the booking's
// guest when allowGuest is set.
func (s *BookingService) authorize(ctx context.Context, sess domain.Session, b domain.Booking, allowGuest bool) error {
	if !sess.Authenticated() {
		return domain.ErrForbidden
	}
	if sess.IsAdmin() || (allowGuest && b.UserID == sess.UserID) {
		return nil
	}
	p, err := s.properties.GetProperty(ctx, b.PropertyID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrForbidden
	}
	if err != nil {
		return storeErr("get property", err)
	}
	if p.OwnerID != sess.UserID {
		return domain.ErrForbidden
	}
	return nil
}
