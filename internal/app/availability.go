package app

import (
	"context"
	"time"

	"stayhub/internal/domain"
)

// AvailabilityChecker decides whether a stay fits around a property's active bookings.
// It is a read-only pre-check; the reservation write is what guarantees exclusivity.
type AvailabilityChecker struct {
	bookings domain.ActiveBookingLister
}

func NewAvailabilityChecker(b domain.ActiveBookingLister) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: b}
}

// IsAvailable reports whether [checkIn, checkOut) overlaps no pending or confirmed booking.
// A store failure is returned as ErrTransientIO and must be treated as "unavailable".
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, propertyID string, checkIn, checkOut time.Time) (bool, error) {
	in, out := domain.Day(checkIn), domain.Day(checkOut)
	if !in.Before(out) {
		return false, domain.Invalid("checkOut", "check-out must be after check-in")
	}
	existing, err := c.bookings.ListActiveBookings(ctx, propertyID)
	if err != nil {
		return false, domain.Transient("check availability", err)
	}
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if domain.Overlaps(b.CheckIn, b.CheckOut, in, out) {
			return false, nil
		}
	}
	return true, nil
}
