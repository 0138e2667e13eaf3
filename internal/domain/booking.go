package domain

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// GuestUserID marks a booking made without a signed-in user.
const GuestUserID = "guest"

// Active reports whether the booking holds its dates.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

var transitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

func (s BookingStatus) CanTransition(to BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

type GuestInfo struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email,max=255"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

type PaymentInfo struct {
	PaymentID     string `json:"paymentId"`
	PaymentMethod string `json:"paymentMethod"`
	PaymentStatus string `json:"paymentStatus"`
}

// Booking is a reservation of [CheckIn, CheckOut) at day granularity.
type Booking struct {
	ID         string        `json:"id"`
	PropertyID string        `json:"propertyId"`
	UserID     string        `json:"userId"`
	CheckIn    time.Time     `json:"checkIn"`
	CheckOut   time.Time     `json:"checkOut"`
	Guests     int           `json:"guests"`
	TotalPrice int64         `json:"totalPrice"`
	Status     BookingStatus `json:"status"`
	GuestInfo  GuestInfo     `json:"guestInfo"`
	GuestNames []string      `json:"guestNames,omitempty"`
	Payment    *PaymentInfo  `json:"paymentInfo,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

func (b Booking) Nights() int { return Nights(b.CheckIn, b.CheckOut) }
