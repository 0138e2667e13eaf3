package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	CreateProperty(ctx context.Context, p Property) error
	GetProperty(ctx context.Context, id string) (Property, error)
	UpdateProperty(ctx context.Context, p Property) error
	DeleteProperty(ctx context.Context, id string) error
	ListProperties(ctx context.Context, q PropertyQuery) ([]Property, error)
}

// ActiveBookingLister is all the availability check needs.
type ActiveBookingLister interface {
	// ListActiveBookings returns the property's bookings with status pending or confirmed.
	ListActiveBookings(ctx context.Context, propertyID string) ([]Booking, error)
}

type BookingRepository interface {
	ActiveBookingLister

	// CreatePending stores a pending booking and reserves each of its nights.
	// Returns ErrAvailabilityConflict when any night is already held.
	CreatePending(ctx context.Context, b Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// TransitionStatus moves a booking from one status to another in a single
	// conditional write. Cancelling releases the reserved nights.
	TransitionStatus(ctx context.Context, id string, from, to BookingStatus, payment *PaymentInfo) error
	DeleteBooking(ctx context.Context, id string) error
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	ListBookingsByProperty(ctx context.Context, propertyID string) ([]Booking, error)
	ListRecentBookings(ctx context.Context, limit int) ([]Booking, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]Booking, error)
}

type UserRepository interface {
	// UpsertUser creates the user (role defaults to guest) or updates profile fields.
	UpsertUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64 // cents
	Quantity    int64
}

type CheckoutRequest struct {
	LineItems      []LineItem
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	Metadata       map[string]string
	ExpiresAt      time.Time // zero keeps the provider default
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url,omitempty"`
}

type PaymentStatus struct {
	SessionID string
	BookingID string
	Paid      bool
	PaymentID string
	Method    string
}

type PaymentEventType string

const (
	PaymentSucceeded PaymentEventType = "succeeded"
	PaymentExpired   PaymentEventType = "expired"
	PaymentIgnored   PaymentEventType = "ignored"
)

type PaymentEvent struct {
	Type   PaymentEventType
	Status PaymentStatus
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (PaymentStatus, error)
	ParseWebhook(payload []byte, signature string) (PaymentEvent, error)
}

type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type EmailSender interface {
	Send(ctx context.Context, m EmailMessage) error
}

type FileStore interface {
	DeleteFiles(ctx context.Context, keys ...string) error
	// KeyFromURL maps a public file URL back to the provider key, "" if foreign.
	KeyFromURL(url string) string
}
