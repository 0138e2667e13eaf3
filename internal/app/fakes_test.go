package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"stayhub/internal/domain"
)

// ---- fakes ----

type fakeProperties struct {
	mu    sync.Mutex
	items map[string]domain.Property
	gets  int
}

func newFakeProperties(ps ...domain.Property) *fakeProperties {
	f := &fakeProperties{items: map[string]domain.Property{}}
	for _, p := range ps {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProperties) CreateProperty(ctx context.Context, p domain.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[p.ID] = p
	return nil
}
func (f *fakeProperties) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	p, ok := f.items[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}
func (f *fakeProperties) UpdateProperty(ctx context.Context, p domain.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[p.ID]; !ok {
		return domain.ErrNotFound
	}
	f.items[p.ID] = p
	return nil
}
func (f *fakeProperties) DeleteProperty(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}
func (f *fakeProperties) ListProperties(ctx context.Context, q domain.PropertyQuery) ([]domain.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Property
	for _, p := range f.items {
		if q.OwnerID != "" && p.OwnerID != q.OwnerID {
			continue
		}
		if q.OnlyAvailable && !p.IsAvailable {
			continue
		}
		if q.LocationPrefix != "" && !strings.HasPrefix(p.Location, q.LocationPrefix) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// fakeBookings holds one row per reserved night like the real store, so
// overlapping reservations fail atomically.
type fakeBookings struct {
	mu      sync.Mutex
	items   map[string]domain.Booking
	nights  map[string]string
	listErr error
	calls   int
}

func newFakeBookings(bs ...domain.Booking) *fakeBookings {
	f := &fakeBookings{items: map[string]domain.Booking{}, nights: map[string]string{}}
	for _, b := range bs {
		if err := f.CreatePending(context.Background(), b); err != nil {
			panic(err)
		}
	}
	return f
}

func nightKey(propertyID string, night time.Time) string {
	return propertyID + "|" + night.Format(domain.DayLayout)
}

func (f *fakeBookings) CreatePending(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.items[b.ID]; taken {
		return domain.ErrAvailabilityConflict
	}
	if b.Status.Active() {
		for _, n := range domain.NightsOf(b.CheckIn, b.CheckOut) {
			if _, taken := f.nights[nightKey(b.PropertyID, n)]; taken {
				return domain.ErrAvailabilityConflict
			}
		}
		for _, n := range domain.NightsOf(b.CheckIn, b.CheckOut) {
			f.nights[nightKey(b.PropertyID, n)] = b.ID
		}
	}
	f.items[b.ID] = b
	return nil
}

func (f *fakeBookings) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookings) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, p *domain.PaymentInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !from.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	b, ok := f.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from {
		return fmt.Errorf("%w: booking is %s", domain.ErrInvalidTransition, b.Status)
	}
	b.Status = to
	if p != nil {
		b.Payment = p
	}
	f.items[id] = b
	if to == domain.StatusCancelled {
		for k, owner := range f.nights {
			if owner == id {
				delete(f.nights, k)
			}
		}
	}
	return nil
}

func (f *fakeBookings) DeleteBooking(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeBookings) ListActiveBookings(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Booking
	for _, b := range f.items {
		if b.PropertyID == propertyID && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) filter(keep func(domain.Booking) bool) []domain.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.items {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.After(out[j].CheckIn) })
	return out
}

func (f *fakeBookings) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return f.filter(func(b domain.Booking) bool { return b.UserID == userID }), nil
}
func (f *fakeBookings) ListBookingsByProperty(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	return f.filter(func(b domain.Booking) bool { return b.PropertyID == propertyID }), nil
}
func (f *fakeBookings) ListRecentBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	out := f.filter(func(domain.Booking) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
func (f *fakeBookings) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	out := f.filter(func(b domain.Booking) bool {
		return b.Status == domain.StatusPending && b.CreatedAt.Before(createdBefore)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeBookings) status(id string) domain.BookingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id].Status
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakeCache stores JSON like Redis does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

type fakePayments struct {
	mu        sync.Mutex
	createErr error
	requests  []domain.CheckoutRequest
	sessions  map[string]domain.PaymentStatus
}

func (p *fakePayments) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return domain.CheckoutSession{}, p.createErr
	}
	p.requests = append(p.requests, req)
	id := fmt.Sprintf("cs_test_%d", len(p.requests))
	return domain.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}
func (p *fakePayments) GetCheckoutSession(ctx context.Context, id string) (domain.PaymentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.sessions[id]
	if !ok {
		return domain.PaymentStatus{}, errors.New("no such checkout session")
	}
	return st, nil
}
func (p *fakePayments) ParseWebhook(payload []byte, sig string) (domain.PaymentEvent, error) {
	return domain.PaymentEvent{Type: domain.PaymentIgnored}, nil
}

func (p *fakePayments) paid(sessionID, bookingID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessions == nil {
		p.sessions = map[string]domain.PaymentStatus{}
	}
	p.sessions[sessionID] = domain.PaymentStatus{
		SessionID: sessionID, BookingID: bookingID, Paid: true, PaymentID: "pi_" + sessionID, Method: "card",
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []domain.EmailMessage
	err  error
}

func (s *fakeSender) Send(ctx context.Context, m domain.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *fakeSender) messages() []domain.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EmailMessage(nil), s.sent...)
}

type fakeFiles struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeFiles) DeleteFiles(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, keys...)
	return nil
}
func (f *fakeFiles) KeyFromURL(u string) string {
	const prefix = "https://utfs.io/f/"
	if !strings.HasPrefix(u, prefix) {
		return ""
	}
	return strings.TrimPrefix(u, prefix)
}

// ---- helpers ----

func day(s string) time.Time {
	t, err := time.Parse(domain.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// future returns a date n days after today so checkout rules accept it.
func future(n int) time.Time {
	return domain.Day(time.Now()).AddDate(0, 0, n)
}

func beachHouse() domain.Property {
	return domain.Property{
		ID:          "prop-1",
		OwnerID:     "host-1",
		Title:       "Beach House in Malibu",
		Location:    "Malibu, California",
		Price:       200,
		Guests:      2,
		IsAvailable: true,
		Images:      []string{"https://utfs.io/f/a1", "https://utfs.io/f/b2"},
	}
}

func confirmed(id, propertyID, in, out string) domain.Booking {
	return domain.Booking{
		ID:         id,
		PropertyID: propertyID,
		UserID:     "user-9",
		CheckIn:    day(in),
		CheckOut:   day(out),
		Guests:     1,
		Status:     domain.StatusConfirmed,
	}
}
