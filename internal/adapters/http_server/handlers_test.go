package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	httpserver "stayhub/internal/adapters/http_server"
	redisad "stayhub/internal/adapters/redis"
	"stayhub/internal/app"
	"stayhub/internal/domain"
)

// ---- fakes ----

// memRepo keeps properties, bookings and users in memory. Nights are reserved
// per property like the MySQL store.
type memRepo struct {
	mu       sync.Mutex
	props    map[string]domain.Property
	bookings map[string]domain.Booking
	nights   map[string]string
	users    map[string]domain.User
	listErr  error
}

func newMemRepo() *memRepo {
	return &memRepo{
		props:    map[string]domain.Property{},
		bookings: map[string]domain.Booking{},
		nights:   map[string]string{},
		users:    map[string]domain.User{},
	}
}

func (m *memRepo) CreateProperty(ctx context.Context, p domain.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props[p.ID] = p
	return nil
}
func (m *memRepo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}
func (m *memRepo) UpdateProperty(ctx context.Context, p domain.Property) error {
	return m.CreateProperty(ctx, p)
}
func (m *memRepo) DeleteProperty(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.props, id)
	return nil
}
func (m *memRepo) ListProperties(ctx context.Context, q domain.PropertyQuery) ([]domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Property
	for _, p := range m.props {
		if q.OwnerID == "" || q.OwnerID == p.OwnerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) CreatePending(ctx context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.bookings[b.ID]; taken {
		return domain.ErrAvailabilityConflict
	}
	nights := domain.NightsOf(b.CheckIn, b.CheckOut)
	for _, n := range nights {
		if _, taken := m.nights[b.PropertyID+n.Format(domain.DayLayout)]; taken {
			return domain.ErrAvailabilityConflict
		}
	}
	for _, n := range nights {
		m.nights[b.PropertyID+n.Format(domain.DayLayout)] = b.ID
	}
	m.bookings[b.ID] = b
	return nil
}
func (m *memRepo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}
func (m *memRepo) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, p *domain.PaymentInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status != from || !from.CanTransition(to) {
		return domain.ErrInvalidTransition
	}
	b.Status, b.Payment = to, p
	m.bookings[id] = b
	if to == domain.StatusCancelled {
		for k, v := range m.nights {
			if v == id {
				delete(m.nights, k)
			}
		}
	}
	return nil
}
func (m *memRepo) DeleteBooking(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, id)
	return nil
}
func (m *memRepo) ListActiveBookings(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.where(func(b domain.Booking) bool { return b.PropertyID == propertyID && b.Status.Active() }), nil
}
func (m *memRepo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return m.where(func(b domain.Booking) bool { return b.UserID == userID }), nil
}
func (m *memRepo) ListBookingsByProperty(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	return m.where(func(b domain.Booking) bool { return b.PropertyID == propertyID }), nil
}
func (m *memRepo) ListRecentBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	return m.where(func(domain.Booking) bool { return true }), nil
}
func (m *memRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	return nil, nil
}
func (m *memRepo) where(keep func(domain.Booking) bool) []domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

func (m *memRepo) UpsertUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.Role == "" {
		u.Role = domain.RoleGuest
	}
	m.users[u.ID] = u
	return nil
}
func (m *memRepo) GetUser(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

type fakePay struct {
	mu       sync.Mutex
	fail     bool
	sessions map[string]string // session id -> booking id
}

func (p *fakePay) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return domain.CheckoutSession{}, errors.New("stripe down")
	}
	id := "cs_" + req.Metadata["bookingId"]
	p.sessions[id] = req.Metadata["bookingId"]
	return domain.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}
func (p *fakePay) GetCheckoutSession(ctx context.Context, id string) (domain.PaymentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.sessions[id]
	if !ok {
		return domain.PaymentStatus{}, errors.New("no such session")
	}
	return domain.PaymentStatus{SessionID: id, BookingID: b, Paid: true, PaymentID: "pi_1", Method: "card"}, nil
}

// ParseWebhook treats the payload as a session id and "valid" as the only good signature.
func (p *fakePay) ParseWebhook(payload []byte, sig string) (domain.PaymentEvent, error) {
	if sig != "valid" {
		return domain.PaymentEvent{}, errors.New("bad signature")
	}
	st, err := p.GetCheckoutSession(context.Background(), string(payload))
	if err != nil {
		return domain.PaymentEvent{Type: domain.PaymentIgnored}, nil
	}
	return domain.PaymentEvent{Type: domain.PaymentSucceeded, Status: st}, nil
}

type fakeFiles struct{ deleted []string }

func (f *fakeFiles) DeleteFiles(ctx context.Context, keys ...string) error {
	f.deleted = append(f.deleted, keys...)
	return nil
}
func (f *fakeFiles) KeyFromURL(u string) string { return "" }

// ---- harness ----

type env struct {
	ts    *httptest.Server
	repo  *memRepo
	pay   *fakePay
	files *fakeFiles
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	e := &env{repo: newMemRepo(), pay: &fakePay{sessions: map[string]string{}}, files: &fakeFiles{}}
	e.repo.props["prop-1"] = domain.Property{
		ID: "prop-1", OwnerID: "host-1", Title: "Beach House", Location: "Malibu", Price: 200, Guests: 2, IsAvailable: true,
	}

	avail := app.NewAvailabilityChecker(e.repo)
	bookings := app.NewBookingService(e.repo, e.repo, e.pay)
	h := &httpserver.Handlers{
		Properties:   app.NewPropertyService(e.repo, cache, e.files, time.Minute),
		Availability: avail,
		Bookings:     bookings,
		Checkout: app.NewCheckoutService(app.CheckoutDeps{
			Properties:   e.repo,
			Bookings:     e.repo,
			Availability: avail,
			BookingSvc:   bookings,
			Payments:     e.pay,
			Drafts:       cache,
			AppURL:       "https://stayhub.test",
			DraftTTL:     time.Hour,
		}),
		Users:    app.NewUserService(e.repo),
		Files:    e.files,
		Payments: e.pay,
	}
	srv := httpserver.New()
	srv.MountHandlers(h)
	e.ts = httptest.NewServer(srv.Mux())
	t.Cleanup(e.ts.Close)
	return e
}

type call struct {
	method, path string
	body         any
	user, role   string
	header       map[string]string
}

func (e *env) do(t *testing.T, c call) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	switch b := c.body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(c.method, e.ts.URL+c.path, rd)
	if c.user != "" {
		req.Header.Set("X-User-ID", c.user)
		req.Header.Set("X-User-Email", c.user+"@example.com")
		req.Header.Set("X-User-Role", c.role)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer res.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res, out
}

func futureDay(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format(domain.DayLayout)
}

// ---- tests ----

func TestGetProperty_ETagAndNotFound(t *testing.T) {
	e := newEnv(t)

	res, body := e.do(t, call{method: "GET", path: "/v1/properties/prop-1"})
	if res.StatusCode != 200 || body["title"] != "Beach House" {
		t.Fatalf("status %d body %v", res.StatusCode, body)
	}
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	res, _ = e.do(t, call{method: "GET", path: "/v1/properties/prop-1", header: map[string]string{"If-None-Match": etag}})
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("want 304, got %d", res.StatusCode)
	}

	res, body = e.do(t, call{method: "GET", path: "/v1/properties/nope"})
	if res.StatusCode != 404 || res.Header.Get("Content-Type") != "application/problem+json" || body["title"] != "Not Found" {
		t.Fatalf("status %d ct %s body %v", res.StatusCode, res.Header.Get("Content-Type"), body)
	}
}

func TestCreateProperty_RolesAndValidation(t *testing.T) {
	e := newEnv(t)
	in := map[string]any{
		"title": "Villa in Santorini", "description": "Sea views", "location": "Santorini, Greece",
		"lat": 36.39, "lng": 25.46, "price": 320, "guests": 6, "beds": 3, "baths": 2,
	}

	res, _ := e.do(t, call{method: "POST", path: "/v1/properties", body: in, user: "u1", role: "guest"})
	if res.StatusCode != 403 {
		t.Fatalf("guest create: want 403, got %d", res.StatusCode)
	}
	res, _ = e.do(t, call{method: "POST", path: "/v1/properties", body: in})
	if res.StatusCode != 403 {
		t.Fatalf("anonymous create: want 403, got %d", res.StatusCode)
	}

	bad := map[string]any{"title": "Vi", "description": "x", "location": "x", "price": 0, "guests": 1}
	res, body := e.do(t, call{method: "POST", path: "/v1/properties", body: bad, user: "h2", role: "host"})
	if res.StatusCode != 422 {
		t.Fatalf("invalid create: want 422, got %d", res.StatusCode)
	}
	if errs, _ := body["errors"].([]any); len(errs) != 2 {
		t.Fatalf("field errors = %v", body["errors"])
	}

	res, body = e.do(t, call{method: "POST", path: "/v1/properties", body: `{"title":"x","bogus":1}`, user: "h2", role: "host"})
	if res.StatusCode != 400 {
		t.Fatalf("unknown field: want 400, got %d %v", res.StatusCode, body)
	}

	res, body = e.do(t, call{method: "POST", path: "/v1/properties", body: in, user: "h2", role: "host"})
	if res.StatusCode != 201 || body["ownerId"] != "h2" || !strings.HasPrefix(res.Header.Get("Location"), "/v1/properties/") {
		t.Fatalf("create: %d %v", res.StatusCode, body)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	e := newEnv(t)
	_ = e.repo.CreatePending(context.Background(), domain.Booking{
		ID: "b0", PropertyID: "prop-1", UserID: "u9", Status: domain.StatusConfirmed,
		CheckIn: time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), CheckOut: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
	})

	cases := map[string]bool{
		"checkIn=2024-07-12&checkOut=2024-07-18": false,
		"checkIn=2024-07-15&checkOut=2024-07-20": true,
		"checkIn=2024-07-01&checkOut=2024-07-10": true,
	}
	for q, want := range cases {
		res, body := e.do(t, call{method: "GET", path: "/v1/properties/prop-1/availability?" + q})
		if res.StatusCode != 200 || body["available"] != want {
			t.Fatalf("%s: %d %v", q, res.StatusCode, body)
		}
	}

	res, _ := e.do(t, call{method: "GET", path: "/v1/properties/prop-1/availability?checkIn=July&checkOut=2024-07-20"})
	if res.StatusCode != 400 {
		t.Fatalf("bad date: want 400, got %d", res.StatusCode)
	}

	e.repo.listErr = errors.New("dial tcp: connection refused")
	res, body := e.do(t, call{method: "GET", path: "/v1/properties/prop-1/availability?checkIn=2024-08-01&checkOut=2024-08-03"})
	if res.StatusCode != 503 || body["detail"] != domain.ErrTransientIO.Error() {
		t.Fatalf("store down: %d %v", res.StatusCode, body)
	}
}

func TestCheckoutFlow_ThroughWebhook(t *testing.T) {
	e := newEnv(t)
	in, out := futureDay(10), futureDay(15)

	// over capacity is a validation error and still yields a draft to continue from
	res, body := e.do(t, call{method: "POST", path: "/v1/checkout", body: map[string]any{
		"propertyId": "prop-1", "checkIn": in, "checkOut": out, "guests": 3,
	}})
	if res.StatusCode != 422 || body["draftId"] == "" || body["draftId"] == nil {
		t.Fatalf("over capacity: %d %v", res.StatusCode, body)
	}
	draft := body["draftId"].(string)

	res, body = e.do(t, call{method: "POST", path: "/v1/checkout/" + draft + "/dates", body: map[string]any{
		"checkIn": in, "checkOut": out, "guests": 2,
	}})
	if res.StatusCode != 200 {
		t.Fatalf("dates: %d %v", res.StatusCode, body)
	}
	co := body["checkout"].(map[string]any)
	quote := co["quote"].(map[string]any)
	if co["state"] != string(app.CollectingGuestInfo) || quote["total"] != float64(1120) {
		t.Fatalf("checkout = %v", co)
	}

	res, body = e.do(t, call{method: "POST", path: "/v1/checkout/" + draft + "/guests", body: map[string]any{"delta": 1}})
	if res.StatusCode != 200 || body["checkout"].(map[string]any)["guests"] != float64(2) {
		t.Fatalf("clamped increment: %d %v", res.StatusCode, body)
	}

	res, body = e.do(t, call{method: "POST", path: "/v1/checkout/" + draft + "/guest-info", body: map[string]any{
		"name": "Ana Lima", "email": "ana@example.com",
	}})
	if res.StatusCode != 200 {
		t.Fatalf("guest info: %d %v", res.StatusCode, body)
	}
	booking := body["booking"].(map[string]any)
	payment := body["payment"].(map[string]any)
	bookingID := booking["id"].(string)
	if booking["status"] != "pending" || payment["url"] == "" {
		t.Fatalf("booking %v payment %v", booking, payment)
	}

	// a second guest for overlapping nights is turned away
	res, body = e.do(t, call{method: "POST", path: "/v1/checkout", body: map[string]any{
		"propertyId": "prop-1", "checkIn": futureDay(12), "checkOut": futureDay(13), "guests": 1,
	}})
	if res.StatusCode != 409 || body["detail"] != "not available for selected dates" {
		t.Fatalf("overlap: %d %v", res.StatusCode, body)
	}

	res, _ = e.do(t, call{method: "POST", path: "/v1/payments/stripe/webhook", body: payment["sessionId"], header: map[string]string{"Stripe-Signature": "forged"}})
	if res.StatusCode != 400 {
		t.Fatalf("forged webhook: want 400, got %d", res.StatusCode)
	}
	res, _ = e.do(t, call{method: "POST", path: "/v1/payments/stripe/webhook", body: payment["sessionId"], header: map[string]string{"Stripe-Signature": "valid"}})
	if res.StatusCode != 200 {
		t.Fatalf("webhook: %d", res.StatusCode)
	}

	res, body = e.do(t, call{method: "GET", path: "/v1/bookings/" + bookingID + "/confirmation?session_id=" + payment["sessionId"].(string)})
	if res.StatusCode != 200 || body["status"] != "confirmed" {
		t.Fatalf("confirmation: %d %v", res.StatusCode, body)
	}
}

func TestCheckout_PaymentFailureIs502AndKeepsBooking(t *testing.T) {
	e := newEnv(t)
	e.pay.fail = true

	res, body := e.do(t, call{method: "POST", path: "/v1/checkout", body: map[string]any{
		"propertyId": "prop-1", "checkIn": futureDay(3), "checkOut": futureDay(4), "guests": 1,
	}})
	if res.StatusCode != 201 {
		t.Fatalf("start: %d %v", res.StatusCode, body)
	}
	draft := body["checkout"].(map[string]any)["id"].(string)

	res, body = e.do(t, call{method: "POST", path: "/v1/checkout/" + draft + "/guest-info", body: map[string]any{
		"name": "Ana Lima", "email": "ana@example.com",
	}})
	if res.StatusCode != 502 || body["draftId"] != draft {
		t.Fatalf("payment failure: %d %v", res.StatusCode, body)
	}
	bs := e.repo.where(func(domain.Booking) bool { return true })
	if len(bs) != 1 || bs[0].Status != domain.StatusPending {
		t.Fatalf("bookings = %+v", bs)
	}

	res, body = e.do(t, call{method: "GET", path: "/v1/checkout/" + draft})
	if res.StatusCode != 200 || body["checkout"].(map[string]any)["state"] != string(app.Failed) {
		t.Fatalf("draft after failure: %d %v", res.StatusCode, body)
	}

	e.pay.mu.Lock()
	e.pay.fail = false
	e.pay.mu.Unlock()
	res, body = e.do(t, call{method: "POST", path: "/v1/checkout/" + draft + "/payment"})
	if res.StatusCode != 200 {
		t.Fatalf("retry payment: %d %v", res.StatusCode, body)
	}
	if pay, _ := body["payment"].(map[string]any); pay["sessionId"] != "cs_"+bs[0].ID {
		t.Fatalf("retry payment body: %v", body)
	}
	if body["checkout"].(map[string]any)["state"] != string(app.AwaitingPayment) {
		t.Fatalf("state after retry: %v", body)
	}
	if n := len(e.repo.where(func(domain.Booking) bool { return true })); n != 1 {
		t.Fatalf("retry created bookings: %d", n)
	}

	res, body = e.do(t, call{method: "POST", path: "/v1/checkout/" + draft + "/back"})
	if res.StatusCode != 200 || body["checkout"].(map[string]any)["state"] != string(app.CollectingDates) {
		t.Fatalf("back: %d %v", res.StatusCode, body)
	}
	if b, _ := e.repo.GetBooking(context.Background(), bs[0].ID); b.Status != domain.StatusCancelled {
		t.Fatalf("held booking = %s", b.Status)
	}
}

func TestSessionHeadersDriveAccess(t *testing.T) {
	e := newEnv(t)

	res, _ := e.do(t, call{method: "GET", path: "/v1/bookings/recent", user: "u1", role: "guest"})
	if res.StatusCode != 403 {
		t.Fatalf("recent as guest: want 403, got %d", res.StatusCode)
	}
	res, _ = e.do(t, call{method: "GET", path: "/v1/bookings/recent", user: "root", role: "ADMIN"})
	if res.StatusCode != 200 {
		t.Fatalf("recent as admin: want 200, got %d", res.StatusCode)
	}

	res, body := e.do(t, call{method: "PUT", path: "/v1/users/me", body: map[string]any{"displayName": "Ana"}, user: "u1"})
	if res.StatusCode != 200 || body["uid"] != "u1" || body["email"] != "u1@example.com" || body["role"] != "guest" {
		t.Fatalf("save me: %d %v", res.StatusCode, body)
	}
	res, _ = e.do(t, call{method: "GET", path: "/v1/users/u1", user: "u2"})
	if res.StatusCode != 403 {
		t.Fatalf("other profile: want 403, got %d", res.StatusCode)
	}
	res, _ = e.do(t, call{method: "GET", path: "/v1/users/me", user: "u1"})
	if res.StatusCode != 200 {
		t.Fatalf("own profile: want 200, got %d", res.StatusCode)
	}
}

func TestDeleteUpload(t *testing.T) {
	e := newEnv(t)

	res, _ := e.do(t, call{method: "POST", path: "/v1/uploads/delete", body: map[string]any{"fileKey": "abc"}})
	if res.StatusCode != 403 {
		t.Fatalf("anonymous: want 403, got %d", res.StatusCode)
	}
	res, _ = e.do(t, call{method: "POST", path: "/v1/uploads/delete", body: map[string]any{}, user: "h1", role: "host"})
	if res.StatusCode != 422 {
		t.Fatalf("no key: want 422, got %d", res.StatusCode)
	}
	res, _ = e.do(t, call{method: "POST", path: "/v1/uploads/delete", body: map[string]any{"fileKey": "abc"}, user: "h1", role: "host"})
	if res.StatusCode != 200 || len(e.files.deleted) != 1 || e.files.deleted[0] != "abc" {
		t.Fatalf("delete: %d %v", res.StatusCode, e.files.deleted)
	}
}
