package app_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"stayhub/internal/app"
	"stayhub/internal/domain"
)

type fakeUsers struct{ saved []domain.User }

func (f *fakeUsers) UpsertUser(ctx context.Context, u domain.User) error {
	f.saved = append(f.saved, u)
	return nil
}
func (f *fakeUsers) GetUser(ctx context.Context, id string) (domain.User, error) {
	for _, u := range f.saved {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func TestMockProperty_IsPlausible(t *testing.T) {
	for i := 0; i < 20; i++ {
		p := app.MockProperty(rand.New(rand.NewPCG(uint64(i), 1)), "host-1", i, time.Now())
		if p.Price < 100 || p.Price >= 400 || p.Guests < 2 || p.Guests > 9 || p.Rating < 3.5 || p.Rating > 5 {
			t.Fatalf("implausible listing %d: %+v", i, p)
		}
		if p.Title == "" || p.Location == "" || len(p.Amenities) != 5 || !p.IsAvailable {
			t.Fatalf("incomplete listing %d: %+v", i, p)
		}
	}
}

func TestSeedProperty_CreatesListingAndConfirmedStay(t *testing.T) {
	props := newFakeProperties()
	bookings := newFakeBookings()
	users := &fakeUsers{}
	svc := app.NewSeedService(props, bookings, users)
	ctx := context.Background()

	if err := svc.SeedHost(ctx, domain.User{ID: "host-1", Email: "host@example.com"}); err != nil {
		t.Fatalf("seed host: %v", err)
	}
	if users.saved[0].Role != domain.RoleHost {
		t.Fatalf("seed host role = %s", users.saved[0].Role)
	}

	p, err := svc.SeedProperty(ctx, "host-1", 3)
	if err != nil {
		t.Fatalf("seed property: %v", err)
	}
	got, _ := bookings.ListBookingsByProperty(ctx, p.ID)
	if len(got) != 1 || got[0].Status != domain.StatusConfirmed {
		t.Fatalf("seed bookings = %+v", got)
	}
	if got[0].TotalPrice != domain.NewQuote(p.Price, got[0].Nights()).Total {
		t.Fatalf("seed price mismatch: %+v", got[0])
	}
}
