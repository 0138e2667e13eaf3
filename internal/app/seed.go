package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"stayhub/internal/domain"
)

type seedLocation struct {
	name     string
	lat, lng float64
}

var seedLocations = []seedLocation{
	{"Malibu, California", 34.0259, -118.7798},
	{"Aspen, Colorado", 39.1911, -106.8175},
	{"Miami Beach, Florida", 25.7907, -80.13},
	{"Lake Tahoe, Nevada", 39.0968, -120.0324},
	{"Santorini, Greece", 36.3932, 25.4615},
}

var seedKinds = []string{"Beach House", "Mountain Cabin", "City Apartment", "Lakefront Cottage", "Villa"}

var seedAmenities = []string{"WiFi", "Kitchen", "Free Parking", "Air Conditioning", "Washer", "Pool", "Hot Tub", "Fireplace"}

// SeedService fills an empty database with demo listings and stays.
type SeedService struct {
	properties domain.PropertyRepository
	bookings   domain.BookingRepository
	users      domain.UserRepository
	now        func() time.Time
}

func NewSeedService(p domain.PropertyRepository, b domain.BookingRepository, u domain.UserRepository) *SeedService {
	return &SeedService{properties: p, bookings: b, users: u, now: time.Now}
}

func (s *SeedService) SeedHost(ctx context.Context, host domain.User) error {
	host.Role = domain.RoleHost
	return s.users.UpsertUser(ctx, host)
}

// SeedProperty creates demo listing i for the owner together with one confirmed stay.
func (s *SeedService) SeedProperty(ctx context.Context, ownerID string, i int) (domain.Property, error) {
	rnd := rand.New(rand.NewPCG(uint64(i), 0x5eed))
	p := MockProperty(rnd, ownerID, i, s.now().UTC())
	p.ID = uuid.NewString()
	if err := s.properties.CreateProperty(ctx, p); err != nil {
		return domain.Property{}, fmt.Errorf("seed property %d: %w", i, err)
	}

	checkIn := domain.Day(s.now()).AddDate(0, 0, 14+rnd.IntN(30))
	nights := 2 + rnd.IntN(5)
	b := domain.Booking{
		ID:         uuid.NewString(),
		PropertyID: p.ID,
		UserID:     ownerID,
		CheckIn:    checkIn,
		CheckOut:   checkIn.AddDate(0, 0, nights),
		Guests:     1 + rnd.IntN(p.Guests),
		TotalPrice: domain.NewQuote(p.Price, nights).Total,
		Status:     domain.StatusPending,
		GuestInfo:  domain.GuestInfo{Name: "Demo Guest", Email: "guest@example.com"},
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.CreatedAt,
	}
	if err := s.bookings.CreatePending(ctx, b); err != nil {
		return p, fmt.Errorf("seed booking for %s: %w", p.ID, err)
	}
	payment := &domain.PaymentInfo{PaymentID: "seed_" + b.ID[:8], PaymentMethod: "card", PaymentStatus: "paid"}
	if err := s.bookings.TransitionStatus(ctx, b.ID, domain.StatusPending, domain.StatusConfirmed, payment); err != nil {
		return p, fmt.Errorf("confirm seed booking %s: %w", b.ID, err)
	}
	return p, nil
}

// MockProperty builds a plausible listing from rnd. It does not assign an id.
func MockProperty(rnd *rand.Rand, ownerID string, i int, now time.Time) domain.Property {
	loc := seedLocations[i%len(seedLocations)]
	kind := seedKinds[i%len(seedKinds)]

	amenities := make([]string, 0, 5)
	for _, j := range rnd.Perm(len(seedAmenities))[:5] {
		amenities = append(amenities, seedAmenities[j])
	}
	return domain.Property{
		OwnerID: ownerID,
		Title:   fmt.Sprintf("%s in %s", kind, loc.name),
		Description: fmt.Sprintf("Experience this beautiful %s in %s. Perfect for families and groups, "+
			"with stunning views and everything you need for a comfortable stay.", kind, loc.name),
		Location:    loc.name,
		Coordinates: domain.Coords{Lat: loc.lat, Lng: loc.lng},
		Price:       int64(100 + rnd.IntN(300)),
		Images:      []string{},
		Beds:        1 + rnd.IntN(4),
		Baths:       1 + rnd.IntN(3),
		Guests:      2 + rnd.IntN(8),
		Amenities:   amenities,
		IsAvailable: true,
		IsSuperhost: rnd.IntN(2) == 0,
		Rating:      float64(35+rnd.IntN(16)) / 10,
		Reviews:     rnd.IntN(120),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
