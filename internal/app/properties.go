package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stayhub/internal/domain"
)

const featuredLimit = 6

type PropertyService struct {
	repo     domain.PropertyRepository
	cache    domain.Cache
	files    domain.FileStore
	cacheTTL time.Duration
	now      func() time.Time
	newID    func() string
}

func NewPropertyService(r domain.PropertyRepository, c domain.Cache, f domain.FileStore, ttl time.Duration) *PropertyService {
	return &PropertyService{repo: r, cache: c, files: f, cacheTTL: ttl, now: time.Now, newID: uuid.NewString}
}

func propertyKey(id string) string { return fmt.Sprintf("property:%s", id) }

func (s *PropertyService) Get(ctx context.Context, id string) (domain.Property, error) {
	key := propertyKey(id)
	var p domain.Property
	if ok, _ := s.cache.Get(ctx, key, &p); ok {
		return p, nil
	}
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, storeErr("get property", err)
	}
	_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	return p, nil
}

type ListFilter struct {
	Query    string
	OwnerID  string
	Featured bool
	Limit    int
}

// List returns newest listings first. Featured lists available listings by rating.
func (s *PropertyService) List(ctx context.Context, f ListFilter) ([]domain.Property, error) {
	q := domain.PropertyQuery{
		OwnerID:        f.OwnerID,
		LocationPrefix: strings.TrimSpace(f.Query),
		Limit:          f.Limit,
	}
	if f.Featured {
		q.OnlyAvailable, q.ByRating = true, true
		if q.Limit <= 0 || q.Limit > featuredLimit {
			q.Limit = featuredLimit
		}
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	out, err := s.repo.ListProperties(ctx, q)
	if err != nil {
		return nil, storeErr("list properties", err)
	}
	return out, nil
}

// Create stores a new listing owned by the caller. Only hosts and admins list properties.
func (s *PropertyService) Create(ctx context.Context, sess domain.Session, in domain.PropertyInput) (domain.Property, error) {
	if !sess.Authenticated() || (sess.Role != domain.RoleHost && !sess.IsAdmin()) {
		return domain.Property{}, domain.ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return domain.Property{}, err
	}
	now := s.now().UTC()
	p := domain.Property{
		ID:          s.newID(),
		OwnerID:     sess.UserID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		Coordinates: domain.Coords{Lat: in.Lat, Lng: in.Lng},
		Price:       in.Price,
		Images:      nonNil(in.Images),
		Beds:        in.Beds,
		Baths:       in.Baths,
		Guests:      in.Guests,
		Amenities:   nonNil(in.Amenities),
		IsAvailable: in.IsAvailable == nil || *in.IsAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProperty(ctx, p); err != nil {
		return domain.Property{}, storeErr("create property", err)
	}
	log.Info().Str("property_id", p.ID).Str("owner_id", p.OwnerID).Msg("property created")
	return p, nil
}

// Update applies a patch for the owner. Images dropped from the listing are
// deleted from file storage on a best-effort basis.
func (s *PropertyService) Update(ctx context.Context, sess domain.Session, id string, patch domain.PropertyPatch) (domain.Property, error) {
	p, err := s.owned(ctx, sess, id)
	if err != nil {
		return domain.Property{}, err
	}
	if err := validateStruct(patch); err != nil {
		return domain.Property{}, err
	}
	oldImages := p.Images
	applyPatch(&p, patch)
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		return domain.Property{}, storeErr("update property", err)
	}
	_ = s.cache.Del(ctx, propertyKey(id))
	if patch.Images != nil {
		s.deleteImages(ctx, removed(oldImages, p.Images))
	}
	return p, nil
}

func (s *PropertyService) Delete(ctx context.Context, sess domain.Session, id string) error {
	p, err := s.owned(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProperty(ctx, id); err != nil {
		return storeErr("delete property", err)
	}
	_ = s.cache.Del(ctx, propertyKey(id))
	s.deleteImages(ctx, p.Images)
	log.Info().Str("property_id", id).Msg("property deleted")
	return nil
}

func (s *PropertyService) owned(ctx context.Context, sess domain.Session, id string) (domain.Property, error) {
	if !sess.Authenticated() {
		return domain.Property{}, domain.ErrForbidden
	}
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, storeErr("get property", err)
	}
	if p.OwnerID != sess.UserID && !sess.IsAdmin() {
		return domain.Property{}, domain.ErrForbidden
	}
	return p, nil
}

func (s *PropertyService) deleteImages(ctx context.Context, urls []string) {
	if s.files == nil || len(urls) == 0 {
		return
	}
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if k := s.files.KeyFromURL(u); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.files.DeleteFiles(ctx, keys...); err != nil {
		log.Warn().Strs("keys", keys).Err(err).Msg("image cleanup failed")
	}
}

func applyPatch(p *domain.Property, in domain.PropertyPatch) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		p.Location = strings.TrimSpace(*in.Location)
	}
	if in.Lat != nil {
		p.Coordinates.Lat = *in.Lat
	}
	if in.Lng != nil {
		p.Coordinates.Lng = *in.Lng
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Images != nil {
		p.Images = nonNil(*in.Images)
	}
	if in.Beds != nil {
		p.Beds = *in.Beds
	}
	if in.Baths != nil {
		p.Baths = *in.Baths
	}
	if in.Guests != nil {
		p.Guests = *in.Guests
	}
	if in.Amenities != nil {
		p.Amenities = nonNil(*in.Amenities)
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
}

// removed lists entries of before that are missing from after.
func removed(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, a := range after {
		keep[a] = struct{}{}
	}
	var out []string
	for _, b := range before {
		if _, ok := keep[b]; !ok {
			out = append(out, b)
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
