package app

import (
	"context"
	"strings"
	"time"

	"stayhub/internal/domain"
)

type UserService struct {
	repo domain.UserRepository
	now  func() time.Time
}

func NewUserService(r domain.UserRepository) *UserService {
	return &UserService{repo: r, now: time.Now}
}

// Save creates the caller's profile or updates it. Admin is never self-assigned.
func (s *UserService) Save(ctx context.Context, sess domain.Session, in domain.UserInput) (domain.User, error) {
	if !sess.Authenticated() {
		return domain.User{}, domain.ErrForbidden
	}
	if in.Email == "" {
		in.Email = sess.Email
	}
	if err := validateStruct(in); err != nil {
		return domain.User{}, err
	}
	now := s.now().UTC()
	u := domain.User{
		ID:          sess.UserID,
		Email:       strings.TrimSpace(in.Email),
		DisplayName: strings.TrimSpace(in.DisplayName),
		PhotoURL:    in.PhotoURL,
		Phone:       in.Phone,
		Role:        in.Role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.UpsertUser(ctx, u); err != nil {
		return domain.User{}, storeErr("save user", err)
	}
	return s.Get(ctx, u.ID)
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, storeErr("get user", err)
	}
	return u, nil
}
