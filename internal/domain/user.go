package domain

import "time"

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

type User struct {
	ID          string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UserInput struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"max=120"`
	PhotoURL    string `json:"photoURL" validate:"omitempty,url"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Role        Role   `json:"role" validate:"omitempty,oneof=guest host"`
}

// Session identifies the caller of an operation. The zero value is an anonymous guest.
type Session struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role,omitempty"`
}

func (s Session) Authenticated() bool { return s.UserID != "" }
func (s Session) IsAdmin() bool       { return s.Role == RoleAdmin }

// BookingUserID is the user reference stored on bookings made in this session.
func (s Session) BookingUserID() string {
	if s.UserID == "" {
		return GuestUserID
	}
	return s.UserID
}
