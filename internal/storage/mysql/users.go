package mysql

import (
	"context"
	"database/sql"

	"stayhub/internal/domain"
)

func (r *Repo) UpsertUser(ctx context.Context, u domain.User) error {
	role := u.Role
	if role == "" {
		role = domain.RoleGuest
	}
	_, err := r.db.ExecContext(ctx, upsertUserSQL,
		u.ID,
		u.Email,
		u.DisplayName,
		valStr(u.PhotoURL),
		valStr(u.Phone),
		string(role),
	)
	return err
}

func (r *Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	var photo, phone sql.NullString
	var role string
	err := r.db.QueryRowContext(ctx, getUserSQL, id).Scan(
		&u.ID, &u.Email, &u.DisplayName, &photo, &phone, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	u.PhotoURL = photo.String
	u.Phone = phone.String
	u.Role = domain.Role(role)
	return u, nil
}
