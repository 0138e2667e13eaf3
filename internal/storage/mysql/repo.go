package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"stayhub/internal/domain"
)

const errDuplicateKey = 1062

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateKey
}

type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := r.db.ExecContext(ctx, insertPropertySQL,
		p.ID,
		p.OwnerID,
		p.Title,
		p.Description,
		p.Location,
		p.Coordinates.Lat,
		p.Coordinates.Lng,
		p.Price,
		valJSON(p.Images),
		p.Beds,
		p.Baths,
		p.Guests,
		valJSON(p.Amenities),
		p.IsAvailable,
		p.IsSuperhost,
		p.Rating,
		p.Reviews,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *Repo) UpdateProperty(ctx context.Context, p domain.Property) error {
	res, err := r.db.ExecContext(ctx, updatePropertySQL,
		p.Title,
		p.Description,
		p.Location,
		p.Coordinates.Lat,
		p.Coordinates.Lng,
		p.Price,
		valJSON(p.Images),
		p.Beds,
		p.Baths,
		p.Guests,
		valJSON(p.Amenities),
		p.IsAvailable,
		p.IsSuperhost,
		p.Rating,
		p.Reviews,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) DeleteProperty(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deletePropertySQL, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id))
	if err == sql.ErrNoRows {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListProperties(ctx context.Context, q domain.PropertyQuery) ([]domain.Property, error) {
	var (
		where []string
		args  []any
	)
	if q.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, q.OwnerID)
	}
	if q.LocationPrefix != "" {
		where = append(where, "location LIKE ?")
		args = append(args, escapeLike(q.LocationPrefix)+"%")
	}
	if q.OnlyAvailable {
		where = append(where, "is_available = 1")
	}

	var sb strings.Builder
	sb.WriteString("SELECT")
	sb.WriteString(propertyColumns)
	sb.WriteString("FROM properties")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if q.ByRating {
		sb.WriteString(" ORDER BY rating DESC, id")
	} else {
		sb.WriteString(" ORDER BY created_at DESC, id")
	}
	sb.WriteString(" LIMIT ?")
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProperty(s scanner) (domain.Property, error) {
	var p domain.Property
	var imagesJSON, amenitiesJSON []byte
	if err := s.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Title,
		&p.Description,
		&p.Location,
		&p.Coordinates.Lat,
		&p.Coordinates.Lng,
		&p.Price,
		&imagesJSON,
		&p.Beds,
		&p.Baths,
		&p.Guests,
		&amenitiesJSON,
		&p.IsAvailable,
		&p.IsSuperhost,
		&p.Rating,
		&p.Reviews,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return domain.Property{}, err
	}
	_ = json.Unmarshal(imagesJSON, &p.Images)
	_ = json.Unmarshal(amenitiesJSON, &p.Amenities)
	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
