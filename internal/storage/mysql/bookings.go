package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"stayhub/internal/domain"
)

// CreatePending writes the booking and one booking_nights row per night in a
// single transaction. The (property_id, night) key turns a concurrent overlap
// into a duplicate-key error, which is reported as an availability conflict.
func (r *Repo) CreatePending(ctx context.Context, b domain.Booking) (err error) {
	nights := domain.NightsOf(b.CheckIn, b.CheckOut)
	if len(nights) == 0 {
		return domain.Invalid("checkOut", "check-out must be after check-in")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var guestNames any
	if len(b.GuestNames) > 0 {
		guestNames = valJSON(b.GuestNames)
	}
	if _, err = tx.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.PropertyID,
		b.UserID,
		domain.Day(b.CheckIn),
		domain.Day(b.CheckOut),
		b.Guests,
		b.TotalPrice,
		string(domain.StatusPending),
		b.GuestInfo.Name,
		b.GuestInfo.Email,
		valStr(b.GuestInfo.Phone),
		guestNames,
		b.CreatedAt,
		b.UpdatedAt,
	); err != nil {
		// the id is already taken; callers look it up to tell a repeat from a clash
		if isDuplicate(err) {
			err = domain.ErrAvailabilityConflict
		}
		return err
	}

	values := make([]string, 0, len(nights))
	args := make([]any, 0, len(nights)*3)
	for _, n := range nights {
		values = append(values, "(?,?,?)")
		args = append(args, b.PropertyID, n, b.ID)
	}
	if _, err = tx.ExecContext(ctx, insertNightsPrefix+strings.Join(values, ","), args...); err != nil {
		if isDuplicate(err) {
			err = domain.ErrAvailabilityConflict
		}
		return err
	}
	return tx.Commit()
}

func (r *Repo) TransitionStatus(ctx context.Context, id string, from, to domain.BookingStatus, payment *domain.PaymentInfo) (err error) {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var pid, pmethod, pstatus any
	if payment != nil {
		pid, pmethod, pstatus = valStr(payment.PaymentID), valStr(payment.PaymentMethod), valStr(payment.PaymentStatus)
	}
	res, err := tx.ExecContext(ctx, transitionBookingSQL, string(to), pid, pmethod, pstatus, id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		switch qerr := tx.QueryRowContext(ctx, bookingExistsSQL, id).Scan(&current); {
		case qerr == sql.ErrNoRows:
			err = domain.ErrNotFound
		case qerr != nil:
			err = qerr
		default:
			err = fmt.Errorf("%w: booking is %s, not %s", domain.ErrInvalidTransition, current, from)
		}
		return err
	}
	// completed stays keep their nights; only a cancellation frees them
	if to == domain.StatusCancelled {
		if _, err = tx.ExecContext(ctx, releaseNightsSQL, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) DeleteBooking(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, releaseNightsSQL, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, deleteBookingSQL, id)
	if err != nil {
		return err
	}
	if err = requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

func (r *Repo) ListActiveBookings(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	return r.queryBookings(ctx, activeBookingsSQL, propertyID)
}

func (r *Repo) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	return r.queryBookings(ctx, bookingsByUserSQL, userID)
}

func (r *Repo) ListBookingsByProperty(ctx context.Context, propertyID string) ([]domain.Booking, error) {
	return r.queryBookings(ctx, bookingsByPropertySQL, propertyID)
}

func (r *Repo) ListRecentBookings(ctx context.Context, limit int) ([]domain.Booking, error) {
	return r.queryBookings(ctx, recentBookingsSQL, limit)
}

func (r *Repo) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	return r.queryBookings(ctx, stalePendingSQL, createdBefore, limit)
}

func (r *Repo) queryBookings(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(s scanner) (domain.Booking, error) {
	var (
		b                   domain.Booking
		status              string
		phone               sql.NullString
		guestNames          []byte
		pid, pmeth, pstatus sql.NullString
	)
	if err := s.Scan(
		&b.ID,
		&b.PropertyID,
		&b.UserID,
		&b.CheckIn,
		&b.CheckOut,
		&b.Guests,
		&b.TotalPrice,
		&status,
		&b.GuestInfo.Name,
		&b.GuestInfo.Email,
		&phone,
		&guestNames,
		&pid,
		&pmeth,
		&pstatus,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.CheckIn = domain.Day(b.CheckIn)
	b.CheckOut = domain.Day(b.CheckOut)
	b.GuestInfo.Phone = phone.String
	if len(guestNames) > 0 {
		if err := json.Unmarshal(guestNames, &b.GuestNames); err != nil {
			return domain.Booking{}, fmt.Errorf("booking %s guest_names: %w", b.ID, err)
		}
	}
	if pid.Valid {
		b.Payment = &domain.PaymentInfo{
			PaymentID:     pid.String,
			PaymentMethod: pmeth.String,
			PaymentStatus: pstatus.String,
		}
	}
	return b, nil
}
