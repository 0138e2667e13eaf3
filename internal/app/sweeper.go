package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"stayhub/internal/adapters/observability"
	"stayhub/internal/domain"
)

const sweepBatch = 100

// Sweeper cancels pending bookings whose payment never completed, freeing their nights.
type Sweeper struct {
	bookings domain.BookingRepository
	ttl      time.Duration
	now      func() time.Time
}

func NewSweeper(b domain.BookingRepository, pendingTTL time.Duration) *Sweeper {
	return &Sweeper{bookings: b, ttl: pendingTTL, now: time.Now}
}

// ExpireStalePending cancels pending bookings created more than the TTL ago
// and returns how many it expired.
func (s *Sweeper) ExpireStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.ttl)
	expired := 0
	for {
		stale, err := s.bookings.ListStalePending(ctx, cutoff, sweepBatch)
		if err != nil {
			return expired, domain.Transient("list stale bookings", err)
		}
		progressed := 0
		for _, b := range stale {
			err := s.bookings.TransitionStatus(ctx, b.ID, domain.StatusPending, domain.StatusCancelled, nil)
			switch {
			case err == nil:
				expired++
				progressed++
				observability.ObserveBooking("expired")
				log.Info().Str("booking_id", b.ID).Time("created_at", b.CreatedAt).Msg("stale pending booking expired")
			case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
				// paid or removed since listing
				progressed++
			default:
				return expired, domain.Transient("expire booking", err)
			}
			if ctx.Err() != nil {
				return expired, ctx.Err()
			}
		}
		if len(stale) < sweepBatch || progressed == 0 {
			return expired, nil
		}
	}
}

// Run is the cron entry point.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := s.ExpireStalePending(ctx)
	if err != nil {
		log.Error().Err(err).Int("expired", n).Msg("pending sweep failed")
		return
	}
	log.Debug().Int("expired", n).Msg("pending sweep done")
}
