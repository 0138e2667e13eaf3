package domain

import (
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

// Day truncates t to its calendar date in UTC. Time-of-day never matters for stays.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DayLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// Nights is the number of calendar days between check-in and check-out.
func Nights(checkIn, checkOut time.Time) int {
	return int(Day(checkOut).Sub(Day(checkIn)).Hours() / 24)
}

// Overlaps applies the half-open test on [aIn, aOut) and [bIn, bOut):
// a checkout on the same day as another check-in is not a conflict.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return Day(aIn).Before(Day(bOut)) && Day(aOut).After(Day(bIn))
}

// NightsOf lists every night covered by [checkIn, checkOut).
func NightsOf(checkIn, checkOut time.Time) []time.Time {
	n := Nights(checkIn, checkOut)
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	start := Day(checkIn)
	for i := 0; i < n; i++ {
		out = append(out, start.AddDate(0, 0, i))
	}
	return out
}
