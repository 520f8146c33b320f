// Package pricing computes rental totals in integer cents.
package pricing

import (
	"time"

	"velorent/internal/database"
)

// BillableHours returns the number of whole hours charged for a window.
// Partial hours are truncated, not rounded up: a 90 minute rental bills
// a single hour.
func BillableHours(start, end time.Time) (int64, error) {
	if !end.After(start) {
		return 0, database.ErrInvalidInterval
	}
	return int64(end.Sub(start) / time.Hour), nil
}

// Quote returns the total price for renting at hourlyRateCents over
// [start, end), plus a flat helmet surcharge when selected. The helmet
// fee is not time-scaled. There is no minimum charge: a sub-hour rental
// bills zero hours.
func Quote(hourlyRateCents int64, start, end time.Time, withHelmet bool, helmetFeeCents int64) (int64, error) {
	hours, err := BillableHours(start, end)
	if err != nil {
		return 0, err
	}

	total := hourlyRateCents * hours
	if withHelmet {
		total += helmetFeeCents
	}
	if total < 0 {
		total = 0
	}
	return total, nil
}
