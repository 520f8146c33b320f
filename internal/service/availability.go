package service

import (
	"time"

	"velorent/internal/models"
)

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Back-to-back windows do not overlap: a rental
// ending at 11:00 and one starting at 11:00 can coexist.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// IsAvailable reports whether [start, end) is free given the existing
// bookings for the same bike. Pure function over the supplied set; the
// caller fetches the current set from storage. The result is advisory:
// the authoritative check runs inside the persisting transaction.
func IsAvailable(start, end time.Time, existing []models.Interval) bool {
	for _, interval := range existing {
		if Overlaps(start, end, interval.Start, interval.End) {
			return false
		}
	}
	return true
}
