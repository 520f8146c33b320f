package service

import (
	"math/rand"
	"time"

	"velorent/internal/database"
	"velorent/internal/models"
)

// NewBooking assembles a booking record from validated inputs. Pure
// construction: availability and persistence are the gate's concern.
func NewBooking(renterID string, bike *models.Bike, start, end time.Time, withHelmet bool, totalCents int64) (*models.Booking, error) {
	if renterID == "" {
		return nil, database.ErrMissingRenter
	}
	if !end.After(start) {
		return nil, database.ErrInvalidInterval
	}

	return &models.Booking{
		BookingNumber: newBookingNumber(),
		RenterID:      renterID,
		BikeID:        bike.ID,
		BikeName:      bike.Name,
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		WithHelmet:    withHelmet,
		TotalCents:    totalCents,
		Status:        models.StatusActive,
	}, nil
}

// newBookingNumber produces a short display-only number for the live
// status surface. Not a uniqueness key.
func newBookingNumber() int {
	return 100 + rand.Intn(900)
}
