package domain

import (
	"context"
	"time"

	"velorent/internal/database"
	"velorent/internal/models"
)

type Repository interface {
	GetBikes() []*models.Bike
	GetBikeByID(id string) (*models.Bike, error)
	GetBookingIntervals(ctx context.Context, bikeID string) ([]models.Interval, error)
	CreateBookingIfAvailable(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id int64, version int64, status string) error
	GetExpiredActiveBookings(ctx context.Context, now time.Time) ([]*models.Booking, error)
	GetRenterBookings(ctx context.Context, renterID string) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetLeaderboard(ctx context.Context, limit int) ([]database.LeaderboardEntry, error)
}

// PaymentAuthorization is the provider's answer to a one-shot
// authorization request.
type PaymentAuthorization struct {
	Reference string
	Approved  bool
}

// PaymentProvider performs a single authorization per request. A declined
// card is reported via Approved=false, not an error; errors mean the
// provider itself failed.
type PaymentProvider interface {
	Authorize(ctx context.Context, amountCents int64, currency, description string) (PaymentAuthorization, error)
}

// StatusPublisher broadcasts booking lifecycle status to the live-status
// display. Best effort, at-least-once.
type StatusPublisher interface {
	Publish(ctx context.Context, booking *models.Booking, status string) error
}

// StatusRepository stores the current live-status payload per booking.
type StatusRepository interface {
	GetStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error)
	SetStatus(ctx context.Context, status *models.RentalStatus) error
	ClearStatus(ctx context.Context, bookingID int64) error
	CheckRateLimit(ctx context.Context, renterID string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RentalService interface {
	CheckAvailability(ctx context.Context, bikeID string, start, end time.Time) (bool, error)
	QuotePrice(ctx context.Context, bikeID string, start, end time.Time, withHelmet bool) (int64, error)
	Rent(ctx context.Context, renterID, bikeID string, start, end time.Time, withHelmet bool) (*models.Booking, error)
	EndRental(ctx context.Context, bookingID int64) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetLiveStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error)
	GetBikes() []*models.Bike
	GetRenterBookings(ctx context.Context, renterID string) ([]*models.Booking, error)
	GetLeaderboard(ctx context.Context, limit int) ([]database.LeaderboardEntry, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}
