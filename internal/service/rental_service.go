package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"velorent/internal/database"
	"velorent/internal/domain"
	"velorent/internal/metrics"
	"velorent/internal/models"
	"velorent/internal/payment"
	"velorent/internal/pricing"

	"github.com/rs/zerolog"
)

// pastGrace tolerates clock skew between the mobile client and the server.
const pastGrace = 5 * time.Minute

type RentalService struct {
	repo            domain.Repository
	provider        domain.PaymentProvider
	statusPublisher domain.StatusPublisher
	statusRepo      domain.StatusRepository

	currency       string
	helmetFee      int64
	maxBookingDays int
	rateLimit      int
	rateWindow     time.Duration

	logger *zerolog.Logger
}

type RentalServiceOptions struct {
	Currency       string
	HelmetFeeCents int64
	MaxBookingDays int
	RateLimit      int
	RateWindow     time.Duration
}

func NewRentalService(
	repo domain.Repository,
	provider domain.PaymentProvider,
	statusPublisher domain.StatusPublisher,
	statusRepo domain.StatusRepository,
	opts RentalServiceOptions,
	logger *zerolog.Logger,
) *RentalService {
	if opts.Currency == "" {
		opts.Currency = models.DefaultCurrency
	}
	if opts.MaxBookingDays <= 0 {
		opts.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = models.RateLimitWindow * time.Second
	}
	return &RentalService{
		repo:            repo,
		provider:        provider,
		statusPublisher: statusPublisher,
		statusRepo:      statusRepo,
		currency:        opts.Currency,
		helmetFee:       opts.HelmetFeeCents,
		maxBookingDays:  opts.MaxBookingDays,
		rateLimit:       opts.RateLimit,
		rateWindow:      opts.RateWindow,
		logger:          logger,
	}
}

// ValidateInterval rejects malformed or out-of-horizon windows before any
// availability check or external call.
func (s *RentalService) ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return database.ErrInvalidInterval
	}
	now := time.Now()
	if start.Before(now.Add(-pastGrace)) {
		return database.ErrPastDate
	}
	if start.After(now.AddDate(0, 0, s.maxBookingDays)) {
		return database.ErrDateTooFar
	}
	return nil
}

// CheckAvailability runs the advisory check against the latest fetched
// booking set. The authoritative check happens at persist time.
func (s *RentalService) CheckAvailability(ctx context.Context, bikeID string, start, end time.Time) (bool, error) {
	if err := s.ValidateInterval(start, end); err != nil {
		return false, err
	}
	if _, err := s.repo.GetBikeByID(bikeID); err != nil {
		return false, err
	}

	existing, err := s.repo.GetBookingIntervals(ctx, bikeID)
	if err != nil {
		return false, err
	}
	return IsAvailable(start, end, existing), nil
}

// QuotePrice computes the total for a window without side effects.
func (s *RentalService) QuotePrice(ctx context.Context, bikeID string, start, end time.Time, withHelmet bool) (int64, error) {
	bike, err := s.repo.GetBikeByID(bikeID)
	if err != nil {
		return 0, err
	}
	return pricing.Quote(bike.HourlyPriceCents, start, end, withHelmet, s.helmetFee)
}

// Rent runs the full booking flow: validation, advisory availability,
// pricing, payment authorization, persistence with re-validation, and the
// "started" status broadcast. Exactly one publish on success.
func (s *RentalService) Rent(ctx context.Context, renterID, bikeID string, start, end time.Time, withHelmet bool) (*models.Booking, error) {
	if renterID == "" {
		return nil, database.ErrMissingRenter
	}
	if err := s.ValidateInterval(start, end); err != nil {
		return nil, err
	}

	if s.statusRepo != nil && s.rateLimit > 0 {
		allowed, err := s.statusRepo.CheckRateLimit(ctx, renterID, s.rateLimit, s.rateWindow)
		if err != nil {
			s.logger.Warn().Err(err).Str("renter_id", renterID).Msg("rate limit check failed, allowing attempt")
		} else if !allowed {
			return nil, database.ErrTooManyAttempts
		}
	}

	bike, err := s.repo.GetBikeByID(bikeID)
	if err != nil {
		return nil, err
	}

	// Advisory check: no payment is requested for a window the renter can
	// already see is taken.
	existing, err := s.repo.GetBookingIntervals(ctx, bikeID)
	if err != nil {
		return nil, err
	}
	if !IsAvailable(start, end, existing) {
		return nil, database.ErrNotAvailable
	}

	total, err := pricing.Quote(bike.HourlyPriceCents, start, end, withHelmet, s.helmetFee)
	if err != nil {
		return nil, err
	}

	booking, err := NewBooking(renterID, bike, start, end, withHelmet, total)
	if err != nil {
		return nil, err
	}

	gate := payment.NewGate(s.provider, s.repo, s.logger)

	description := fmt.Sprintf("Bike rental: %s, %s", bike.Name, booking.Items())
	if err := gate.RequestAuthorization(ctx, total, s.currency, description); err != nil {
		metrics.IncPaymentDeclined()
		return nil, err
	}

	if err := gate.Persist(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncSlotConflict()
		}
		if errors.Is(err, database.ErrPersistenceFailure) {
			metrics.IncPersistenceFailure()
		}
		return nil, err
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("renter_id", renterID).
		Str("bike_id", bikeID).
		Int64("total_cents", total).
		Msg("booking persisted")

	s.publishStatus(ctx, booking, models.RentalStarted)
	return booking, nil
}

// EndRental completes an active rental ahead of schedule and broadcasts
// the "ended" status.
func (s *RentalService) EndRental(ctx context.Context, bookingID int64) error {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status == models.StatusCompleted {
		return nil
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCompleted); err != nil {
		return err
	}
	booking.Status = models.StatusCompleted

	s.publishStatus(ctx, booking, models.RentalEnded)
	return nil
}

func (s *RentalService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *RentalService) GetLiveStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error) {
	if s.statusRepo == nil {
		return nil, nil
	}
	return s.statusRepo.GetStatus(ctx, bookingID)
}

func (s *RentalService) GetBikes() []*models.Bike {
	return s.repo.GetBikes()
}

func (s *RentalService) GetRenterBookings(ctx context.Context, renterID string) ([]*models.Booking, error) {
	if renterID == "" {
		return nil, database.ErrMissingRenter
	}
	return s.repo.GetRenterBookings(ctx, renterID)
}

func (s *RentalService) GetLeaderboard(ctx context.Context, limit int) ([]database.LeaderboardEntry, error) {
	return s.repo.GetLeaderboard(ctx, limit)
}

func (s *RentalService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *RentalService) publishStatus(ctx context.Context, booking *models.Booking, status string) {
	if s.statusPublisher == nil {
		return
	}
	if err := s.statusPublisher.Publish(ctx, booking, status); err != nil {
		// Best effort: the display is not safety-critical.
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Str("status", status).Msg("publish status error")
	}
}
