package worker

import (
	"context"
	"errors"
	"time"

	"velorent/internal/database"
	"velorent/internal/domain"
	"velorent/internal/models"

	"github.com/rs/zerolog"
)

// RentalEndWorker completes active rentals whose end time has passed and
// broadcasts the "ended" status. Publish failures are retried with
// exponential backoff; completion itself is idempotent because of the
// version check.
type RentalEndWorker struct {
	repo            domain.Repository
	statusPublisher domain.StatusPublisher
	retryPolicy     RetryPolicy
	pollInterval    time.Duration
	logger          *zerolog.Logger
}

func NewRentalEndWorker(
	repo domain.Repository,
	statusPublisher domain.StatusPublisher,
	retry RetryPolicy,
	pollInterval time.Duration,
	logger *zerolog.Logger,
) *RentalEndWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if pollInterval <= 0 {
		pollInterval = models.WorkerPollInterval * time.Second
	}

	return &RentalEndWorker{
		repo:            repo,
		statusPublisher: statusPublisher,
		retryPolicy:     retry,
		pollInterval:    pollInterval,
		logger:          logger,
	}
}

// Run polls until the context is cancelled.
func (w *RentalEndWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info().Dur("poll_interval", w.pollInterval).Msg("rental end worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("rental end worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick processes one batch of expired rentals.
func (w *RentalEndWorker) Tick(ctx context.Context) {
	expired, err := w.repo.GetExpiredActiveBookings(ctx, time.Now().UTC())
	if err != nil {
		w.logger.Error().Err(err).Msg("fetch expired bookings")
		return
	}

	for _, booking := range expired {
		if err := w.complete(ctx, booking); err != nil {
			w.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("complete rental")
		}
	}
}

func (w *RentalEndWorker) complete(ctx context.Context, booking *models.Booking) error {
	err := w.repo.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCompleted)
	if errors.Is(err, database.ErrConcurrentModification) {
		// Someone else (manual end) already completed it.
		return nil
	}
	if err != nil {
		return err
	}
	booking.Status = models.StatusCompleted

	return w.publishWithRetry(ctx, booking)
}

func (w *RentalEndWorker) publishWithRetry(ctx context.Context, booking *models.Booking) error {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		lastErr = w.statusPublisher.Publish(ctx, booking, models.RentalEnded)
		if lastErr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}
	return lastErr
}
