package repository

import (
	"context"
	"sync/atomic"
	"time"

	"velorent/internal/domain"
	"velorent/internal/models"

	"github.com/rs/zerolog"
)

// FailoverStatusRepository serves from the primary (Redis) until it
// errors, then falls back to memory and probes the primary once a minute.
type FailoverStatusRepository struct {
	primary   domain.StatusRepository
	fallback  domain.StatusRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverStatusRepository(primary, fallback domain.StatusRepository, logger *zerolog.Logger) *FailoverStatusRepository {
	return &FailoverStatusRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverStatusRepository) GetStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error) {
	if !r.isDown.Load() {
		status, err := r.primary.GetStatus(ctx, bookingID)
		if err == nil {
			return status, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		status, err := r.primary.GetStatus(ctx, bookingID)
		if err == nil {
			r.isDown.Store(false)
			return status, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetStatus(ctx, bookingID)
}

func (r *FailoverStatusRepository) SetStatus(ctx context.Context, status *models.RentalStatus) error {
	if !r.isDown.Load() {
		err := r.primary.SetStatus(ctx, status)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetStatus(ctx, status)
}

func (r *FailoverStatusRepository) ClearStatus(ctx context.Context, bookingID int64) error {
	if !r.isDown.Load() {
		err := r.primary.ClearStatus(ctx, bookingID)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.ClearStatus(ctx, bookingID)
}

func (r *FailoverStatusRepository) CheckRateLimit(ctx context.Context, renterID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, renterID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, renterID, limit, window)
}

func (r *FailoverStatusRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary status repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}
