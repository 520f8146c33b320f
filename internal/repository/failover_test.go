package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"velorent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStatusRepo struct {
	err error
}

func (f *failingStatusRepo) GetStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error) {
	return nil, f.err
}
func (f *failingStatusRepo) SetStatus(ctx context.Context, status *models.RentalStatus) error {
	return f.err
}
func (f *failingStatusRepo) ClearStatus(ctx context.Context, bookingID int64) error {
	return f.err
}
func (f *failingStatusRepo) CheckRateLimit(ctx context.Context, renterID string, limit int, window time.Duration) (bool, error) {
	return false, f.err
}

func TestFailoverStatusRepository(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("falls back when primary fails", func(t *testing.T) {
		primary := &failingStatusRepo{err: errors.New("connection refused")}
		fallback := NewMemoryStatusRepository(time.Hour)
		repo := NewFailoverStatusRepository(primary, fallback, &logger)

		status := &models.RentalStatus{BookingID: 5, Status: models.RentalStarted}
		require.NoError(t, repo.SetStatus(ctx, status))

		got, err := repo.GetStatus(ctx, 5)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.RentalStarted, got.Status)
	})

	t.Run("uses primary when healthy", func(t *testing.T) {
		primary := NewMemoryStatusRepository(time.Hour)
		fallback := NewMemoryStatusRepository(time.Hour)
		repo := NewFailoverStatusRepository(primary, fallback, &logger)

		require.NoError(t, repo.SetStatus(ctx, &models.RentalStatus{BookingID: 6, Status: models.RentalEnded}))

		// Written to the primary, not the fallback.
		got, err := primary.GetStatus(ctx, 6)
		require.NoError(t, err)
		require.NotNil(t, got)

		got, err = fallback.GetStatus(ctx, 6)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("rate limit falls back too", func(t *testing.T) {
		primary := &failingStatusRepo{err: errors.New("down")}
		fallback := NewMemoryStatusRepository(time.Hour)
		repo := NewFailoverStatusRepository(primary, fallback, &logger)

		allowed, err := repo.CheckRateLimit(ctx, "renter-1", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, "renter-1", 1, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}
