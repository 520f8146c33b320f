package database

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"velorent/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(t.TempDir()+"/test.db", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetBikes([]*models.Bike{
		{ID: "bike-001", Name: "Canyon Roadlite", Geometry: models.GeometryRoad, HourlyPriceCents: 356, SortOrder: 1, IsActive: true},
		{ID: "bike-002", Name: "Trek Marlin 7", Geometry: models.GeometryMountain, HourlyPriceCents: 400, SortOrder: 2, IsActive: true},
	})
	return db
}

func testBooking(bikeID, renterID string, start, end time.Time) *models.Booking {
	return &models.Booking{
		BookingNumber: 123,
		RenterID:      renterID,
		BikeID:        bikeID,
		BikeName:      "Canyon Roadlite",
		StartTime:     start,
		EndTime:       end,
		TotalCents:    1068,
		Status:        models.StatusActive,
		PaymentRef:    "pi_test",
	}
}

func TestBikeCatalog(t *testing.T) {
	db := setupTestDB(t)

	bikes := db.GetBikes()
	require.Len(t, bikes, 2)
	assert.Equal(t, "bike-001", bikes[0].ID)
	assert.Equal(t, "bike-002", bikes[1].ID)

	bike, err := db.GetBikeByID("bike-002")
	require.NoError(t, err)
	assert.Equal(t, "Trek Marlin 7", bike.Name)

	_, err = db.GetBikeByID("missing")
	assert.ErrorIs(t, err, ErrBikeNotFound)
}

func TestCreateBookingIfAvailable(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	t.Run("first booking succeeds", func(t *testing.T) {
		b := testBooking("bike-001", "renter-1", start, end)
		require.NoError(t, db.CreateBookingIfAvailable(ctx, b))
		assert.NotZero(t, b.ID)
		assert.Equal(t, int64(1), b.Version)
	})

	t.Run("overlapping booking is rejected", func(t *testing.T) {
		b := testBooking("bike-001", "renter-2", start.Add(time.Hour), end.Add(time.Hour))
		err := db.CreateBookingIfAvailable(ctx, b)
		assert.ErrorIs(t, err, ErrSlotTaken)
		assert.Zero(t, b.ID)
	})

	t.Run("back to back booking succeeds", func(t *testing.T) {
		b := testBooking("bike-001", "renter-2", end, end.Add(2*time.Hour))
		require.NoError(t, db.CreateBookingIfAvailable(ctx, b))
	})

	t.Run("other bike is unaffected", func(t *testing.T) {
		b := testBooking("bike-002", "renter-3", start, end)
		require.NoError(t, db.CreateBookingIfAvailable(ctx, b))
	})

	t.Run("completed booking frees the slot", func(t *testing.T) {
		day2 := start.AddDate(0, 0, 1)
		b := testBooking("bike-001", "renter-4", day2, day2.Add(2*time.Hour))
		require.NoError(t, db.CreateBookingIfAvailable(ctx, b))
		require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, b.Version, models.StatusCompleted))

		again := testBooking("bike-001", "renter-5", day2, day2.Add(2*time.Hour))
		require.NoError(t, db.CreateBookingIfAvailable(ctx, again))
	})
}

func TestCreateBookingConcurrent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	const renters = 5
	var wg sync.WaitGroup
	errs := make([]error, renters)

	for i := 0; i < renters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := testBooking("bike-001", "renter-concurrent", start, end)
			errs[i] = db.CreateBookingIfAvailable(ctx, b)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent booking must win the slot")

	intervals, err := db.GetBookingIntervals(ctx, "bike-001")
	require.NoError(t, err)
	assert.Len(t, intervals, 1)
}

func TestGetBookingIntervals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-001", "r1", start.Add(5*time.Hour), start.Add(7*time.Hour))))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-001", "r2", start, start.Add(2*time.Hour))))

	intervals, err := db.GetBookingIntervals(ctx, "bike-001")
	require.NoError(t, err)
	require.Len(t, intervals, 2)

	// Ordered by start time, round-tripped as UTC.
	assert.True(t, intervals[0].Start.Equal(start))
	assert.True(t, intervals[0].End.Equal(start.Add(2*time.Hour)))
	assert.True(t, intervals[1].Start.Equal(start.Add(5*time.Hour)))
}

func TestGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking("bike-001", "renter-1", start, start.Add(time.Hour))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, b))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.RenterID, got.RenterID)
	assert.Equal(t, b.TotalCents, got.TotalCents)
	assert.Equal(t, "pi_test", got.PaymentRef)
	assert.True(t, got.StartTime.Equal(start))

	_, err = db.GetBooking(ctx, 9999)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	b := testBooking("bike-001", "renter-1", start, start.Add(time.Hour))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, b))

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusCompleted))

	// Stale version loses.
	err := db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestGetExpiredActiveBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	expired := testBooking("bike-001", "renter-1", now.Add(-3*time.Hour), now.Add(-time.Hour))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, expired))

	running := testBooking("bike-001", "renter-2", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, running))

	got, err := db.GetExpiredActiveBookings(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, expired.ID, got[0].ID)

	// Completed bookings never show up again.
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, expired.ID, 1, models.StatusCompleted))
	got, err = db.GetExpiredActiveBookings(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetRenterBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-001", "renter-1", start, start.Add(time.Hour))))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-002", "renter-1", start.Add(2*time.Hour), start.Add(3*time.Hour))))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-001", "renter-2", start.Add(4*time.Hour), start.Add(5*time.Hour))))

	got, err := db.GetRenterBookings(ctx, "renter-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "bike-002", got[0].BikeID)
	assert.Equal(t, "bike-001", got[1].BikeID)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	june := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	july := june.AddDate(0, 1, 0)

	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-001", "r1", june.Add(10*time.Hour), june.Add(12*time.Hour))))
	require.NoError(t, db.CreateBookingIfAvailable(ctx, testBooking("bike-001", "r2", july.Add(10*time.Hour), july.Add(12*time.Hour))))

	got, err := db.GetBookingsByDateRange(ctx, june, july)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].RenterID)
}

func TestGetLeaderboard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

	complete := func(bikeID, renter string, offset time.Duration, hours int) {
		b := testBooking(bikeID, renter, start.Add(offset), start.Add(offset+time.Duration(hours)*time.Hour))
		b.TotalCents = int64(hours) * 400
		require.NoError(t, db.CreateBookingIfAvailable(ctx, b))
		require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, b.ID, 1, models.StatusCompleted))
	}

	complete("bike-001", "renter-top", 0, 2)
	complete("bike-001", "renter-top", 3*time.Hour, 2)
	complete("bike-002", "renter-top", 6*time.Hour, 1)
	complete("bike-001", "renter-mid", 6*time.Hour, 3)

	// Active booking does not count toward the leaderboard.
	require.NoError(t, db.CreateBookingIfAvailable(ctx,
		testBooking("bike-002", "renter-active", start.Add(10*time.Hour), start.Add(12*time.Hour))))

	entries, err := db.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "renter-top", entries[0].RenterID)
	assert.Equal(t, int64(3), entries[0].Rentals)
	assert.Equal(t, int64(2000), entries[0].TotalCents)

	assert.Equal(t, "renter-mid", entries[1].RenterID)
	assert.Equal(t, int64(1), entries[1].Rentals)
}
