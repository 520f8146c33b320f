package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"velorent/internal/models"
)

const bookingColumns = `id, booking_number, renter_id, bike_id, bike_name,
                 start_time, end_time, with_helmet, total_cents, status,
                 payment_ref, created_at, updated_at, version`

// GetBookingIntervals returns the reserved [start, end) windows for a bike.
// This is the advisory read; the authoritative check happens inside
// CreateBookingIfAvailable.
func (db *DB) GetBookingIntervals(ctx context.Context, bikeID string) ([]models.Interval, error) {
	query := `SELECT start_time, end_time FROM bookings WHERE bike_id = ? AND status = ? ORDER BY start_time ASC`
	rows, err := db.QueryContext(ctx, query, bikeID, models.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking intervals: %w", err)
	}
	defer rows.Close()

	var intervals []models.Interval
	for rows.Next() {
		var interval models.Interval
		if err := rows.Scan(&interval.Start, &interval.End); err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		intervals = append(intervals, interval)
	}
	return intervals, rows.Err()
}

// CreateBookingIfAvailable inserts the booking only if no persisted booking
// for the same bike overlaps the requested window. The overlap count and the
// insert run in one transaction, so two concurrent renters cannot both
// commit the same slot.
func (db *DB) CreateBookingIfAvailable(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Half-open semantics: [s1,e1) overlaps [s2,e2) iff s1 < e2 && s2 < e1.
	// A rental ended early frees its slot, so only active bookings count.
	var overlapping int
	queryCount := `SELECT COUNT(*) FROM bookings WHERE bike_id = ? AND status = ? AND start_time < ? AND ? < end_time`
	err = tx.QueryRowContext(ctx, queryCount, booking.BikeID, models.StatusActive,
		formatTime(booking.EndTime), formatTime(booking.StartTime)).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to re-validate availability in tx: %w", err)
	}
	if overlapping > 0 {
		return ErrSlotTaken
	}

	queryInsert := `INSERT INTO bookings (
				booking_number, renter_id, bike_id, bike_name, start_time, end_time,
				with_helmet, total_cents, status, payment_ref, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.BookingNumber,
		booking.RenterID,
		booking.BikeID,
		booking.BikeName,
		formatTime(booking.StartTime),
		formatTime(booking.EndTime),
		booking.WithHelmet,
		booking.TotalCents,
		booking.Status,
		booking.PaymentRef,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// UpdateBookingStatusWithVersion flips the status with optimistic locking.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// GetExpiredActiveBookings returns active bookings whose end time has passed.
func (db *DB) GetExpiredActiveBookings(ctx context.Context, now time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ? AND end_time <= ? ORDER BY end_time ASC`
	rows, err := db.QueryContext(ctx, query, models.StatusActive, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to get expired bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// GetRenterBookings returns the renter's rental history, newest first.
func (db *DB) GetRenterBookings(ctx context.Context, renterID string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE renter_id = ? ORDER BY start_time DESC`
	rows, err := db.QueryContext(ctx, query, renterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get renter bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE start_time >= ? AND start_time < ? ORDER BY start_time ASC`
	rows, err := db.QueryContext(ctx, query, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// LeaderboardEntry aggregates a renter's completed rentals.
type LeaderboardEntry struct {
	RenterID   string `json:"renter_id"`
	Rentals    int64  `json:"rentals"`
	TotalCents int64  `json:"total_cents"`
}

// GetLeaderboard ranks renters by number of completed rentals, spend as
// tie-breaker. Bookings are never deleted, so history drives the ranking.
func (db *DB) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT renter_id, COUNT(*) AS rentals, COALESCE(SUM(total_cents), 0) AS total_cents
              FROM bookings WHERE status = ?
              GROUP BY renter_id
              ORDER BY rentals DESC, total_cents DESC, renter_id ASC
              LIMIT ?`
	rows, err := db.QueryContext(ctx, query, models.StatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.RenterID, &e.Rentals, &e.TotalCents); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var paymentRef sql.NullString
	err := row.Scan(
		&b.ID, &b.BookingNumber, &b.RenterID, &b.BikeID, &b.BikeName,
		&b.StartTime, &b.EndTime, &b.WithHelmet, &b.TotalCents, &b.Status,
		&paymentRef, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	b.PaymentRef = paymentRef.String
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]*models.Booking, error) {
	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
