package repository

import (
	"context"
	"sync"
	"time"

	"velorent/internal/models"
)

// MemoryStatusRepository is the in-process fallback when Redis is down
// or not configured. Statuses do not survive restarts.
type MemoryStatusRepository struct {
	statuses   sync.Map
	rateLimits sync.Map
	ttl        time.Duration
}

func NewMemoryStatusRepository(ttl time.Duration) *MemoryStatusRepository {
	return &MemoryStatusRepository{
		ttl: ttl,
	}
}

type statusEntry struct {
	status    *models.RentalStatus
	expiresAt time.Time
}

func (r *MemoryStatusRepository) GetStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error) {
	val, ok := r.statuses.Load(bookingID)
	if !ok {
		return nil, nil
	}
	entry := val.(*statusEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.statuses.Delete(bookingID)
		return nil, nil
	}
	return entry.status, nil
}

func (r *MemoryStatusRepository) SetStatus(ctx context.Context, status *models.RentalStatus) error {
	r.statuses.Store(status.BookingID, &statusEntry{
		status:    status,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryStatusRepository) ClearStatus(ctx context.Context, bookingID int64) error {
	r.statuses.Delete(bookingID)
	return nil
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryStatusRepository) CheckRateLimit(ctx context.Context, renterID string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, _ := r.rateLimits.LoadOrStore(renterID, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if now.After(entry.expiresAt) {
		entry.count = 0
		entry.expiresAt = now.Add(window)
	}
	entry.count++

	return entry.count <= limit, nil
}
