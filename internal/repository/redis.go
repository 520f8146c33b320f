package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"velorent/internal/config"
	"velorent/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStatusRepository keeps live rental statuses in Redis so the
// status display survives API restarts.
type RedisStatusRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisStatusRepository(client *redis.Client, ttl time.Duration) *RedisStatusRepository {
	return &RedisStatusRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStatusRepository) GetStatus(ctx context.Context, bookingID int64) (*models.RentalStatus, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rental_status:%d", bookingID)
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	var status models.RentalStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

func (r *RedisStatusRepository) SetStatus(ctx context.Context, status *models.RentalStatus) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rental_status:%d", status.BookingID)
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set status in redis: %w", err)
	}

	return nil
}

func (r *RedisStatusRepository) ClearStatus(ctx context.Context, bookingID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rental_status:%d", bookingID)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear status in redis: %w", err)
	}
	return nil
}

// CheckRateLimit allows at most limit booking attempts per renter within
// the window. Uses INCR with an expiry on first increment.
func (r *RedisStatusRepository) CheckRateLimit(ctx context.Context, renterID string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rental_attempts:%s", renterID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to incr rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit expiry: %w", err)
		}
	}

	return count <= int64(limit), nil
}
