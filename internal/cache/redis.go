package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"runClubAPI/internal/types/booking"
)

// flagTTL bounds how long an unconsumed "new booking" flag survives.
const flagTTL = 24 * time.Hour

// Redis stores booking lists as JSON strings with a TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// NewRedisClient connects and pings. It returns nil when the server is not
// reachable so callers can fall back to the in-memory cache.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		zap.S().Warnf("redis at %s not reachable: %v", addr, err)
		_ = client.Close()
		return nil
	}
	return client
}

func (c *Redis) GetBookings(ctx context.Context, userID string) ([]*booking.Booking, error) {
	raw, err := c.client.Get(ctx, bookingsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached bookings: %w", err)
	}

	var bookings []*booking.Booking
	if err := json.Unmarshal(raw, &bookings); err != nil {
		// stale or foreign payload; treat as a miss
		_ = c.client.Del(ctx, bookingsKey(userID)).Err()
		return nil, ErrMiss
	}
	return bookings, nil
}

func (c *Redis) SetBookings(ctx context.Context, userID string, bookings []*booking.Booking) error {
	raw, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("failed to encode bookings: %w", err)
	}
	if err := c.client.Set(ctx, bookingsKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache bookings: %w", err)
	}
	return nil
}

func (c *Redis) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, bookingsKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate bookings: %w", err)
	}
	return nil
}

func (c *Redis) SetNewBookingFlag(ctx context.Context, userID, bookingID string) error {
	if err := c.client.Set(ctx, newBookingKey(userID), bookingID, flagTTL).Err(); err != nil {
		return fmt.Errorf("failed to set new booking flag: %w", err)
	}
	return nil
}

func (c *Redis) ConsumeNewBookingFlag(ctx context.Context, userID string) (string, bool, error) {
	id, err := c.client.GetDel(ctx, newBookingKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to consume new booking flag: %w", err)
	}
	return id, true, nil
}
