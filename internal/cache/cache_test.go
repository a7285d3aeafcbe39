package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"runClubAPI/internal/types/booking"
)

func exerciseCache(t *testing.T, c BookingCache) {
	ctx := context.Background()
	userID := "cache-test-user"
	_ = c.Invalidate(ctx, userID)
	_, _, _ = c.ConsumeNewBookingFlag(ctx, userID)

	_, err := c.GetBookings(ctx, userID)
	assert.ErrorIs(t, err, ErrMiss)

	in := []*booking.Booking{{ID: "b1", UserID: userID, EventName: "Weekly run", Status: booking.StatusConfirmed}}
	require.NoError(t, c.SetBookings(ctx, userID, in))

	got, err := c.GetBookings(ctx, userID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Weekly run", got[0].EventName)

	require.NoError(t, c.Invalidate(ctx, userID))
	_, err = c.GetBookings(ctx, userID)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.SetNewBookingFlag(ctx, userID, "b1"))
	id, ok, err := c.ConsumeNewBookingFlag(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b1", id)

	_, ok, err = c.ConsumeNewBookingFlag(ctx, userID)
	require.NoError(t, err)
	assert.False(t, ok, "flag is consumed once")
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemory(DashboardTTL))
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory(time.Second)
	now := time.Date(2025, 3, 9, 6, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.SetBookings(ctx, "u1", []*booking.Booking{{ID: "b1"}}))

	now = now.Add(2 * time.Second)
	_, err := c.GetBookings(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	c := NewMemory(DashboardTTL)
	ctx := context.Background()

	b := &booking.Booking{ID: "b1", EventName: "Weekly run"}
	require.NoError(t, c.SetBookings(ctx, "u1", []*booking.Booking{b}))
	b.EventName = "mutated"

	got, err := c.GetBookings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Weekly run", got[0].EventName)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	require.NotNil(t, client)
	defer client.Close()

	exerciseCache(t, NewRedis(client, DashboardTTL))
}

func exerciseClaims(t *testing.T, c Claims, key string) {
	ctx := context.Background()

	ok, err := c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim within ttl")
}

func TestMemoryClaims(t *testing.T) {
	c := NewMemoryClaims()
	exerciseClaims(t, c, "reminder:e1")

	now := time.Now()
	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	ok, err := c.Claim(context.Background(), "reminder:e1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claim is free again after ttl")
}

func TestRedisClaims(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	require.NotNil(t, client)
	defer client.Close()

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	exerciseClaims(t, NewRedisClaims(client), key)
}
