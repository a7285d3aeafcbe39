package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Claims hands a key to exactly one caller until ttl passes. Claims are
// never released early.
type Claims interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryClaims only deduplicates within one process.
type MemoryClaims struct {
	mu     sync.Mutex
	now    func() time.Time
	claims map[string]time.Time
}

func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{now: time.Now, claims: make(map[string]time.Time)}
}

func (m *MemoryClaims) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if until, ok := m.claims[key]; ok && now.Before(until) {
		return false, nil
	}
	m.claims[key] = now.Add(ttl)
	return true, nil
}

// RedisClaims shares claims across instances through a redsync mutex that
// is left to expire.
type RedisClaims struct {
	rs *redsync.Redsync
}

func NewRedisClaims(client *redis.Client) *RedisClaims {
	return &RedisClaims{rs: redsync.New(goredis.NewPool(client))}
}

func (c *RedisClaims) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	mutex := c.rs.NewMutex("claim:"+key, redsync.WithExpiry(ttl), redsync.WithTries(1))
	err := mutex.LockContext(ctx)
	if err == nil {
		return true, nil
	}

	var taken *redsync.ErrTaken
	if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
		return false, nil
	}
	return false, err
}
