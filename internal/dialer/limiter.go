package dialer

import (
	"context"
	"errors"
	"time"

	"outreach-dialer/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter caps how many batches run at once across processes.
type Limiter interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

const defaultLimiterKey = "dialer:batches:active"

// RedisLimiter is a Limiter backed by the atomic Lua counter in pkg/utils.
// The TTL bounds how long a crashed process can hold a slot.
type RedisLimiter struct {
	rdb   *redis.Client
	key   string
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, errors.New("dialer: redis client is nil")
	}
	if limit <= 0 {
		return nil, errors.New("dialer: limit must be > 0")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLimiter{rdb: rdb, key: defaultLimiterKey, limit: limit, ttl: ttl}, nil
}

func (l *RedisLimiter) Acquire(ctx context.Context) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key, l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key)
}
