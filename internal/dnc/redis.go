package dnc

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "dnc:numbers"

// RedisList stores normalized numbers in a single Redis set.
// Reasons are kept in a companion hash so SISMEMBER stays the hot path.
type RedisList struct {
	rdb redis.Cmdable
	key string
}

func NewRedisList(rdb redis.Cmdable, key string) *RedisList {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisList{rdb: rdb, key: key}
}

func (l *RedisList) IsBlocked(ctx context.Context, phoneNumber string) (bool, error) {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return false, err
	}
	ok, err := l.rdb.SIsMember(ctx, l.key, n).Result()
	if err != nil {
		return false, fmt.Errorf("dnc: redis lookup: %w", err)
	}
	return ok, nil
}

func (l *RedisList) Add(ctx context.Context, phoneNumber, reason string) error {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return err
	}
	if err := l.rdb.SAdd(ctx, l.key, n).Err(); err != nil {
		return fmt.Errorf("dnc: redis add: %w", err)
	}
	if reason != "" {
		if err := l.rdb.HSet(ctx, l.key+":reasons", n, reason).Err(); err != nil {
			return fmt.Errorf("dnc: redis add reason: %w", err)
		}
	}
	return nil
}

func (l *RedisList) Remove(ctx context.Context, phoneNumber string) error {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return err
	}
	if err := l.rdb.SRem(ctx, l.key, n).Err(); err != nil {
		return fmt.Errorf("dnc: redis remove: %w", err)
	}
	return l.rdb.HDel(ctx, l.key+":reasons", n).Err()
}
