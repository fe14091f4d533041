package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCartClearMarker stores cart:clear:<user> = checkout time (RFC 3339, UTC).
type RedisCartClearMarker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCartClearMarker(rdb *redis.Client, ttl time.Duration) *RedisCartClearMarker {
	return &RedisCartClearMarker{rdb: rdb, ttl: ttl}
}

func clearKey(userID string) string { return "cart:clear:" + userID }

func (m *RedisCartClearMarker) MarkPending(ctx context.Context, userID string, at time.Time) error {
	return m.rdb.Set(ctx, clearKey(userID), at.UTC().Format(time.RFC3339Nano), m.ttl).Err()
}

func (m *RedisCartClearMarker) Pending(ctx context.Context, userID string) (time.Time, bool, error) {
	v, err := m.rdb.Get(ctx, clearKey(userID)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("cart clear marker %q: %w", v, err)
	}
	return at, true, nil
}

func (m *RedisCartClearMarker) Done(ctx context.Context, userID string) error {
	return m.rdb.Del(ctx, clearKey(userID)).Err()
}

var _ usecase.CartClearMarker = (*RedisCartClearMarker)(nil)
