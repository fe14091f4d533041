package cache

import (
	"context"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisCache keeps order:status:<id> as a hash of status and owner.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func statusKey(orderID string) string { return "order:status:" + orderID }

func (r *RedisCache) SetStatus(ctx context.Context, orderID string, s usecase.CachedStatus) error {
	key := statusKey(orderID)
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, "status", string(s.Status), "user_id", s.UserID)
		if r.ttl > 0 {
			p.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisCache) GetStatus(ctx context.Context, orderID string) (usecase.CachedStatus, bool, error) {
	m, err := r.rdb.HGetAll(ctx, statusKey(orderID)).Result()
	if err != nil {
		return usecase.CachedStatus{}, false, err
	}
	st, err := domain.ParseStatus(m["status"])
	if err != nil {
		// absent or unreadable entries are misses
		return usecase.CachedStatus{}, false, nil
	}
	return usecase.CachedStatus{UserID: m["user_id"], Status: st}, true, nil
}

func (r *RedisCache) Invalidate(ctx context.Context, orderID string) error {
	return r.rdb.Del(ctx, statusKey(orderID)).Err()
}

var _ usecase.OrderCache = (*RedisCache)(nil)
