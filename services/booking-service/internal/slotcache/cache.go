// Package slotcache keeps the slot starts a service's rules produce on each
// weekday in Redis, so availability reads skip the rule query. Bookings are
// not cached.
package slotcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

// Client is the subset of redis.Cmdable the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

const defaultPrefix = "booking:slots:"

type Cache struct {
	rdb    Client
	prefix string
	ttl    time.Duration
}

// New builds a cache whose entries expire after ttl. Expiry bounds how long a
// rule change made outside this service can go unnoticed.
func New(rdb Client, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) key(serviceID string, weekday int) string {
	return fmt.Sprintf("%s%s:%d", c.prefix, serviceID, weekday)
}

func (c *Cache) Get(ctx context.Context, serviceID string, weekday int) ([]model.Clock, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(serviceID, weekday)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var slots []model.Clock
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false, fmt.Errorf("decode cached slots: %w", err)
	}
	if slots == nil {
		slots = []model.Clock{}
	}
	return slots, true, nil
}

func (c *Cache) Set(ctx context.Context, serviceID string, weekday int, slots []model.Clock) error {
	if slots == nil {
		slots = []model.Clock{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(serviceID, weekday), data, c.ttl).Err()
}

// InvalidateService drops every cached weekday of a service.
func (c *Cache) InvalidateService(ctx context.Context, serviceID string) error {
	match := c.prefix + serviceID + ":*"
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
