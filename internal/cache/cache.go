// Package cache implements §4.8's hot-key cache: get/set/del/del-by-pattern
// with TTL, backed by Redis. No pack repo does key-value caching; go-redis
// is the ecosystem-standard client for this concern (see DESIGN.md).
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache is one of the three process-wide handles the design notes allow.
type Cache struct {
	client *redis.Client
}

func New(redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Cache{client: redis.NewClient(opt)}, nil
}

func (c *Cache) Client() *redis.Client { return c.client }

func (c *Cache) Close() error { return c.client.Close() }

// Get returns the cached string value, or ("", false, nil) on a miss. Cache
// unavailability is a transient, non-fatal condition for reads: callers
// degrade to the datastore rather than failing the request.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed, degrading to datastore")
		return "", false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (c *Cache) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache del failed")
	}
}

// DelPattern deletes every key matching a glob pattern (e.g. "loan:123*")
// using SCAN so a large keyspace is never blocked by KEYS.
func (c *Cache) DelPattern(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("cache scan failed")
		return
	}
	c.Del(ctx, keys...)
}

// InvalidateLoan invalidates every key the spec names for a loan/collection
// mutation: the loan's own keys, its customer's loan list, and dashboard
// aggregates. Best-effort, post-commit; failures are logged, never propagated.
func (c *Cache) InvalidateLoan(ctx context.Context, loanID, customerID string) {
	c.DelPattern(ctx, "loan:"+loanID+"*")
	c.DelPattern(ctx, "loans:customer:"+customerID+"*")
	c.DelPattern(ctx, "dashboard:*")
}
