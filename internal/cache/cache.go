// Package cache holds short-lived copies of computed responses. A cache
// miss or failure always falls through to the computation, so callers see
// the same result with or without it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "budget-intel"

// Cache stores opaque values by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Recorder receives cache outcomes and Redis latencies.
type Recorder interface {
	RecordCache(result string)
	RecordRedis(operation string, took time.Duration)
}

// Key joins parts under the service prefix.
func Key(parts ...string) string {
	return keyPrefix + ":" + strings.Join(parts, ":")
}

// RedisCache implements Cache on a Redis client.
type RedisCache struct {
	client *redis.Client
	rec    Recorder
}

// NewRedisCache creates a Redis-backed cache. rec may be nil.
func NewRedisCache(client *redis.Client, rec Recorder) *RedisCache {
	return &RedisCache{client: client, rec: rec}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	val, err := c.client.Get(ctx, key).Bytes()
	c.observe("get", start)
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.client.Set(ctx, key, value, ttl).Err()
	c.observe("set", start)
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) observe(op string, start time.Time) {
	if c.rec != nil {
		c.rec.RecordRedis(op, time.Since(start))
	}
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Loader memoizes JSON-encodable results in a Cache.
type Loader struct {
	cache  Cache
	ttl    time.Duration
	rec    Recorder
	logger *zap.Logger
}

// NewLoader creates a loader. A nil cache or a non-positive ttl disables
// caching.
func NewLoader(c Cache, ttl time.Duration, rec Recorder, logger *zap.Logger) *Loader {
	if c == nil || ttl <= 0 {
		c = NopCache{}
	}
	return &Loader{cache: c, ttl: ttl, rec: rec, logger: logger.Named("cache")}
}

func (l *Loader) record(result string) {
	if l.rec != nil {
		l.rec.RecordCache(result)
	}
}

// Partial is implemented by results that may carry degraded parts.
// A result reporting Cacheable() == false is returned but not stored.
type Partial interface {
	Cacheable() bool
}

// Fetch returns the cached value for key or computes and stores it.
// Failed or partial computations are never cached.
func Fetch[T any](ctx context.Context, l *Loader, key string, compute func(context.Context) (T, error)) (T, error) {
	if _, nop := l.cache.(NopCache); !nop {
		raw, ok, err := l.cache.Get(ctx, key)
		switch {
		case err != nil:
			l.record("error")
			l.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				l.record("hit")
				return v, nil
			}
			l.record("error")
			l.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
		default:
			l.record("miss")
		}
	}

	v, err := compute(ctx)
	if err != nil {
		return v, err
	}
	if _, nop := l.cache.(NopCache); nop {
		return v, nil
	}
	if p, ok := any(v).(Partial); ok && !p.Cacheable() {
		l.logger.Debug("skipping cache write for partial result", zap.String("key", key))
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		l.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return v, nil
	}
	if err := l.cache.Set(ctx, key, raw, l.ttl); err != nil {
		l.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
