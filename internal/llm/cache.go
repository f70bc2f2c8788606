package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"triage/internal/logging"
)

// Cache stores raw model responses by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache is a Cache backed by redis.
type RedisCache struct {
	rdb *goredis.Client
}

// NewRedisCache connects to addr and pings it.
func NewRedisCache(ctx context.Context, addr string) (*RedisCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb}, nil
}

// Get returns the cached value; ok is false on a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key for ttl.
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Close closes the redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CachingInvoker serves repeated identical requests from a cache. Since
// invokers are deterministic, a cached response equals a fresh one.
// Cache failures are logged and never fail the invocation.
type CachingInvoker struct {
	inner     Invoker
	cache     Cache
	namespace string
	ttl       time.Duration
	log       logging.Logger
}

// NewCachingInvoker wraps inner. namespace should identify the provider and
// model so different models never share entries.
func NewCachingInvoker(inner Invoker, cache Cache, namespace string, ttl time.Duration, log logging.Logger) *CachingInvoker {
	return &CachingInvoker{
		inner:     inner,
		cache:     cache,
		namespace: namespace,
		ttl:       ttl,
		log:       log,
	}
}

// Invoke returns the cached response or calls the inner invoker.
func (c *CachingInvoker) Invoke(ctx context.Context, system, user string) (string, error) {
	key := CacheKey(c.namespace, system, user)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("Response cache read failed", "error", err)
	} else if ok {
		c.log.Debug("Response cache hit", "key", key)
		return cached, nil
	}

	text, err := c.inner.Invoke(ctx, system, user)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, text, c.ttl); err != nil {
		c.log.Warn("Response cache write failed", "error", err)
	}

	return text, nil
}

// CacheKey derives the cache key for a request.
func CacheKey(namespace, system, user string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(user))
	return "triage:llm:" + hex.EncodeToString(h.Sum(nil))
}
