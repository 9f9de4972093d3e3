package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultPrefix namespaces every key this service writes
const DefaultPrefix = "stockmentor:"

// Redis is a Cache backed by a Redis server
type Redis struct {
	client *redis.Client
	prefix string

	hits, misses, sets, errs int64
}

// RedisConfig holds connection settings
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// NewRedis connects to Redis with pooled, bounded-latency settings
func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
	return NewRedisWithClient(client, cfg.Prefix)
}

// NewRedisWithClient wraps an existing client
func NewRedisWithClient(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Ping verifies connectivity
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get retrieves a value; a missing key is not an error
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&r.misses, 1)
		return nil, false, nil
	}
	if err != nil {
		atomic.AddInt64(&r.errs, 1)
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	atomic.AddInt64(&r.hits, 1)
	return v, true, nil
}

// Set stores value with ttl
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		atomic.AddInt64(&r.errs, 1)
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	atomic.AddInt64(&r.sets, 1)
	return nil
}

// Delete removes key
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Clear scans the key prefix and deletes every match
func (r *Redis) Clear(ctx context.Context) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis del: %w", err)
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// Stats returns cache performance statistics
func (r *Redis) Stats() Stats {
	hits := atomic.LoadInt64(&r.hits)
	misses := atomic.LoadInt64(&r.misses)
	return Stats{
		Backend: "redis",
		Hits:    hits,
		Misses:  misses,
		Sets:    atomic.LoadInt64(&r.sets),
		Errors:  atomic.LoadInt64(&r.errs),
		HitRate: hitRate(hits, misses),
	}
}

// Close releases the connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}
