// Package cache stores provider responses and LLM answers for a bounded
// time. The in-memory implementation serves a single process; the Redis
// implementation lets several API replicas share one cache.
package cache

import (
	"context"
	"time"
)

// Standard TTLs for cached lookups
const (
	HistoryTTL = time.Hour
	QuoteTTL   = 12 * time.Hour
	AnswerTTL  = time.Hour
)

// Cache is a byte-oriented TTL cache
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear drops every entry owned by this cache
	Clear(ctx context.Context) (int, error)
	Stats() Stats
}

// Stats provides cache performance counters
type Stats struct {
	Backend string  `json:"backend"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Sets    int64   `json:"sets"`
	Errors  int64   `json:"errors"`
	Entries int64   `json:"entries,omitempty"`
	HitRate float64 `json:"hit_rate"`
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
