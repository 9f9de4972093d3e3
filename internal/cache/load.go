package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// LoadTimeout bounds a shared load once it is detached from its callers
const LoadTimeout = 90 * time.Second

// Loader fronts a Cache with JSON encoding and collapses concurrent misses
// for the same key into one upstream call.
type Loader struct {
	cache       Cache
	group       singleflight.Group
	observe     func(kind string, hit bool)
	loadTimeout time.Duration
}

// NewLoader creates a loader over c
func NewLoader(c Cache) *Loader {
	return &Loader{cache: c, loadTimeout: LoadTimeout}
}

// OnLookup registers a hook called for every lookup with the key's kind
// (the text before the first ':') and whether it was a hit
func (l *Loader) OnLookup(fn func(kind string, hit bool)) {
	l.observe = fn
}

// Cache returns the underlying cache
func (l *Loader) Cache() Cache {
	return l.cache
}

func (l *Loader) record(key string, hit bool) {
	if l.observe == nil {
		return
	}
	kind := key
	if i := strings.IndexByte(key, ':'); i > 0 {
		kind = key[:i]
	}
	l.observe(kind, hit)
}

// GetOrLoad returns the cached value for key, or calls load, caches its
// result for ttl and returns it. Cache failures degrade to calling load.
func GetOrLoad[T any](ctx context.Context, l *Loader, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T

	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed, loading from source")
	}
	if ok {
		if err := json.Unmarshal(raw, &out); err == nil {
			l.record(key, true)
			return out, nil
		}
		log.Warn().Str("key", key).Msg("Discarding undecodable cache entry")
	}
	l.record(key, false)

	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := l.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		if err := l.cache.Set(loadCtx, key, encoded, ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
		return encoded, nil
	})

	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return out, res.Err
		}
		if err := json.Unmarshal(res.Val.([]byte), &out); err != nil {
			return out, fmt.Errorf("decode %s: %w", key, err)
		}
		return out, nil
	}
}
