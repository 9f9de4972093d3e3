package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter provides per-host rate limiting using token bucket algorithm
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	blocked  map[string]time.Time
	rps      float64
	burst    int
}

// NewLimiter creates a new rate limiter with the specified RPS and burst capacity
func NewLimiter(rps float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		blocked:  make(map[string]time.Time),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) get(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[host] = limiter
	return limiter
}

func (l *Limiter) blockedUntil(host string) time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocked[host]
}

// Wait blocks until a request for host is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if d := time.Until(l.blockedUntil(host)); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return l.get(host).Wait(ctx)
}

// Penalize holds every request to host until the given time, used after a 429
func (l *Limiter) Penalize(host string, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.blocked[host]) {
		l.blocked[host] = until
	}
}

// Stats returns statistics for all host limiters
func (l *Limiter) Stats() map[string]LimiterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]LimiterStats, len(l.limiters)+len(l.blocked))
	for host, until := range l.blocked {
		stats[host] = LimiterStats{Host: host, RPS: l.rps, Burst: l.burst, TokensAvailable: float64(l.burst), BlockedUntil: until}
	}
	for host, limiter := range l.limiters {
		stats[host] = LimiterStats{
			Host:            host,
			RPS:             float64(limiter.Limit()),
			Burst:           limiter.Burst(),
			TokensAvailable: limiter.Tokens(),
			BlockedUntil:    l.blocked[host],
		}
	}
	return stats
}

// LimiterStats represents statistics for a single host limiter
type LimiterStats struct {
	Host            string    `json:"host"`
	RPS             float64   `json:"rps"`
	Burst           int       `json:"burst"`
	TokensAvailable float64   `json:"tokens_available"`
	BlockedUntil    time.Time `json:"blocked_until,omitempty"`
}
