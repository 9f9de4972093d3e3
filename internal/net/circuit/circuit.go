package circuit

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config represents circuit breaker configuration
type Config struct {
	Name             string
	FailureThreshold uint32        // Consecutive failures to open circuit
	HalfOpenRequests uint32        // Trial requests allowed while half-open
	Timeout          time.Duration // Time to wait before transitioning to half-open
	RequestTimeout   time.Duration // Individual request timeout, zero for none

	// Benign marks errors that are the caller's fault (unknown ticker,
	// exhausted quota) so they do not count against the upstream's health.
	Benign func(error) bool
}

// DefaultConfig returns the breaker settings used for market data and LLM calls
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		HalfOpenRequests: 1,
		Timeout:          30 * time.Second,
		RequestTimeout:   15 * time.Second,
	}
}

// Breaker wraps gobreaker with context-aware calls
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	config Config
}

// NewBreaker creates a new circuit breaker with the specified configuration
func NewBreaker(config Config) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.HalfOpenRequests,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	if config.Benign != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || config.Benign(err)
		}
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings), config: config}
}

// Call executes fn if the breaker allows it
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if b.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.RequestTimeout)
		defer cancel()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State returns "closed", "half-open" or "open"
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Stats returns the breaker's counters for health reporting
func (b *Breaker) Stats() Stats {
	counts := b.cb.Counts()
	var failureRate float64
	if counts.Requests > 0 {
		failureRate = float64(counts.TotalFailures) / float64(counts.Requests)
	}
	return Stats{
		Name:        b.config.Name,
		State:       b.State(),
		Requests:    counts.Requests,
		Failures:    counts.TotalFailures,
		FailureRate: failureRate,
	}
}

// Stats represents circuit breaker status
type Stats struct {
	Name        string  `json:"name"`
	State       string  `json:"state"`
	Requests    uint32  `json:"requests"`
	Failures    uint32  `json:"failures"`
	FailureRate float64 `json:"failure_rate"`
}
