// Package client is the outbound HTTP stack shared by the market data
// provider and the LLM backends: bounded concurrency, per-host rate limits,
// a daily budget, a circuit breaker and retries with jittered backoff.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/circuit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/ratelimit"
)

const maxBodyBytes = 8 << 20

// Config holds the pool settings
type Config struct {
	Name           string
	MaxConcurrency int
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	UserAgent      string
}

// DefaultConfig returns conservative settings for free-tier APIs
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		MaxConcurrency: 4,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     2,
		BackoffBase:    250 * time.Millisecond,
		BackoffMax:     5 * time.Second,
		UserAgent:      "stockmentor/1.0",
	}
}

// Response is a fully read upstream response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StatusError is returned for non-2xx responses after retries
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := string(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// ObserveFunc receives one call per upstream attempt
type ObserveFunc func(pool string, status int, d time.Duration, err error)

// Option configures a Pool
type Option func(*Pool)

// WithLimiter throttles requests per host
func WithLimiter(l *ratelimit.Limiter) Option { return func(p *Pool) { p.limiter = l } }

// WithBreaker routes every attempt through the breaker
func WithBreaker(b *circuit.Breaker) Option { return func(p *Pool) { p.breaker = b } }

// WithBudget charges each request against a daily budget
func WithBudget(b *budget.Tracker) Option { return func(p *Pool) { p.budget = b } }

// WithObserver reports attempts, typically to Prometheus
func WithObserver(fn ObserveFunc) Option { return func(p *Pool) { p.observe = fn } }

// WithTransport replaces the HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Pool) { p.client.Transport = rt }
}

// Pool executes requests with the full middleware stack
type Pool struct {
	config    Config
	semaphore chan struct{}
	client    *http.Client
	limiter   *ratelimit.Limiter
	breaker   *circuit.Breaker
	budget    *budget.Tracker
	observe   ObserveFunc
}

// NewPool creates a pool
func NewPool(config Config, opts ...Option) *Pool {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	p := &Pool{
		config:    config,
		semaphore: make(chan struct{}, config.MaxConcurrency),
		client:    &http.Client{Timeout: config.RequestTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Breaker exposes the pool's breaker for health reporting, may be nil
func (p *Pool) Breaker() *circuit.Breaker { return p.breaker }

// Budget exposes the pool's budget tracker for health reporting, may be nil
func (p *Pool) Budget() *budget.Tracker { return p.budget }

// Do sends req, retrying transport errors and 5xx responses. Any other
// non-2xx status is returned as *StatusError without retry.
func (p *Pool) Do(ctx context.Context, req *http.Request) (*Response, error) {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if p.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.backoff(attempt)
			log.Debug().
				Str("pool", p.config.Name).
				Dur("backoff", backoff).
				Int("attempt", attempt).
				Str("url", req.URL.Redacted()).
				Msg("Retrying HTTP request")

			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}

		// every attempt is a billed upstream call
		if err := p.charge(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w (after: %v)", err, lastErr)
			}
			return nil, err
		}

		resp, err := p.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (p *Pool) charge() error {
	warn, err := p.budget.Consume()
	if err != nil {
		return err
	}
	if warn {
		stats := p.budget.Stats()
		log.Warn().
			Str("pool", p.config.Name).
			Int64("used", stats.Used).
			Int64("limit", stats.Limit).
			Msg("Daily request budget nearly used up")
	}
	return nil
}

func (p *Pool) attempt(ctx context.Context, req *http.Request) (*Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, req.URL.Host); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	var resp *Response
	send := func(ctx context.Context) error {
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return err
			}
			clone.Body = body
		}

		start := time.Now()
		httpResp, err := p.client.Do(clone)
		if err != nil {
			p.record(0, time.Since(start), err)
			return err
		}
		defer httpResp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
		p.record(httpResp.StatusCode, time.Since(start), err)
		if err != nil {
			return err
		}

		if httpResp.StatusCode == http.StatusTooManyRequests {
			p.penalize(req.URL.Host, httpResp.Header.Get("Retry-After"))
		}
		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return &StatusError{StatusCode: httpResp.StatusCode, Body: body}
		}
		resp = &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}
		return nil
	}

	var err error
	if p.breaker != nil {
		err = p.breaker.Call(ctx, send)
	} else {
		err = send(ctx)
	}
	return resp, err
}

func (p *Pool) record(status int, d time.Duration, err error) {
	if p.observe != nil {
		p.observe(p.config.Name, status, d, err)
	}
}

func (p *Pool) penalize(host, retryAfter string) {
	if p.limiter == nil {
		return
	}
	secs, err := strconv.Atoi(retryAfter)
	if err != nil || secs <= 0 {
		secs = 1
	}
	p.limiter.Penalize(host, time.Now().Add(time.Duration(secs)*time.Second))
}

func (p *Pool) backoff(attempt int) time.Duration {
	backoff := p.config.BackoffBase * time.Duration(1<<uint(attempt-1))
	if p.config.BackoffMax > 0 && backoff > p.config.BackoffMax {
		backoff = p.config.BackoffMax
	}
	jitter := time.Duration(rand.Float64() * 0.1 * float64(backoff))
	return backoff + jitter
}

func retryable(err error) bool {
	if errors.Is(err, circuit.ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}
	return true
}

// IsClientError reports a 4xx response, which says nothing about upstream health
func IsClientError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500
}
