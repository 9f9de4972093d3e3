package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/circuit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/ratelimit"
)

func testConfig() Config {
	cfg := DefaultConfig("test")
	cfg.BackoffBase = time.Millisecond
	cfg.BackoffMax = 5 * time.Millisecond
	return cfg
}

func TestPool_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stockmentor/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var observed int32
	pool := NewPool(testConfig(), WithObserver(func(pool string, status int, d time.Duration, err error) {
		atomic.AddInt32(&observed, 1)
		assert.Equal(t, "test", pool)
		assert.Equal(t, http.StatusOK, status)
	}))

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := pool.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&observed))
}

func TestPool_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, 4)
		n, _ := r.Body.Read(body)
		assert.Equal(t, "ping", string(body[:n]), "body is replayed on retry")
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("done"))
	}))
	defer srv.Close()

	pool := NewPool(testConfig())
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("ping"))
	require.NoError(t, err)

	resp, err := pool.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "done", string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPool_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	limiter := ratelimit.NewLimiter(100, 10)
	pool := NewPool(testConfig(), WithLimiter(limiter))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = pool.Do(context.Background(), req)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.True(t, IsClientError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// the 429 holds the host back
	stats := limiter.Stats()
	require.Contains(t, stats, req.URL.Host)
	assert.True(t, stats[req.URL.Host].BlockedUntil.After(time.Now()))
}

func TestPool_BudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	pool := NewPool(testConfig(), WithBudget(budget.NewTracker("rapidapi", 1, 0, 0.9)))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = pool.Do(context.Background(), req)
	require.NoError(t, err)
	_, err = pool.Do(context.Background(), req)
	assert.ErrorIs(t, err, budget.ErrExhausted)
}

func TestPool_BreakerOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRetries = 0
	breaker := circuit.NewBreaker(circuit.Config{Name: "test", FailureThreshold: 2, Timeout: time.Minute, Benign: IsClientError})
	pool := NewPool(cfg, WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		_, err := pool.Do(context.Background(), req)
		require.Error(t, err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := pool.Do(context.Background(), req)
	assert.ErrorIs(t, err, circuit.ErrCircuitOpen)
	assert.Same(t, breaker, pool.Breaker())
}

func TestPool_BudgetChargedPerAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tracker := budget.NewTracker("rapidapi", 10, 0, 0.9)
	pool := NewPool(testConfig(), WithBudget(tracker))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = pool.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), tracker.Stats().Used)
}

func TestPool_BudgetStopsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	pool := NewPool(testConfig(), WithBudget(budget.NewTracker("rapidapi", 2, 0, 0.9)))
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = pool.Do(context.Background(), req)
	assert.ErrorIs(t, err, budget.ErrExhausted)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
