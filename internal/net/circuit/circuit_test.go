package circuit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream 502")

func testConfig() Config {
	return Config{
		Name:             "rapidapi",
		FailureThreshold: 3,
		HalfOpenRequests: 1,
		Timeout:          50 * time.Millisecond,
		RequestTimeout:   100 * time.Millisecond,
	}
}

func TestBreaker_ClosedState(t *testing.T) {
	breaker := NewBreaker(testConfig())
	assert.Equal(t, "closed", breaker.State())

	err := breaker.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", breaker.State())
}

func TestBreaker_OpenOnFailures(t *testing.T) {
	breaker := NewBreaker(testConfig())

	for i := 0; i < 3; i++ {
		err := breaker.Call(context.Background(), func(ctx context.Context) error { return errUpstream })
		assert.ErrorIs(t, err, errUpstream)
	}
	assert.Equal(t, "open", breaker.State())

	called := false
	err := breaker.Call(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	stats := breaker.Stats()
	assert.Equal(t, "rapidapi", stats.Name)
	assert.Equal(t, "open", stats.State)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	breaker := NewBreaker(testConfig())
	for i := 0; i < 3; i++ {
		_ = breaker.Call(context.Background(), func(ctx context.Context) error { return errUpstream })
	}
	require.Equal(t, "open", breaker.State())

	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, "half-open", breaker.State())

	err := breaker.Call(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", breaker.State())
}

func TestBreaker_BenignErrorsDoNotTrip(t *testing.T) {
	errNoData := errors.New("no data")
	cfg := testConfig()
	cfg.Benign = func(err error) bool { return errors.Is(err, errNoData) }
	breaker := NewBreaker(cfg)

	for i := 0; i < 10; i++ {
		err := breaker.Call(context.Background(), func(ctx context.Context) error { return errNoData })
		assert.ErrorIs(t, err, errNoData)
	}
	assert.Equal(t, "closed", breaker.State())
}

func TestBreaker_RequestTimeout(t *testing.T) {
	breaker := NewBreaker(testConfig())

	err := breaker.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
