package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Close float64 `json:"close"`
}

func TestGetOrLoad_CachesResult(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(NewMemory(10))

	var lookups []bool
	loader.OnLookup(func(kind string, hit bool) {
		assert.Equal(t, "history", kind)
		lookups = append(lookups, hit)
	})

	calls := 0
	load := func(ctx context.Context) ([]point, error) {
		calls++
		return []point{{Close: 101.5}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrLoad(ctx, loader, "history:AAPL:1mo", time.Hour, load)
		require.NoError(t, err)
		assert.Equal(t, []point{{Close: 101.5}}, got)
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, []bool{false, true, true}, lookups)
}

func TestGetOrLoad_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(NewMemory(10))
	boom := errors.New("quota")

	calls := 0
	load := func(ctx context.Context) (string, error) {
		calls++
		return "", boom
	}

	_, err := GetOrLoad(ctx, loader, "quote:AAPL", time.Hour, load)
	assert.ErrorIs(t, err, boom)
	_, err = GetOrLoad(ctx, loader, "quote:AAPL", time.Hour, load)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestGetOrLoad_CollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(NewMemory(10))

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "fact", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := GetOrLoad(ctx, loader, "fact", time.Hour, load)
			assert.NoError(t, err)
			assert.Equal(t, "fact", got)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type failingCache struct{ *Memory }

func (f *failingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func TestGetOrLoad_DegradesOnCacheFailure(t *testing.T) {
	loader := NewLoader(&failingCache{Memory: NewMemory(10)})
	got, err := GetOrLoad(context.Background(), loader, "quote:AAPL", time.Hour, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestGetOrLoad_CancelledCallerDoesNotFailOthers(t *testing.T) {
	loader := NewLoader(NewMemory(10))

	var calls int32
	started := make(chan struct{})
	load := func(ctx context.Context) (float64, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
		}
		select {
		case <-time.After(200 * time.Millisecond):
			return 187.5, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := GetOrLoad(firstCtx, loader, "quote:AAPL", time.Hour, load)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   float64
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := GetOrLoad(context.Background(), loader, "quote:AAPL", time.Hour, load)
		second <- result{v, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 187.5, got.v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// the detached load still populated the cache
	cached, err := GetOrLoad(context.Background(), loader, "quote:AAPL", time.Hour, load)
	require.NoError(t, err)
	assert.Equal(t, 187.5, cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrLoad_DetachedLoadIsBounded(t *testing.T) {
	loader := NewLoader(NewMemory(10))
	loader.loadTimeout = 20 * time.Millisecond

	_, err := GetOrLoad(context.Background(), loader, "history:AAPL:1mo", time.Hour, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
