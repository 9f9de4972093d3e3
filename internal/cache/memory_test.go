package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10)

	_, ok, err := c.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "quote:AAPL", []byte("v1"), time.Minute))
	v, ok, err := c.Get(ctx, "quote:AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), v)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemory(10)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "history:AAPL:1mo", []byte("x"), HistoryTTL))
	now = now.Add(59 * time.Minute)
	_, ok, _ := c.Get(ctx, "history:AAPL:1mo")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "history:AAPL:1mo")
	assert.False(t, ok, "entry expires exactly at its TTL")
}

func TestMemory_EvictsSoonestExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)

	require.NoError(t, c.Set(ctx, "short", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "new", []byte("3"), time.Hour))

	_, ok, _ := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "long")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestMemory_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, c.Set(ctx, k, []byte(k), time.Hour))
	}

	require.NoError(t, c.Delete(ctx, "a"))
	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(0), c.Stats().Entries)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10)
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, time.Hour))
	buf[0] = 'z'

	v, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
	v[1] = 'z'
	v2, _, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(v2))
}
