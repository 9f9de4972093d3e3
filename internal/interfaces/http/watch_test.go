package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	httpContracts "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/http"
)

func dialWatch(t *testing.T, ts *httptest.Server, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestWatch_StreamsRefreshedQuotes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, src := newTestServer(t, 20*time.Millisecond)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialWatch(t, ts, "/api/v1/watch/aapl")
	require.NoError(t, err)

	var first, second httpContracts.WatchMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, httpContracts.WatchQuote, first.Type)
	assert.Equal(t, "AAPL", first.Ticker)
	require.NotNil(t, first.Quote)
	require.NotNil(t, second.Quote)
	assert.Greater(t, *second.Quote.Price, *first.Quote.Price, "refresh bypasses the cache")
	assert.GreaterOrEqual(t, src.quotes.Load(), int32(2))

	require.NoError(t, conn.Close())
}

func TestWatch_ErrorFrames(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _ := newTestServer(t, time.Hour)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialWatch(t, ts, "/api/v1/watch/LIMIT")
	require.NoError(t, err)

	var msg httpContracts.WatchMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, httpContracts.WatchError, msg.Type)
	assert.Contains(t, msg.Error, "quota exceeded")
	assert.Nil(t, msg.Quote)

	require.NoError(t, conn.Close())
}

func TestWatch_ShutdownClosesStreams(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, _ := newTestServer(t, time.Hour)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := dialWatch(t, ts, "/api/v1/watch/AAPL")
	require.NoError(t, err)
	defer conn.Close()

	var msg httpContracts.WatchMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))

	s.handlers.Close()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestWatch_RejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t, time.Minute)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	_, resp, err := dialWatch(t, ts, "/api/v1/watch/bad%20ticker!")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = dialWatch(t, ts, "/api/v1/watch/AAPL?interval=10ms")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
