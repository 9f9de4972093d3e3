package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrap: %w", market.ErrInvalidTicker), http.StatusBadRequest, "invalid_ticker"},
		{&market.FetchError{Op: "quote", Ticker: "X", Err: market.ErrNoData}, http.StatusNotFound, "no_data"},
		{&budget.BudgetExhaustedError{Provider: "openai", Used: 10, Limit: 10}, http.StatusTooManyRequests, "quota_exceeded"},
		{fmt.Errorf("%w: since is after until", persistence.ErrInvalidRange), http.StatusBadRequest, "invalid_range"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{errors.New("connection reset"), http.StatusBadGateway, "upstream_error"},
	}
	for _, tt := range tests {
		status, code := Classify(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestLocalOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "http://127.0.0.1:8080/api/v1/watch/AAPL", nil)
	assert.True(t, localOrigin(req))

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, localOrigin(req))

	req.Header.Set("Origin", "http://127.0.0.1:8080")
	assert.True(t, localOrigin(req))

	req.Header.Set("Origin", "https://example.com")
	assert.False(t, localOrigin(req))
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "unknown", RequestID(context.Background()))
	ctx := context.WithValue(context.Background(), RequestIDKey, "abcd1234")
	assert.Equal(t, "abcd1234", RequestID(ctx))
}
