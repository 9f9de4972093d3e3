// Package http holds the JSON contracts served by the API.
package http

import (
	"time"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/circuit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/ratelimit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                   `json:"status"` // healthy, degraded
	Timestamp  time.Time                `json:"timestamp"`
	Uptime     string                   `json:"uptime"`
	Version    string                   `json:"version"`
	Backend    string                   `json:"llm_backend"`
	Cache      cache.Stats              `json:"cache"`
	Circuits   []circuit.Stats          `json:"circuits"`
	Budgets    []budget.Stats           `json:"budgets"`
	RateLimits []ratelimit.LimiterStats `json:"rate_limits"`
	Database   *persistence.HealthCheck `json:"database,omitempty"`
}

// FactResponse wraps a fun fact
type FactResponse struct {
	Fact      string    `json:"fact"`
	Timestamp time.Time `json:"timestamp"`
}

// ClearCacheResponse reports how many entries were dropped
type ClearCacheResponse struct {
	Cleared   int       `json:"cleared"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportsResponse lists archived reports
type ReportsResponse struct {
	Count   int                        `json:"count"`
	Reports []persistence.ReportRecord `json:"reports"`
}

// PopularResponse ranks tickers by archived lookups in a window
type PopularResponse struct {
	From    time.Time              `json:"from"`
	To      time.Time              `json:"to"`
	Tickers []insights.TickerCount `json:"tickers"`
}

// Watch message types
const (
	WatchQuote = "quote"
	WatchError = "error"
)

// WatchMessage is one frame on the quote watch stream
type WatchMessage struct {
	Type      string             `json:"type"`
	Ticker    string             `json:"ticker"`
	Quote     *insights.Snapshot `json:"quote,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}
