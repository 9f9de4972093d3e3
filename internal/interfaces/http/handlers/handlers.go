package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	httpContracts "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/http"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/circuit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/ratelimit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

// Service is the application surface the handlers expose
type Service interface {
	Insights(ctx context.Context, ticker, period string) (*insights.Report, error)
	Quote(ctx context.Context, ticker string) (*insights.Snapshot, error)
	Refresh(ctx context.Context, ticker string) (*insights.Snapshot, error)
	History(ctx context.Context, ticker, period string) (*market.History, error)
	Fact(ctx context.Context) (string, error)
	ClearCache(ctx context.Context) (int, error)
	CacheStats() cache.Stats
	Reports(ctx context.Context, limit int) ([]persistence.ReportRecord, error)
	ReportsBetween(ctx context.Context, tr persistence.TimeRange) ([]persistence.ReportRecord, error)
	LatestReport(ctx context.Context, ticker string) (*persistence.ReportRecord, error)
	PopularTickers(ctx context.Context, tr persistence.TimeRange, limit int) ([]insights.TickerCount, error)
	Backend() string
}

// Options carries the optional collaborators of Handlers
type Options struct {
	Version       string
	WatchInterval time.Duration
	Breakers      []*circuit.Breaker
	Budgets       []*budget.Tracker
	Limiters      []*ratelimit.Limiter
	Database      persistence.RepositoryHealth
	// OnWatch is told when a watch stream opens (+1) or closes (-1)
	OnWatch func(delta float64)
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	svc      Service
	opts     Options
	started  time.Time
	upgrader websocket.Upgrader

	quit     chan struct{}
	quitOnce sync.Once
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc Service, opts Options) *Handlers {
	if opts.WatchInterval <= 0 {
		opts.WatchInterval = time.Minute
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Handlers{
		svc:     svc,
		opts:    opts,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     localOrigin,
		},
		quit: make(chan struct{}),
	}
}

// Close ends every open watch stream
func (h *Handlers) Close() {
	h.quitOnce.Do(func() { close(h.quit) })
}

type ctxKey string

// RequestIDKey is the context key holding the request id
const RequestIDKey ctxKey = "request_id"

// RequestID returns the id assigned by the server middleware
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes standardized error response
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	h.writeJSON(w, status, httpContracts.ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      code,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

// writeServiceError maps a service error onto a status code
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	if status >= 500 {
		log.Warn().Err(err).Str("request_id", RequestID(r.Context())).Str("path", r.URL.Path).Msg("Request failed")
	}
	h.writeError(w, r, status, code, err.Error())
}

// Classify returns the HTTP status and error code for a service error
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, market.ErrInvalidTicker):
		return http.StatusBadRequest, "invalid_ticker"
	case errors.Is(err, market.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, persistence.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_range"
	case errors.Is(err, market.ErrNoData):
		return http.StatusNotFound, "no_data"
	case errors.Is(err, market.ErrQuotaExceeded), errors.Is(err, budget.ErrExhausted):
		return http.StatusTooManyRequests, "quota_exceeded"
	case errors.Is(err, circuit.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "provider_unavailable"
	case errors.Is(err, persistence.ErrDisabled):
		return http.StatusServiceUnavailable, "archive_disabled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusBadGateway, "upstream_error"
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "endpoint_not_found",
		"The requested endpoint does not exist")
}
