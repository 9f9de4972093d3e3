package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDisabled is returned by callers when no database is configured
	ErrDisabled = errors.New("report archive is disabled")
	// ErrInvalidRange is returned for unparseable or inverted time windows
	ErrInvalidRange = errors.New("invalid time range")
)

// TimeRange represents a time window for queries
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// DefaultWindow is the lookback used when a range has no start
const DefaultWindow = 7 * 24 * time.Hour

// ParseTimeRange builds a window from RFC 3339 timestamps or YYYY-MM-DD
// dates. An empty since means DefaultWindow before the end, an empty until
// means now, and a date-only until covers that whole day.
func ParseTimeRange(since, until string, now time.Time) (TimeRange, error) {
	tr := TimeRange{To: now.UTC()}
	if until != "" {
		ts, dateOnly, err := parseBound(until)
		if err != nil {
			return TimeRange{}, fmt.Errorf("%w: until: %v", ErrInvalidRange, err)
		}
		if dateOnly {
			ts = ts.Add(24*time.Hour - time.Nanosecond)
		}
		tr.To = ts
	}

	tr.From = tr.To.Add(-DefaultWindow)
	if since != "" {
		ts, _, err := parseBound(since)
		if err != nil {
			return TimeRange{}, fmt.Errorf("%w: since: %v", ErrInvalidRange, err)
		}
		tr.From = ts
	}

	if tr.From.After(tr.To) {
		return TimeRange{}, fmt.Errorf("%w: since is after until", ErrInvalidRange)
	}
	return tr, nil
}

func parseBound(s string) (time.Time, bool, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), false, nil
	}
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	return ts, true, nil
}

// ReportRecord is an archived insights report
type ReportRecord struct {
	ID          string            `json:"id" db:"id"`
	Ticker      string            `json:"ticker" db:"ticker"`
	Period      string            `json:"period" db:"period"`
	GeneratedAt time.Time         `json:"generated_at" db:"generated_at"`
	LastClose   *float64          `json:"last_close,omitempty" db:"last_close"`
	Metrics     map[string]string `json:"metrics" db:"metrics"`
	Summary     string            `json:"summary" db:"summary"`
	Explanation string            `json:"explanation" db:"explanation"`
	Sentiment   string            `json:"sentiment" db:"sentiment"`
	Backend     string            `json:"backend" db:"backend"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// ReportRepo archives generated reports so past lookups can be revisited
type ReportRepo interface {
	// Insert stores a report; inserting an existing ID is a no-op
	Insert(ctx context.Context, report ReportRecord) error

	// Latest returns the newest report for ticker, or nil if none exist
	Latest(ctx context.Context, ticker string) (*ReportRecord, error)

	// ListRecent returns the newest reports across all tickers
	ListRecent(ctx context.Context, limit int) ([]ReportRecord, error)

	// ListRange returns reports generated within the window, newest first
	ListRange(ctx context.Context, tr TimeRange) ([]ReportRecord, error)

	// CountByTicker returns how often each ticker was looked up in the window
	CountByTicker(ctx context.Context, tr TimeRange) (map[string]int64, error)
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Reports ReportRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool,omitempty"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
