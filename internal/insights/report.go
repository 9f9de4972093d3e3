package insights

import (
	"time"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

// Report is everything shown for one ticker lookup
type Report struct {
	ID          string               `json:"id"`
	Ticker      string               `json:"ticker"`
	Name        string               `json:"name,omitempty"`
	Currency    string               `json:"currency,omitempty"`
	Period      market.Period        `json:"period"`
	GeneratedAt time.Time            `json:"generated_at"`
	LastClose   *float64             `json:"last_close,omitempty"`
	History     *market.History      `json:"history"`
	Recent      []market.RecentPrice `json:"recent"`
	Metrics     market.KeyMetrics    `json:"metrics"`
	Explanation string               `json:"explanation"`
	Summary     string               `json:"summary"`
	Sentiment   string               `json:"sentiment"`
	Fact        string               `json:"fact,omitempty"`
	Backend     string               `json:"backend"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// Snapshot is the current quote for a ticker
type Snapshot struct {
	Ticker    string            `json:"ticker"`
	Name      string            `json:"name,omitempty"`
	Currency  string            `json:"currency,omitempty"`
	Price     *float64          `json:"price,omitempty"`
	Metrics   market.KeyMetrics `json:"metrics"`
	FetchedAt time.Time         `json:"fetched_at"`
}

func newSnapshot(ticker string, q *market.Quote, at time.Time) *Snapshot {
	s := &Snapshot{
		Ticker:    ticker,
		Metrics:   market.ExtractKeyMetrics(q),
		FetchedAt: at,
	}
	if q != nil && q.Price != nil {
		s.Name = q.Price.ShortName
		s.Currency = q.Price.Currency
		s.Price = q.Price.RegularMarketPrice.Raw
	}
	return s
}

// record flattens a report for the archive
func (r *Report) record() persistence.ReportRecord {
	metrics := make(map[string]string, len(r.Metrics))
	for _, m := range r.Metrics {
		metrics[m.Name] = m.Value
	}
	return persistence.ReportRecord{
		ID:          r.ID,
		Ticker:      r.Ticker,
		Period:      string(r.Period),
		GeneratedAt: r.GeneratedAt,
		LastClose:   r.LastClose,
		Metrics:     metrics,
		Summary:     r.Summary,
		Explanation: r.Explanation,
		Sentiment:   r.Sentiment,
		Backend:     r.Backend,
	}
}

// TickerCount is how often a ticker was looked up
type TickerCount struct {
	Ticker  string `json:"ticker"`
	Lookups int64  `json:"lookups"`
}
