// Package market holds the stock data model shared by providers, the
// advisor and the transports, plus the pure transforms applied to it.
package market

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Period is a history window understood by the data provider
type Period string

// DefaultPeriod is used when the caller does not name one
const DefaultPeriod Period = "1mo"

var validPeriods = map[Period]bool{
	"1d": true, "5d": true, "1mo": true, "3mo": true, "6mo": true,
	"1y": true, "2y": true, "5y": true, "10y": true, "ytd": true, "max": true,
}

// ParsePeriod validates a period string, returning DefaultPeriod for ""
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if !validPeriods[p] {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.\-=^]{0,11}$`)

// NormalizeTicker trims and upper-cases a user supplied symbol
func NormalizeTicker(s string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if !tickerPattern.MatchString(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, s)
	}
	return t, nil
}

// PricePoint is a single daily close
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// History is a close-price series ordered by date ascending
type History struct {
	Ticker string       `json:"ticker"`
	Period Period       `json:"period"`
	Points []PricePoint `json:"points"`
}

// Sort orders points by date ascending
func (h *History) Sort() {
	sort.SliceStable(h.Points, func(i, j int) bool {
		return h.Points[i].Date.Before(h.Points[j].Date)
	})
}

// Closes returns the close prices in order
func (h *History) Closes() []float64 {
	out := make([]float64, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Close
	}
	return out
}

// Tail returns the last n points (or all if fewer)
func (h *History) Tail(n int) []PricePoint {
	if n <= 0 {
		return nil
	}
	if n >= len(h.Points) {
		return h.Points
	}
	return h.Points[len(h.Points)-n:]
}

// Source fetches raw market data for a ticker
type Source interface {
	History(ctx context.Context, ticker string, period Period) (*History, error)
	Quote(ctx context.Context, ticker string) (*Quote, error)
}
