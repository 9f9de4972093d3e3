package market

import (
	"errors"
	"fmt"
)

var (
	// ErrQuotaExceeded is returned when the data provider answers HTTP 429
	ErrQuotaExceeded = errors.New("RapidAPI quota exceeded (HTTP 429)")
	// ErrNoData is returned when the provider response carries no usable payload
	ErrNoData = errors.New("no data returned")
	// ErrInvalidTicker is returned for symbols that cannot be looked up
	ErrInvalidTicker = errors.New("invalid ticker symbol")
	// ErrInvalidPeriod is returned for history periods the provider does not support
	ErrInvalidPeriod = errors.New("invalid history period")
)

// FetchError describes a failed provider lookup for a ticker
type FetchError struct {
	Op     string // "history" or "quote"
	Ticker string
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case errors.Is(e.Err, ErrNoData) && e.Op == "history":
		return fmt.Sprintf("no price data returned for %q, check symbol or period", e.Ticker)
	case errors.Is(e.Err, ErrNoData):
		return fmt.Sprintf("no fundamentals returned for %q", e.Ticker)
	case errors.Is(e.Err, ErrQuotaExceeded):
		return e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
