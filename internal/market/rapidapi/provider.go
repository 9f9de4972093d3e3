// Package rapidapi fetches price history and fundamentals from the
// yahoo-finance15 API on RapidAPI.
package rapidapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/client"
)

// Defaults for the public endpoint
const (
	DefaultHost    = "yahoo-finance15.p.rapidapi.com"
	DefaultBaseURL = "https://" + DefaultHost
)

// Config identifies the RapidAPI subscription
type Config struct {
	BaseURL string
	Host    string
	APIKey  string
}

// Provider implements market.Source
type Provider struct {
	baseURL string
	host    string
	apiKey  string
	pool    *client.Pool
}

var _ market.Source = (*Provider)(nil)

// New creates a provider sending requests through pool
func New(cfg Config, pool *client.Pool) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("rapidapi: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		host:    cfg.Host,
		apiKey:  cfg.APIKey,
		pool:    pool,
	}, nil
}

// History calls /api/v2/historical/{ticker}
func (p *Provider) History(ctx context.Context, ticker string, period market.Period) (*market.History, error) {
	endpoint := fmt.Sprintf("%s/api/v2/historical/%s?%s", p.baseURL, url.PathEscape(ticker),
		url.Values{"period": {string(period)}}.Encode())

	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, &market.FetchError{Op: "history", Ticker: ticker, Err: err}
	}

	points, err := decodeHistory(body)
	if err != nil {
		return nil, &market.FetchError{Op: "history", Ticker: ticker, Err: err}
	}

	h := &market.History{Ticker: ticker, Period: period, Points: points}
	h.Sort()
	return h, nil
}

// Quote calls /api/v2/quote/{ticker}
func (p *Provider) Quote(ctx context.Context, ticker string) (*market.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/v2/quote/%s", p.baseURL, url.PathEscape(ticker))

	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, &market.FetchError{Op: "quote", Ticker: ticker, Err: err}
	}

	q, err := decodeQuote(body)
	if err != nil {
		return nil, &market.FetchError{Op: "quote", Ticker: ticker, Err: err}
	}
	return q, nil
}

func (p *Provider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", p.apiKey)
	req.Header.Set("X-RapidAPI-Host", p.host)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.pool.Do(ctx, req)
	if err != nil {
		return nil, classify(err)
	}

	log.Debug().
		Str("url", req.URL.Path).
		Int("bytes", len(resp.Body)).
		Dur("duration", time.Since(start)).
		Msg("RapidAPI request completed")
	return resp.Body, nil
}

func classify(err error) error {
	var statusErr *client.StatusError
	switch {
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests:
		return market.ErrQuotaExceeded
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound:
		return market.ErrNoData
	case errors.Is(err, budget.ErrExhausted):
		return fmt.Errorf("%w: %v", market.ErrQuotaExceeded, err)
	}
	return err
}

// IsBenign marks errors that say nothing about the upstream's health
func IsBenign(err error) bool {
	return client.IsClientError(err) ||
		errors.Is(err, market.ErrNoData) ||
		errors.Is(err, market.ErrQuotaExceeded)
}
