// Package insights assembles stock reports from market data and LLM answers.
package insights

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/advisor"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

// ReportFunc is called after every report attempt
type ReportFunc func(ticker string, err error)

// Service answers ticker lookups
type Service struct {
	source   market.Source
	loader   *cache.Loader
	advisor  *advisor.Advisor
	reports  persistence.ReportRepo
	onReport ReportFunc
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithArchive stores every generated report in repo
func WithArchive(repo persistence.ReportRepo) Option {
	return func(s *Service) { s.reports = repo }
}

// WithReportHook registers a callback for generated reports
func WithReportHook(fn ReportFunc) Option {
	return func(s *Service) { s.onReport = fn }
}

// NewService wires a service from its collaborators
func NewService(source market.Source, loader *cache.Loader, adv *advisor.Advisor, opts ...Option) *Service {
	s := &Service{
		source:  source,
		loader:  loader,
		advisor: adv,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend names the LLM used for answers
func (s *Service) Backend() string {
	return s.advisor.Backend()
}

// Insights builds the full report for ticker. Market data failures abort the
// report; LLM failures are reported as warnings with the answer left empty.
func (s *Service) Insights(ctx context.Context, rawTicker, rawPeriod string) (report *Report, err error) {
	ticker, err := market.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	period, err := market.ParsePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}
	defer func() {
		if s.onReport != nil {
			s.onReport(ticker, err)
		}
	}()

	start := time.Now()
	var (
		history *market.History
		quote   *market.Quote
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		history, err = s.history(gctx, ticker, period)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = s.quote(gctx, ticker)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Str("period", string(period)).Msg("Market data fetch failed")
		return nil, err
	}

	snap := newSnapshot(ticker, quote, s.now())
	report = &Report{
		ID:          uuid.New().String(),
		Ticker:      ticker,
		Name:        snap.Name,
		Currency:    snap.Currency,
		Period:      period,
		GeneratedAt: s.now().UTC(),
		History:     history,
		Recent:      market.RecentPrices(history, market.RecentRows),
		Metrics:     snap.Metrics,
		Backend:     s.advisor.Backend(),
	}
	if n := len(history.Points); n > 0 {
		last := history.Points[n-1].Close
		report.LastClose = &last
	}

	s.answer(ctx, report)

	log.Info().
		Str("ticker", ticker).
		Str("period", string(period)).
		Str("report_id", report.ID).
		Int("warnings", len(report.Warnings)).
		Dur("duration", time.Since(start)).
		Msg("Insights report generated")

	s.archive(ctx, report)
	return report, nil
}

// answer fills the LLM sections and the fun fact concurrently
func (s *Service) answer(ctx context.Context, report *Report) {
	type slot struct {
		label string
		dst   *string
		fn    func(context.Context) (string, error)
	}
	slots := []slot{
		{"explanation", &report.Explanation, func(ctx context.Context) (string, error) {
			return s.advisor.ExplainMetrics(ctx, report.Ticker, report.Metrics)
		}},
		{"summary", &report.Summary, func(ctx context.Context) (string, error) {
			return s.advisor.SummarizeTrend(ctx, report.Ticker, report.History)
		}},
		{"sentiment", &report.Sentiment, func(ctx context.Context) (string, error) {
			return s.advisor.Sentiment(ctx, report.Ticker, report.History)
		}},
		{"fact", &report.Fact, s.advisor.RandomFact},
	}

	errs := make([]error, len(slots))
	var wg sync.WaitGroup
	for i, sl := range slots {
		wg.Add(1)
		go func(i int, sl slot) {
			defer wg.Done()
			answer, err := sl.fn(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			*sl.dst = answer
		}(i, sl)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s unavailable: %v", slots[i].label, err))
		}
	}
}

func (s *Service) archive(ctx context.Context, report *Report) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Insert(ctx, report.record()); err != nil {
		log.Warn().Err(err).Str("report_id", report.ID).Msg("Failed to archive report")
	}
}

func (s *Service) history(ctx context.Context, ticker string, period market.Period) (*market.History, error) {
	key := fmt.Sprintf("history:%s:%s", ticker, period)
	return cache.GetOrLoad(ctx, s.loader, key, cache.HistoryTTL, func(ctx context.Context) (*market.History, error) {
		return s.source.History(ctx, ticker, period)
	})
}

func (s *Service) quote(ctx context.Context, ticker string) (*market.Quote, error) {
	return cache.GetOrLoad(ctx, s.loader, "quote:"+ticker, cache.QuoteTTL, func(ctx context.Context) (*market.Quote, error) {
		return s.source.Quote(ctx, ticker)
	})
}

// History returns the cached closing prices for ticker
func (s *Service) History(ctx context.Context, rawTicker, rawPeriod string) (*market.History, error) {
	ticker, err := market.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	period, err := market.ParsePeriod(rawPeriod)
	if err != nil {
		return nil, err
	}
	return s.history(ctx, ticker, period)
}

// Quote returns the cached key metrics for ticker
func (s *Service) Quote(ctx context.Context, rawTicker string) (*Snapshot, error) {
	ticker, err := market.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	q, err := s.quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return newSnapshot(ticker, q, s.now()), nil
}

// Refresh fetches the quote from the provider, bypassing and then
// replacing the cached copy
func (s *Service) Refresh(ctx context.Context, rawTicker string) (*Snapshot, error) {
	ticker, err := market.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	key := "quote:" + ticker
	if err := s.loader.Cache().Delete(ctx, key); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Cache delete failed")
	}
	q, err := s.quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return newSnapshot(ticker, q, s.now()), nil
}

// Fact returns a fun stock-market fact
func (s *Service) Fact(ctx context.Context) (string, error) {
	return s.advisor.RandomFact(ctx)
}

// ClearCache drops every cached price, quote and answer
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	n, err := s.loader.Cache().Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	log.Info().Int("entries", n).Msg("Cache cleared")
	return n, nil
}

// CacheStats reports cache counters
func (s *Service) CacheStats() cache.Stats {
	return s.loader.Cache().Stats()
}

// Reports lists archived reports, newest first
func (s *Service) Reports(ctx context.Context, limit int) ([]persistence.ReportRecord, error) {
	if s.reports == nil {
		return nil, persistence.ErrDisabled
	}
	return s.reports.ListRecent(ctx, limit)
}

// LatestReport returns the newest archived report for ticker
func (s *Service) LatestReport(ctx context.Context, rawTicker string) (*persistence.ReportRecord, error) {
	if s.reports == nil {
		return nil, persistence.ErrDisabled
	}
	ticker, err := market.NormalizeTicker(rawTicker)
	if err != nil {
		return nil, err
	}
	return s.reports.Latest(ctx, ticker)
}

// ReportsBetween lists archived reports generated inside tr, newest first
func (s *Service) ReportsBetween(ctx context.Context, tr persistence.TimeRange) ([]persistence.ReportRecord, error) {
	if s.reports == nil {
		return nil, persistence.ErrDisabled
	}
	if tr.From.After(tr.To) {
		return nil, persistence.ErrInvalidRange
	}
	return s.reports.ListRange(ctx, tr)
}

// PopularTickers ranks tickers by archived lookups inside tr. A limit of
// zero or less returns every ticker.
func (s *Service) PopularTickers(ctx context.Context, tr persistence.TimeRange, limit int) ([]TickerCount, error) {
	if s.reports == nil {
		return nil, persistence.ErrDisabled
	}
	if tr.From.After(tr.To) {
		return nil, persistence.ErrInvalidRange
	}
	counts, err := s.reports.CountByTicker(ctx, tr)
	if err != nil {
		return nil, err
	}

	ranked := make([]TickerCount, 0, len(counts))
	for ticker, n := range counts {
		ranked = append(ranked, TickerCount{Ticker: ticker, Lookups: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Lookups != ranked[j].Lookups {
			return ranked[i].Lookups > ranked[j].Lookups
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
