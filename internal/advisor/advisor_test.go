package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/cache"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/llm"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
)

func testHistory() *market.History {
	base := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	h := &market.History{Ticker: "AAPL", Period: market.DefaultPeriod}
	for i, c := range []float64{220, 222.5, 219.1, 225, 226.4, 227} {
		h.Points = append(h.Points, market.PricePoint{Date: base.AddDate(0, 0, i), Close: c})
	}
	return h
}

func testMetrics() market.KeyMetrics {
	return market.KeyMetrics{
		{Name: market.MetricPreviousClose, Value: "189.84"},
		{Name: market.MetricMarketCap, Value: "2.95T"},
	}
}

func newAdvisor(backend llm.Client) *Advisor {
	return New(backend, cache.NewLoader(cache.NewMemory(100)))
}

func TestExplainMetrics(t *testing.T) {
	backend := llm.NewStatic().Answer("key metrics", "- Previous Close: yesterday's final price.\n- Market Cap: total value.")
	a := newAdvisor(backend)

	got, err := a.ExplainMetrics(context.Background(), "AAPL", testMetrics())
	require.NoError(t, err)
	assert.Equal(t, "- **Previous Close**: yesterday's final price.\n- **Market Cap**: total value.", got)

	prompts := backend.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "A user has looked up the stock AAPL")
	assert.Contains(t, prompts[0], "- Previous Close: 189.84\n- Market Cap: 2.95T")
	assert.Contains(t, prompts[0], "someone new to investing")

	// second call is served from cache
	_, err = a.ExplainMetrics(context.Background(), "AAPL", testMetrics())
	require.NoError(t, err)
	assert.Len(t, backend.Prompts(), 1)
}

func TestSummarizeTrend_IncludesRecentCloses(t *testing.T) {
	backend := llm.NewStatic().Answer("short-term price trend", "Mostly up.")
	a := newAdvisor(backend)

	got, err := a.SummarizeTrend(context.Background(), "AAPL", testHistory())
	require.NoError(t, err)
	assert.Equal(t, "Mostly up.", got)

	prompt := backend.Prompts()[0]
	assert.Contains(t, prompt, "Based on recent stock data for AAPL")
	assert.Contains(t, prompt, "227.00")
	assert.NotContains(t, prompt, "220.00", "only the last five closes are sent")
}

func TestSentiment_NotCached(t *testing.T) {
	backend := llm.NewStatic().Answer("considering buying", "Looks fun, but risky.")
	a := newAdvisor(backend)

	for i := 0; i < 2; i++ {
		got, err := a.Sentiment(context.Background(), "AAPL", testHistory())
		require.NoError(t, err)
		assert.Equal(t, "Looks fun, but risky.", got)
	}
	assert.Len(t, backend.Prompts(), 2)
	assert.True(t, strings.HasPrefix(backend.Prompts()[0], "A beginner investor is considering buying AAPL"))
}

func TestRandomFact_Cached(t *testing.T) {
	backend := llm.NewStatic().Answer("stock-market fact", "The NYSE dates back to 1792.")
	a := newAdvisor(backend)

	var observed []string
	a.OnCompletion(func(kind, name string, d time.Duration, err error) {
		observed = append(observed, kind+"/"+name)
	})

	for i := 0; i < 3; i++ {
		got, err := a.RandomFact(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "The NYSE dates back to 1792.", got)
	}
	assert.Equal(t, []string{"fact/static"}, observed)
}

type failingLLM struct{}

func (failingLLM) Complete(context.Context, string) (string, error) { return "", llm.ErrRateLimited }
func (failingLLM) Name() string                                    { return "failing" }

func TestErrorsPropagate(t *testing.T) {
	a := newAdvisor(failingLLM{})
	_, err := a.RandomFact(context.Background())
	assert.True(t, errors.Is(err, llm.ErrRateLimited))
	assert.Contains(t, err.Error(), "fact")
}

func TestBoldTerms(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"- Open: first trade", "- **Open**: first trade"},
		{"  - Day's Range: low – high", "  - **Day's Range**: low – high"},
		{"- **Bid**: already bold", "- **Bid**: already bold"},
		{"No list here: plain", "No list here: plain"},
		{"- A: 1\n- B: 2", "- **A**: 1\n- **B**: 2"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BoldTerms(tt.in))
	}
}
