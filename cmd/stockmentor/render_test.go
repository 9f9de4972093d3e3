package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

func TestSparkline(t *testing.T) {
	assert.Empty(t, sparkline(nil, 10))
	assert.Empty(t, sparkline([]float64{1, 2}, 0))

	assert.Equal(t, "▁█", sparkline([]float64{1, 2}, 10))
	assert.Equal(t, "▁▁▁", sparkline([]float64{5, 5, 5}, 10))
	assert.Equal(t, "▁▄█", sparkline([]float64{0, 50, 100}, 10))

	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i)
	}
	line := sparkline(values, 20)
	assert.Equal(t, 20, utf8.RuneCountInString(line))
	runes := []rune(line)
	assert.Equal(t, '▁', runes[0])
	assert.Equal(t, '█', runes[len(runes)-1])
}

func sampleReport() *insights.Report {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	history := &market.History{Ticker: "AAPL", Period: market.Period("1mo")}
	for i, c := range []float64{100, 102, 101, 105, 104, 106} {
		history.Points = append(history.Points, market.PricePoint{Date: day.AddDate(0, 0, i), Close: c})
	}
	last := 106.0
	return &insights.Report{
		ID:          "rep-1",
		Ticker:      "AAPL",
		Name:        "Apple Inc.",
		Period:      market.Period("1mo"),
		GeneratedAt: day,
		LastClose:   &last,
		History:     history,
		Recent:      market.RecentPrices(history, market.RecentRows),
		Metrics: market.KeyMetrics{
			{Name: "Previous Close", Value: "104"},
			{Name: "Market Cap", Value: "2.9T"},
		},
		Explanation: "- **Previous Close**: yesterday's last price",
		Summary:     "Prices drifted up.",
		Sentiment:   "Looks steady to me.",
		Fact:        "The NYSE started under a buttonwood tree.",
		Backend:     "static",
		Warnings:    []string{"sentiment unavailable: boom"},
	}
}

func TestRenderReportPlain(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	require.False(t, r.tty)

	require.NoError(t, r.report(sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "Apple Inc. (AAPL)")
	assert.Contains(t, out, "Price chart, 1mo")
	assert.Contains(t, out, "Previous Close")
	assert.Contains(t, out, "2.9T")
	assert.Contains(t, out, "- **Previous Close**: yesterday's last price")
	assert.Contains(t, out, "Prices drifted up.")
	assert.Contains(t, out, "Looks steady to me.")
	assert.Contains(t, out, "Did you know?")
	assert.Contains(t, out, "The NYSE started under a buttonwood tree.")
	assert.Contains(t, out, "warning: sentiment unavailable: boom")
	assert.Contains(t, out, "best")
	assert.Contains(t, out, "worst")
	assert.Contains(t, out, "2024-03-06")
	assert.Contains(t, out, "report rep-1, answers by static")
}

func TestRenderReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf, true).report(sampleReport()))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "AAPL", decoded["ticker"])
	assert.Equal(t, "rep-1", decoded["id"])
}

func TestRenderReportsList(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	require.NoError(t, r.reports(nil))
	assert.Contains(t, buf.String(), "No archived reports")

	buf.Reset()
	last := 187.5
	recs := []persistence.ReportRecord{
		{ID: "a", Ticker: "AAPL", Period: "1mo", GeneratedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), LastClose: &last},
		{ID: "b", Ticker: "MSFT", Period: "5d", GeneratedAt: time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)},
	}
	require.NoError(t, r.reports(recs))
	out := buf.String()
	assert.Contains(t, out, "187.50")
	assert.Contains(t, out, "MSFT")
	assert.Contains(t, out, market.NotAvailable)

	buf.Reset()
	require.NoError(t, newRenderer(&buf, true).reports(nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestRenderArchived(t *testing.T) {
	last := 187.5
	rec := &persistence.ReportRecord{
		ID:          "a",
		Ticker:      "AAPL",
		Period:      "1mo",
		GeneratedAt: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		LastClose:   &last,
		Metrics:     map[string]string{"Volume": "52M", "Market Cap": "2.9T"},
		Summary:     "Prices drifted up.",
		Sentiment:   "Looks steady to me.",
		Backend:     "openai",
	}

	var buf bytes.Buffer
	require.NoError(t, newRenderer(&buf, false).archived(rec))
	out := buf.String()
	assert.Contains(t, out, "AAPL, 1mo")
	assert.Contains(t, out, "generated 2024-03-01 09:30")
	assert.Contains(t, out, "187.50")
	assert.Less(t, strings.Index(out, "Market Cap"), strings.Index(out, "Volume"))
	assert.Contains(t, out, "Looks steady to me.")
	assert.Contains(t, out, "report a, answers by openai")

	buf.Reset()
	require.NoError(t, newRenderer(&buf, true).archived(rec))
	var decoded persistence.ReportRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2.9T", decoded.Metrics["Market Cap"])
}

func TestRenderPopular(t *testing.T) {
	tr := persistence.TimeRange{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	require.NoError(t, r.popular(tr, []insights.TickerCount{{Ticker: "AAPL", Lookups: 4}, {Ticker: "MSFT", Lookups: 1}}))
	out := buf.String()
	assert.Contains(t, out, "Most requested, 2024-03-01 to 2024-03-08")
	assert.Contains(t, out, "  1. AAPL     4")
	assert.Contains(t, out, "  2. MSFT     1")

	buf.Reset()
	require.NoError(t, r.popular(tr, nil))
	assert.Contains(t, buf.String(), "No archived reports")

	buf.Reset()
	require.NoError(t, newRenderer(&buf, true).popular(tr, nil))
	var decoded struct {
		Tickers []insights.TickerCount `json:"tickers"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.NotNil(t, decoded.Tickers)
	assert.Empty(t, decoded.Tickers)
}
