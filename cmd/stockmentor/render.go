package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	bestStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	worstStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// renderer prints results as styled text on a terminal, plain text when
// piped, or JSON on request
type renderer struct {
	out   io.Writer
	tty   bool
	json  bool
	width int
}

func newRenderer(out io.Writer, jsonOut bool) *renderer {
	r := &renderer{out: out, json: jsonOut, width: 80}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			r.width = w
		}
	}
	return r
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.tty {
		return text
	}
	return s.Render(text)
}

func (r *renderer) heading(text string) {
	fmt.Fprintf(r.out, "\n%s\n", r.style(headingStyle, text))
}

func (r *renderer) markdown(md string) string {
	if !r.tty || md == "" {
		return md
	}
	tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(r.width-4))
	if err != nil {
		return md
	}
	out, err := tr.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func (r *renderer) writeJSON(v interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *renderer) report(rep *insights.Report) error {
	if r.json {
		return r.writeJSON(rep)
	}

	title := rep.Ticker
	if rep.Name != "" {
		title = fmt.Sprintf("%s (%s)", rep.Name, rep.Ticker)
	}
	fmt.Fprintln(r.out, r.style(titleStyle, title))

	closes := rep.History.Closes()
	r.heading(fmt.Sprintf("Price chart, %s", rep.Period))
	fmt.Fprintln(r.out, sparkline(closes, r.width-2))
	if n := len(closes); n > 0 {
		fmt.Fprintf(r.out, "%s %.2f   %s %.2f   %s %.2f\n",
			r.style(labelStyle, "low"), minOf(closes),
			r.style(labelStyle, "high"), maxOf(closes),
			r.style(labelStyle, "last"), closes[n-1])
	}

	r.metrics(rep.Metrics)

	r.heading("What these numbers mean")
	fmt.Fprintln(r.out, r.markdown(rep.Explanation))

	r.heading("Recent prices")
	r.recent(rep.Recent)

	r.heading("AI summary")
	fmt.Fprintln(r.out, rep.Summary)

	r.heading("Should I buy?")
	fmt.Fprintln(r.out, rep.Sentiment)

	if rep.Fact != "" {
		r.heading("Did you know?")
		fmt.Fprintln(r.out, rep.Fact)
	}

	for _, w := range rep.Warnings {
		fmt.Fprintln(r.out, r.style(warnStyle, "warning: "+w))
	}
	fmt.Fprintf(r.out, "\n%s\n", r.style(labelStyle, fmt.Sprintf("report %s, answers by %s", rep.ID, rep.Backend)))
	return nil
}

func (r *renderer) metrics(km market.KeyMetrics) {
	r.heading("Key metrics")
	for _, m := range km {
		fmt.Fprintf(r.out, "%-24s %s\n", r.style(labelStyle, m.Name), m.Value)
	}
}

func (r *renderer) recent(rows []market.RecentPrice) {
	fmt.Fprintf(r.out, "%-10s  %10s  %14s\n", "Date", "Close", "Daily Change %")
	for _, row := range rows {
		line := fmt.Sprintf("%-10s  %10.2f  %14.2f", row.Date.Format("2006-01-02"), row.Close, row.DailyChangePct)
		switch {
		case row.Best:
			line = r.style(bestStyle, line) + "  best"
		case row.Worst:
			line = r.style(worstStyle, line) + "  worst"
		}
		fmt.Fprintln(r.out, line)
	}
}

func (r *renderer) snapshot(s *insights.Snapshot) error {
	if r.json {
		return r.writeJSON(s)
	}
	title := s.Ticker
	if s.Name != "" {
		title = fmt.Sprintf("%s (%s)", s.Name, s.Ticker)
	}
	fmt.Fprintln(r.out, r.style(titleStyle, title))
	if s.Price != nil {
		fmt.Fprintf(r.out, "%s %.2f %s\n", r.style(labelStyle, "price"), *s.Price, s.Currency)
	}
	r.metrics(s.Metrics)
	return nil
}

func (r *renderer) fact(fact string) error {
	if r.json {
		return r.writeJSON(map[string]string{"fact": fact})
	}
	fmt.Fprintf(r.out, "%s %s\n", r.style(titleStyle, "Fun fact:"), fact)
	return nil
}

func (r *renderer) cleared(n int) error {
	if r.json {
		return r.writeJSON(map[string]int{"cleared": n})
	}
	fmt.Fprintf(r.out, "Cache cleared (%d entries)\n", n)
	return nil
}

func (r *renderer) reports(recs []persistence.ReportRecord) error {
	if r.json {
		if recs == nil {
			recs = []persistence.ReportRecord{}
		}
		return r.writeJSON(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(r.out, "No archived reports")
		return nil
	}
	fmt.Fprintf(r.out, "%-20s  %-8s  %-5s  %10s  %s\n", "Generated", "Ticker", "Period", "Last", "ID")
	for _, rec := range recs {
		last := market.NotAvailable
		if rec.LastClose != nil {
			last = fmt.Sprintf("%.2f", *rec.LastClose)
		}
		fmt.Fprintf(r.out, "%-20s  %-8s  %-5s  %10s  %s\n",
			rec.GeneratedAt.Format("2006-01-02 15:04"), rec.Ticker, rec.Period, last, rec.ID)
	}
	return nil
}

// archived prints one stored report
func (r *renderer) archived(rec *persistence.ReportRecord) error {
	if r.json {
		return r.writeJSON(rec)
	}
	fmt.Fprintln(r.out, r.style(titleStyle, fmt.Sprintf("%s, %s", rec.Ticker, rec.Period)))
	fmt.Fprintln(r.out, r.style(labelStyle, "generated "+rec.GeneratedAt.Format("2006-01-02 15:04")))
	if rec.LastClose != nil {
		fmt.Fprintf(r.out, "%s %.2f\n", r.style(labelStyle, "last"), *rec.LastClose)
	}

	if len(rec.Metrics) > 0 {
		r.heading("Key metrics")
		names := make([]string, 0, len(rec.Metrics))
		for name := range rec.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(r.out, "%-24s %s\n", r.style(labelStyle, name), rec.Metrics[name])
		}
	}
	if rec.Explanation != "" {
		r.heading("What these numbers mean")
		fmt.Fprintln(r.out, r.markdown(rec.Explanation))
	}
	r.heading("AI summary")
	fmt.Fprintln(r.out, rec.Summary)
	r.heading("Should I buy?")
	fmt.Fprintln(r.out, rec.Sentiment)

	fmt.Fprintf(r.out, "\n%s\n", r.style(labelStyle, fmt.Sprintf("report %s, answers by %s", rec.ID, rec.Backend)))
	return nil
}

// popular prints the most requested tickers in a window
func (r *renderer) popular(tr persistence.TimeRange, ranked []insights.TickerCount) error {
	if r.json {
		if ranked == nil {
			ranked = []insights.TickerCount{}
		}
		return r.writeJSON(map[string]interface{}{"from": tr.From, "to": tr.To, "tickers": ranked})
	}
	fmt.Fprintln(r.out, r.style(titleStyle, fmt.Sprintf("Most requested, %s to %s",
		tr.From.Format("2006-01-02"), tr.To.Format("2006-01-02"))))
	if len(ranked) == 0 {
		fmt.Fprintln(r.out, "No archived reports")
		return nil
	}
	for i, tc := range ranked {
		fmt.Fprintf(r.out, "%3d. %-8s %d\n", i+1, tc.Ticker, tc.Lookups)
	}
	return nil
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws values as block characters, sampling down to width
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	if len(values) > width {
		sampled := make([]float64, width)
		for i := range sampled {
			sampled[i] = values[i*(len(values)-1)/max(width-1, 1)]
		}
		values = sampled
	}

	lo, hi := minOf(values), maxOf(values)
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkBlocks)-1)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		m = math.Max(m, v)
	}
	return m
}
