package advisor

import (
	"fmt"
	"strings"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
)

func explainPrompt(ticker string, metrics market.KeyMetrics) string {
	lines := make([]string, len(metrics))
	for i, m := range metrics {
		lines[i] = fmt.Sprintf("- %s: %s", m.Name, m.Value)
	}
	return fmt.Sprintf("A user has looked up the stock %s. Here are some key metrics:\n%s\n\n"+
		"Please explain each term and its value in simple terms suitable for someone new to investing.",
		ticker, strings.Join(lines, "\n"))
}

func summaryPrompt(ticker string, recent []market.RecentPrice) string {
	return fmt.Sprintf("Based on recent stock data for %s, summarize the short-term price trend "+
		"and potential risks in no more than 2–3 beginner-friendly sentences.\n\n%s",
		ticker, market.FormatRecent(recent))
}

func sentimentPrompt(ticker string, recent []market.RecentPrice) string {
	return fmt.Sprintf("A beginner investor is considering buying %s. Recent price data:\n%s\n"+
		"Give a short 2-3 sentence reaction summarizing appeal, risk, and outlook in a casual tone.",
		ticker, market.FormatRecent(recent))
}

const factPrompt = "Give me one short, surprising, or educational stock-market fact a beginner might not know. " +
	"Make it fun and easy to remember."
