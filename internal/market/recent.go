package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RecentRows is how many trailing closes the recent table shows
const RecentRows = 5

// RecentPrice is one row of the recent price table
type RecentPrice struct {
	Date           time.Time `json:"date"`
	Close          float64   `json:"close"`
	DailyChangePct float64   `json:"daily_change_pct"`
	Best           bool      `json:"best,omitempty"`
	Worst          bool      `json:"worst,omitempty"`
}

// RecentPrices returns the last n closes with their day-over-day change.
// The change is computed inside the window, so the first row is always 0.
func RecentPrices(h *History, n int) []RecentPrice {
	tail := h.Tail(n)
	if len(tail) == 0 {
		return nil
	}

	rows := make([]RecentPrice, len(tail))
	best, worst := 0, 0
	for i, p := range tail {
		rows[i] = RecentPrice{Date: p.Date, Close: p.Close}
		if i > 0 && tail[i-1].Close != 0 {
			rows[i].DailyChangePct = round2((p.Close/tail[i-1].Close - 1) * 100)
		}
		if rows[i].DailyChangePct > rows[best].DailyChangePct {
			best = i
		}
		if rows[i].DailyChangePct < rows[worst].DailyChangePct {
			worst = i
		}
	}
	// a flat window has no best or worst day
	if rows[best].DailyChangePct > rows[worst].DailyChangePct {
		rows[best].Best = true
		rows[worst].Worst = true
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatRecent renders rows as a fixed-width text table
func FormatRecent(rows []RecentPrice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s  %10s  %14s\n", "Date", "Close", "Daily Change %")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-10s  %10.2f  %14.2f\n", r.Date.UTC().Format("2006-01-02"), r.Close, r.DailyChangePct)
	}
	return b.String()
}
