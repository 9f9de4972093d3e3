package market

// NotAvailable is shown for any metric the quote does not carry
const NotAvailable = "N/A"

// Metric names, in display order
const (
	MetricPreviousClose  = "Previous Close"
	MetricOpen           = "Open"
	MetricBid            = "Bid"
	MetricDaysRange      = "Day's Range"
	MetricAverageVolume  = "Average Volume"
	MetricMarketCap      = "Market Cap"
	MetricEarningsDate   = "Earnings Date"
	MetricTargetEstimate = "1-Year Target Estimate"
)

// Metric is one named key figure
type Metric struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// KeyMetrics is the ordered list of figures shown to the user
type KeyMetrics []Metric

// Get returns the value for name
func (k KeyMetrics) Get(name string) (string, bool) {
	for _, m := range k {
		if m.Name == name {
			return m.Value, true
		}
	}
	return "", false
}

// ExtractKeyMetrics maps a quote onto the eight beginner metrics
func ExtractKeyMetrics(q *Quote) KeyMetrics {
	var price PriceModule
	if q != nil && q.Price != nil {
		price = *q.Price
	}
	var summary SummaryDetail
	var calendar Earnings
	var target Value
	if q != nil {
		summary = q.SummaryDetail
		calendar = q.CalendarEvents.Earnings
		target = q.FinancialData.TargetMeanPrice
	}

	earnings := NotAvailable
	if len(calendar.EarningsDate) > 0 {
		earnings = calendar.EarningsDate[0].FmtString()
	}

	return KeyMetrics{
		{MetricPreviousClose, price.RegularMarketPreviousClose.RawString()},
		{MetricOpen, price.RegularMarketOpen.RawString()},
		{MetricBid, summary.Bid.RawString()},
		{MetricDaysRange, summary.DayLow.RawString() + " – " + summary.DayHigh.RawString()},
		{MetricAverageVolume, summary.AverageVolume.RawString()},
		{MetricMarketCap, summary.MarketCap.FmtString()},
		{MetricEarningsDate, earnings},
		{MetricTargetEstimate, target.RawString()},
	}
}
