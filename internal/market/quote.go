package market

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Value is the {raw, fmt} pair the quote API uses for every numeric field.
// Bare numbers and strings are accepted as well.
type Value struct {
	Raw *float64 `json:"raw,omitempty"`
	Fmt string   `json:"fmt,omitempty"`
}

// UnmarshalJSON accepts {"raw":1,"fmt":"1"}, {}, null, 1.5 or "1.5"
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '{':
		type plain Value
		var p plain
		if err := json.Unmarshal(b, &p); err != nil {
			return err
		}
		*v = Value(p)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v.Fmt = s
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			v.Raw = &f
		}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	v.Raw = &f
	v.Fmt = string(b)
	return nil
}

// RawString renders the raw number, or "N/A"
func (v Value) RawString() string {
	if v.Raw == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v.Raw, 'f', -1, 64)
}

// FmtString renders the provider formatted text, or "N/A"
func (v Value) FmtString() string {
	if v.Fmt == "" {
		return NotAvailable
	}
	return v.Fmt
}

// PriceModule is the "price" section of a quote
type PriceModule struct {
	ShortName                  string `json:"shortName,omitempty"`
	Currency                   string `json:"currency,omitempty"`
	RegularMarketPrice         Value  `json:"regularMarketPrice"`
	RegularMarketPreviousClose Value  `json:"regularMarketPreviousClose"`
	RegularMarketOpen          Value  `json:"regularMarketOpen"`
}

// SummaryDetail is the "summaryDetail" section of a quote
type SummaryDetail struct {
	Bid           Value `json:"bid"`
	DayLow        Value `json:"dayLow"`
	DayHigh       Value `json:"dayHigh"`
	AverageVolume Value `json:"averageVolume"`
	MarketCap     Value `json:"marketCap"`
}

// Earnings is calendarEvents.earnings
type Earnings struct {
	EarningsDate []Value `json:"earningsDate"`
}

// CalendarEvents is the "calendarEvents" section of a quote
type CalendarEvents struct {
	Earnings Earnings `json:"earnings"`
}

// FinancialData is the "financialData" section of a quote
type FinancialData struct {
	TargetMeanPrice Value `json:"targetMeanPrice"`
}

// Quote is the fundamentals document for one ticker
type Quote struct {
	Price          *PriceModule   `json:"price"`
	SummaryDetail  SummaryDetail  `json:"summaryDetail"`
	CalendarEvents CalendarEvents `json:"calendarEvents"`
	FinancialData  FinancialData  `json:"financialData"`
}
