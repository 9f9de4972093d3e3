package rapidapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
)

type historyItem struct {
	Date    json.RawMessage `json:"date"`
	DateUTC *int64          `json:"date_utc"`
	Close   *float64        `json:"close"`
}

type historyEnvelope struct {
	Items json.RawMessage `json:"items"`
	Body  json.RawMessage `json:"body"`
}

var dateLayouts = []string{"2006-01-02", "02-01-2006", time.RFC3339}

func (it historyItem) time() (time.Time, bool) {
	if it.DateUTC != nil {
		return time.Unix(*it.DateUTC, 0).UTC(), true
	}
	raw := bytes.TrimSpace(it.Date)
	if len(raw) == 0 {
		return time.Time{}, false
	}
	if raw[0] != '"' {
		secs, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(int64(secs), 0).UTC(), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// decodeHistory accepts items as an array of rows or as an object keyed by
// timestamp. Rows without a usable date or close are skipped.
func decodeHistory(body []byte) ([]market.PricePoint, error) {
	var env historyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	items := bytes.TrimSpace(env.Items)
	if len(items) == 0 {
		items = bytes.TrimSpace(env.Body)
	}
	if len(items) == 0 || bytes.Equal(items, []byte("null")) {
		return nil, market.ErrNoData
	}

	var rows []historyItem
	switch items[0] {
	case '[':
		if err := json.Unmarshal(items, &rows); err != nil {
			return nil, fmt.Errorf("decode history items: %w", err)
		}
	case '{':
		var keyed map[string]historyItem
		if err := json.Unmarshal(items, &keyed); err != nil {
			return nil, fmt.Errorf("decode history items: %w", err)
		}
		for _, r := range keyed {
			rows = append(rows, r)
		}
	default:
		return nil, market.ErrNoData
	}

	points := make([]market.PricePoint, 0, len(rows))
	for _, r := range rows {
		ts, ok := r.time()
		if !ok || r.Close == nil {
			continue
		}
		points = append(points, market.PricePoint{Date: ts, Close: *r.Close})
	}
	if len(points) == 0 {
		return nil, market.ErrNoData
	}
	return points, nil
}

// decodeQuote accepts the modules at the top level or under "body"
func decodeQuote(body []byte) (*market.Quote, error) {
	var env struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if b := bytes.TrimSpace(env.Body); len(b) > 0 && b[0] == '{' {
		body = b
	}

	var q market.Quote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if q.Price == nil {
		return nil, market.ErrNoData
	}
	return &q, nil
}
