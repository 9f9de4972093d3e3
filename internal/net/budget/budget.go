// Package budget tracks the daily request allowance of a metered API such
// as a RapidAPI subscription, so the service stops calling before the
// provider starts answering 429.
package budget

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrExhausted is matched by BudgetExhaustedError via errors.Is
var ErrExhausted = errors.New("daily budget exhausted")

// BudgetExhaustedError provides detailed information about budget exhaustion
type BudgetExhaustedError struct {
	Provider string
	Used     int64
	Limit    int64
	ETA      time.Time
}

func (e *BudgetExhaustedError) Error() string {
	return fmt.Sprintf("budget exhausted for %s: %d/%d requests used, resets at %s",
		e.Provider, e.Used, e.Limit, e.ETA.Format("15:04 UTC"))
}

func (e *BudgetExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Tracker counts requests against a daily limit that resets at a UTC hour.
// A limit of zero or less disables tracking.
type Tracker struct {
	mu            sync.Mutex
	provider      string
	limit         int64
	used          int64
	resetHour     int
	warnThreshold float64
	lastReset     time.Time
	warned        bool
	now           func() time.Time
}

// NewTracker creates a new budget tracker
func NewTracker(provider string, limit int64, resetHour int, warnThreshold float64) *Tracker {
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	if warnThreshold <= 0 || warnThreshold > 1 {
		warnThreshold = 0.8
	}
	t := &Tracker{
		provider:      provider,
		limit:         limit,
		resetHour:     resetHour,
		warnThreshold: warnThreshold,
		now:           time.Now,
	}
	t.lastReset = lastResetTime(t.now().UTC(), resetHour)
	return t
}

func lastResetTime(now time.Time, resetHour int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), resetHour, 0, 0, 0, time.UTC)
	if now.Hour() >= resetHour {
		return today
	}
	return today.AddDate(0, 0, -1)
}

// rollover must be called with mu held
func (t *Tracker) rollover() {
	now := t.now().UTC()
	if !now.Before(t.lastReset.Add(24 * time.Hour)) {
		t.used = 0
		t.warned = false
		t.lastReset = lastResetTime(now, t.resetHour)
	}
}

// Consume records one request. It returns a *BudgetExhaustedError without
// counting the request when the limit is already reached. The second return
// value is true exactly once per day, when usage first crosses the warn threshold.
func (t *Tracker) Consume() (warn bool, err error) {
	if t == nil || t.limit <= 0 {
		return false, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	if t.used >= t.limit {
		return false, &BudgetExhaustedError{
			Provider: t.provider,
			Used:     t.used,
			Limit:    t.limit,
			ETA:      t.lastReset.Add(24 * time.Hour),
		}
	}
	t.used++

	if !t.warned && float64(t.used)/float64(t.limit) >= t.warnThreshold {
		t.warned = true
		return true, nil
	}
	return false, nil
}

// Stats returns current budget statistics
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	var utilization float64
	if t.limit > 0 {
		utilization = float64(t.used) / float64(t.limit)
	}
	return Stats{
		Provider:        t.provider,
		Limit:           t.limit,
		Used:            t.used,
		Remaining:       max64(t.limit-t.used, 0),
		UtilizationRate: utilization,
		NextReset:       t.lastReset.Add(24 * time.Hour),
		IsExhausted:     t.limit > 0 && t.used >= t.limit,
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Stats represents budget tracker statistics
type Stats struct {
	Provider        string    `json:"provider"`
	Limit           int64     `json:"limit"`
	Used            int64     `json:"used"`
	Remaining       int64     `json:"remaining"`
	UtilizationRate float64   `json:"utilization_rate"`
	NextReset       time.Time `json:"next_reset"`
	IsExhausted     bool      `json:"is_exhausted"`
}
