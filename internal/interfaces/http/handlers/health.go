package handlers

import (
	"net/http"
	"sort"
	"time"

	httpContracts "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/http"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/budget"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/circuit"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/net/ratelimit"
)

// Health handles GET /health. An open breaker, an exhausted budget or an
// unreachable archive mark the service degraded; rate limits are reported
// per upstream host.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := httpContracts.HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Version:    h.opts.Version,
		Backend:    h.svc.Backend(),
		Cache:      h.svc.CacheStats(),
		Circuits:   []circuit.Stats{},
		Budgets:    []budget.Stats{},
		RateLimits: []ratelimit.LimiterStats{},
	}

	for _, b := range h.opts.Breakers {
		if b == nil {
			continue
		}
		stats := b.Stats()
		if stats.State == "open" {
			resp.Status = "degraded"
		}
		resp.Circuits = append(resp.Circuits, stats)
	}
	for _, t := range h.opts.Budgets {
		if t == nil {
			continue
		}
		stats := t.Stats()
		if stats.IsExhausted {
			resp.Status = "degraded"
		}
		resp.Budgets = append(resp.Budgets, stats)
	}
	for _, l := range h.opts.Limiters {
		if l == nil {
			continue
		}
		for _, stats := range l.Stats() {
			resp.RateLimits = append(resp.RateLimits, stats)
		}
	}
	sort.Slice(resp.RateLimits, func(i, j int) bool {
		return resp.RateLimits[i].Host < resp.RateLimits[j].Host
	})
	if h.opts.Database != nil {
		check := h.opts.Database.Health(r.Context())
		if !check.Healthy {
			resp.Status = "degraded"
		}
		resp.Database = &check
	}

	h.writeJSON(w, http.StatusOK, resp)
}
