package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	httpContracts "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/http"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/persistence"
)

const maxReportsLimit = 100

// Insights handles GET /api/v1/insights/{ticker}?period=
func (h *Handlers) Insights(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Insights(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("period"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// Quote handles GET /api/v1/quote/{ticker}
func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Quote(r.Context(), mux.Vars(r)["ticker"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// History handles GET /api/v1/history/{ticker}?period=
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.History(r.Context(), mux.Vars(r)["ticker"], r.URL.Query().Get("period"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// Fact handles GET /api/v1/fact
func (h *Handlers) Fact(w http.ResponseWriter, r *http.Request) {
	fact, err := h.svc.Fact(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, httpContracts.FactResponse{Fact: fact, Timestamp: time.Now().UTC()})
}

// ClearCache handles POST /api/v1/cache/clear
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ClearCache(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, httpContracts.ClearCacheResponse{Cleared: n, Timestamp: time.Now().UTC()})
}

// Reports handles GET /api/v1/reports?limit=&since=&until=. Without a
// window the newest reports are listed.
func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, 20)
	if !ok {
		return
	}

	var (
		reports []persistence.ReportRecord
		err     error
	)
	q := r.URL.Query()
	if q.Get("since") != "" || q.Get("until") != "" {
		tr, rangeErr := persistence.ParseTimeRange(q.Get("since"), q.Get("until"), time.Now())
		if rangeErr != nil {
			h.writeServiceError(w, r, rangeErr)
			return
		}
		reports, err = h.svc.ReportsBetween(r.Context(), tr)
		if len(reports) > limit {
			reports = reports[:limit]
		}
	} else {
		reports, err = h.svc.Reports(r.Context(), limit)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if reports == nil {
		reports = []persistence.ReportRecord{}
	}
	h.writeJSON(w, http.StatusOK, httpContracts.ReportsResponse{Count: len(reports), Reports: reports})
}

// LatestReport handles GET /api/v1/reports/{ticker}/latest
func (h *Handlers) LatestReport(w http.ResponseWriter, r *http.Request) {
	ticker := mux.Vars(r)["ticker"]
	report, err := h.svc.LatestReport(r.Context(), ticker)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if report == nil {
		h.writeError(w, r, http.StatusNotFound, "no_report", "No archived report for "+ticker)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// PopularTickers handles GET /api/v1/reports/popular?since=&until=&limit=
func (h *Handlers) PopularTickers(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limit(w, r, 10)
	if !ok {
		return
	}
	q := r.URL.Query()
	tr, err := persistence.ParseTimeRange(q.Get("since"), q.Get("until"), time.Now())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ranked, err := h.svc.PopularTickers(r.Context(), tr, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if ranked == nil {
		ranked = []insights.TickerCount{}
	}
	h.writeJSON(w, http.StatusOK, httpContracts.PopularResponse{From: tr.From, To: tr.To, Tickers: ranked})
}

// limit parses ?limit=, writing a 400 and returning false when it is out of range
func (h *Handlers) limit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 || parsed > maxReportsLimit {
		h.writeError(w, r, http.StatusBadRequest, "invalid_limit",
			"limit must be between 1 and "+strconv.Itoa(maxReportsLimit))
		return 0, false
	}
	return parsed, true
}
