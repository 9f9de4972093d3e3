// Package metrics exposes Prometheus instrumentation for provider calls,
// cache lookups, LLM completions and generated reports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all stockmentor metrics
type Registry struct {
	reg *prometheus.Registry

	// Upstream HTTP metrics
	ProviderRequests *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec

	// Cache performance metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// LLM metrics
	LLMLatency *prometheus.HistogramVec
	LLMErrors  *prometheus.CounterVec

	// Report metrics
	ReportsGenerated *prometheus.CounterVec
	ActiveWatchers   prometheus.Gauge
}

// NewRegistry creates a registry with every stockmentor metric plus the Go
// runtime collectors
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmentor_provider_requests_total",
				Help: "Upstream HTTP attempts by pool and status code",
			},
			[]string{"pool", "status"},
		),

		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockmentor_provider_request_duration_seconds",
				Help:    "Upstream HTTP attempt latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"pool"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmentor_cache_hits_total",
				Help: "Cache hits by entry kind",
			},
			[]string{"kind"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmentor_cache_misses_total",
				Help: "Cache misses by entry kind",
			},
			[]string{"kind"},
		),

		LLMLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockmentor_llm_duration_seconds",
				Help:    "LLM completion latency in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"kind", "backend"},
		),

		LLMErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmentor_llm_errors_total",
				Help: "Failed LLM completions",
			},
			[]string{"kind", "backend"},
		),

		ReportsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockmentor_reports_total",
				Help: "Insights reports by result",
			},
			[]string{"result"},
		),

		ActiveWatchers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stockmentor_active_watchers",
				Help: "Open quote watch streams",
			},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ProviderRequests,
		r.ProviderLatency,
		r.CacheHits,
		r.CacheMisses,
		r.LLMLatency,
		r.LLMErrors,
		r.ReportsGenerated,
		r.ActiveWatchers,
	)
	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveRequest records one upstream attempt. A zero status means the
// request never got a response.
func (r *Registry) ObserveRequest(pool string, status int, d time.Duration, err error) {
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	r.ProviderRequests.WithLabelValues(pool, code).Inc()
	r.ProviderLatency.WithLabelValues(pool).Observe(d.Seconds())
}

// ObserveLookup records a cache hit or miss
func (r *Registry) ObserveLookup(kind string, hit bool) {
	if hit {
		r.CacheHits.WithLabelValues(kind).Inc()
		return
	}
	r.CacheMisses.WithLabelValues(kind).Inc()
}

// ObserveCompletion records one LLM call
func (r *Registry) ObserveCompletion(kind, backend string, d time.Duration, err error) {
	r.LLMLatency.WithLabelValues(kind, backend).Observe(d.Seconds())
	if err != nil {
		r.LLMErrors.WithLabelValues(kind, backend).Inc()
	}
}

// ObserveReport records an insights report attempt
func (r *Registry) ObserveReport(_ string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ReportsGenerated.WithLabelValues(result).Inc()
}
