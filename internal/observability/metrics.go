package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the matching engine on a custom
// registry. All recording methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	AIRequestsTotal   *prometheus.CounterVec
	AIRequestDuration *prometheus.HistogramVec
	FallbacksTotal    *prometheus.CounterVec
	CacheLookupsTotal *prometheus.CounterVec
	MatchDuration     prometheus.Histogram
	RankPairsTotal    *prometheus.CounterVec
	HTTPRequestsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		AIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartrecruit",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total requests sent to AI providers.",
		}, []string{"provider", "operation", "status"}),

		AIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smartrecruit",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "AI provider request duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "operation"}),

		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartrecruit",
			Subsystem: "scoring",
			Name:      "fallbacks_total",
			Help:      "Times a component used its deterministic fallback.",
		}, []string{"component"}),

		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartrecruit",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache name and result.",
		}, []string{"cache", "result"}),

		MatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartrecruit",
			Subsystem: "matching",
			Name:      "duration_seconds",
			Help:      "Time to score one candidate/job pair.",
			Buckets:   prometheus.DefBuckets,
		}),

		RankPairsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartrecruit",
			Subsystem: "ranking",
			Name:      "pairs_total",
			Help:      "Pairs processed by the ranking service.",
		}, []string{"status"}),

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartrecruit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),
	}

	reg.MustRegister(
		m.AIRequestsTotal,
		m.AIRequestDuration,
		m.FallbacksTotal,
		m.CacheLookupsTotal,
		m.MatchDuration,
		m.RankPairsTotal,
		m.HTTPRequestsTotal,
	)

	return m
}

// ObserveAIRequest satisfies ai.Recorder.
func (m *Metrics) ObserveAIRequest(provider, operation, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AIRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.AIRequestDuration.WithLabelValues(provider, operation).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordFallback(component string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(component).Inc()
}

func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ObserveMatch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MatchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) RecordPair(status string) {
	if m == nil {
		return
	}
	m.RankPairsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path, code string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
}
