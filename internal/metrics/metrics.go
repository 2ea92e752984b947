package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	StoreQueryDuration *prometheus.HistogramVec
	StoreQueryErrors   *prometheus.CounterVec
	DBConnections      *prometheus.GaugeVec

	// Cache metrics
	CacheRequests *prometheus.CounterVec
	RedisLatency  *prometheus.HistogramVec

	// Domain metrics
	GuidanceActions        *prometheus.CounterVec
	ReactivationCandidates *prometheus.GaugeVec
	AdvisorTokens          *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics on reg. A nil reg uses a
// fresh private registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route"},
		),

		StoreQueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_query_duration_seconds",
				Help:      "Metric store query latency",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"backend", "op"},
		),
		StoreQueryErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_query_errors_total",
				Help:      "Failed metric store queries",
			},
			[]string{"backend", "op"},
		),
		DBConnections: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),

		CacheRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Response cache lookups by result",
			},
			[]string{"result"}, // hit, miss, error
		),
		RedisLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "redis_latency_seconds",
				Help:      "Redis operation latency",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"operation"},
		),

		GuidanceActions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guidance_actions_total",
				Help:      "Scale/Hold/Cut recommendations emitted",
			},
			[]string{"action"},
		),
		ReactivationCandidates: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reactivation_candidates",
				Help:      "Candidates found by the last reactivation scan",
			},
			[]string{"level"},
		),
		AdvisorTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "advisor_tokens_total",
				Help:      "LLM tokens consumed by the advisor",
			},
			[]string{"kind"}, // prompt, completion
		),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),

		gatherer: reg,
	}
}

// Handler returns the Prometheus metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(route string, status int, took time.Duration) {
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

// ObserveStoreQuery records a metric store call.
func (m *Metrics) ObserveStoreQuery(backend, op string, took time.Duration, err error) {
	m.StoreQueryDuration.WithLabelValues(backend, op).Observe(took.Seconds())
	if err != nil {
		m.StoreQueryErrors.WithLabelValues(backend, op).Inc()
	}
}

// RecordCache records a cache lookup outcome.
func (m *Metrics) RecordCache(result string) {
	m.CacheRequests.WithLabelValues(result).Inc()
}

// RecordRedis records a Redis operation latency.
func (m *Metrics) RecordRedis(operation string, took time.Duration) {
	m.RedisLatency.WithLabelValues(operation).Observe(took.Seconds())
}

// RecordGuidance adds a guidance summary.
func (m *Metrics) RecordGuidance(scale, hold, cut int) {
	m.GuidanceActions.WithLabelValues("Scale").Add(float64(scale))
	m.GuidanceActions.WithLabelValues("Hold").Add(float64(hold))
	m.GuidanceActions.WithLabelValues("Cut").Add(float64(cut))
}

// SetReactivationCandidates updates the per-level candidate gauge.
func (m *Metrics) SetReactivationCandidates(campaigns, adsets, ads int) {
	m.ReactivationCandidates.WithLabelValues("campaign").Set(float64(campaigns))
	m.ReactivationCandidates.WithLabelValues("adset").Set(float64(adsets))
	m.ReactivationCandidates.WithLabelValues("ad").Set(float64(ads))
}

// RecordAdvisorTokens records LLM token usage.
func (m *Metrics) RecordAdvisorTokens(prompt, completion int) {
	m.AdvisorTokens.WithLabelValues("prompt").Add(float64(prompt))
	m.AdvisorTokens.WithLabelValues("completion").Add(float64(completion))
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}
