package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// Metrics provides Prometheus metrics for the search engine. A nil or
// disabled Metrics is safe to call: every recorder is a no-op.
type Metrics struct {
	config MetricsConfig

	// Provider request metrics
	providerRequests *prometheus.CounterVec
	rateLimitHits    prometheus.Counter
	nearbyDemotions  prometheus.Counter

	// Run metrics
	routesProcessed prometheus.Counter
	calculations    prometheus.Counter
	runDuration     prometheus.Histogram
	queueDepth      prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "skyscanner"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total provider requests by outcome",
			},
			[]string{"outcome"},
		),
		rateLimitHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total 429 responses received from the provider",
			},
		),
		nearbyDemotions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nearby_demotions_total",
				Help:      "Requests retried with nearby-airport search disabled",
			},
		),
		routesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "routes_processed_total",
				Help:      "Routes whose search results were processed",
			},
		),
		calculations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "calculations_total",
				Help:      "Accepted itinerary calculations",
			},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "End-to-end run duration",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
			},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "polling_queue_depth",
				Help:      "Pending searches awaiting poll resolution",
			},
		),
	}

	registry.MustRegister(
		m.providerRequests,
		m.rateLimitHits,
		m.nearbyDemotions,
		m.routesProcessed,
		m.calculations,
		m.runDuration,
		m.queueDepth,
	)

	return m, nil
}

// Handler returns an HTTP handler exposing the metrics, or nil when disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordProviderRequest counts one provider request by outcome
// (success, rate_limited, failed).
func (m *Metrics) RecordProviderRequest(outcome string) {
	if !m.enabled() {
		return
	}
	m.providerRequests.WithLabelValues(outcome).Inc()
}

// RecordRateLimitHit counts one 429 response.
func (m *Metrics) RecordRateLimitHit() {
	if !m.enabled() {
		return
	}
	m.rateLimitHits.Inc()
}

// RecordNearbyDemotion counts one nearby-airports demotion retry.
func (m *Metrics) RecordNearbyDemotion() {
	if !m.enabled() {
		return
	}
	m.nearbyDemotions.Inc()
}

// RecordRouteProcessed counts one processed route.
func (m *Metrics) RecordRouteProcessed() {
	if !m.enabled() {
		return
	}
	m.routesProcessed.Inc()
}

// RecordCalculations counts accepted calculations.
func (m *Metrics) RecordCalculations(n int) {
	if !m.enabled() {
		return
	}
	m.calculations.Add(float64(n))
}

// RecordRunDuration observes one run's duration in seconds.
func (m *Metrics) RecordRunDuration(seconds float64) {
	if !m.enabled() {
		return
	}
	m.runDuration.Observe(seconds)
}

// SetQueueDepth records the current polling-queue depth.
func (m *Metrics) SetQueueDepth(depth int) {
	if !m.enabled() {
		return
	}
	m.queueDepth.Set(float64(depth))
}
