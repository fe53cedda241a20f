package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the assistant's private Prometheus registry. All Record*
// methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	assistantRequests *prometheus.CounterVec
	assistantDuration *prometheus.HistogramVec
	retrievalResults  *prometheus.CounterVec
	lookupErrors      *prometheus.CounterVec
	modelFailures     *prometheus.CounterVec
	feedbackTotal     *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pcstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pcstore",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	assistantRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcstore",
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Assistant requests by classified intent.",
		},
		[]string{"service", "intent", "context"},
	)
	assistantDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pcstore",
			Subsystem: "assistant",
			Name:      "duration_seconds",
			Help:      "End-to-end assistant pipeline duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "intent"},
	)
	retrievalResults := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcstore",
			Subsystem: "retrieval",
			Name:      "slot_results_total",
			Help:      "Retrieval ladder outcomes by the rung that produced the result.",
		},
		[]string{"service", "strategy"},
	)
	lookupErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcstore",
			Subsystem: "retrieval",
			Name:      "lookup_errors_total",
			Help:      "Catalog lookup failures treated as empty results.",
		},
		[]string{"service", "strategy"},
	)
	modelFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcstore",
			Subsystem: "llm",
			Name:      "failures_total",
			Help:      "Language model failures by pipeline stage.",
		},
		[]string{"service", "stage"},
	)
	feedbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pcstore",
			Subsystem: "assistant",
			Name:      "feedback_total",
			Help:      "User feedback events by action.",
		},
		[]string{"service", "action"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		assistantRequests,
		assistantDuration,
		retrievalResults,
		lookupErrors,
		modelFailures,
		feedbackTotal,
	)

	return &Metrics{
		service:           service,
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		assistantRequests: assistantRequests,
		assistantDuration: assistantDuration,
		retrievalResults:  retrievalResults,
		lookupErrors:      lookupErrors,
		modelFailures:     modelFailures,
		feedbackTotal:     feedbackTotal,
	}
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HTTPStarted increments the in-flight gauge and returns the matching finisher
func (m *Metrics) HTTPStarted() func(method, path string, status int) {
	if m == nil {
		return func(string, string, int) {}
	}
	start := time.Now()
	m.requestInFlight.Inc()
	return func(method, path string, status int) {
		m.requestInFlight.Dec()
		if path == "" {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(m.service, method, path, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(m.service, method, path).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) RecordAssistantRequest(intent, usage string, duration time.Duration) {
	if m == nil {
		return
	}
	if usage == "" {
		usage = "none"
	}
	m.assistantRequests.WithLabelValues(m.service, intent, usage).Inc()
	m.assistantDuration.WithLabelValues(m.service, intent).Observe(duration.Seconds())
}

func (m *Metrics) RecordSlotResult(strategy string) {
	if m == nil {
		return
	}
	m.retrievalResults.WithLabelValues(m.service, strategy).Inc()
}

func (m *Metrics) RecordLookupError(strategy string) {
	if m == nil {
		return
	}
	m.lookupErrors.WithLabelValues(m.service, strategy).Inc()
}

// RecordModelFailure counts a failed extractor or generator call
func (m *Metrics) RecordModelFailure(stage string) {
	if m == nil {
		return
	}
	m.modelFailures.WithLabelValues(m.service, stage).Inc()
}

func (m *Metrics) RecordFeedback(action string) {
	if m == nil {
		return
	}
	m.feedbackTotal.WithLabelValues(m.service, action).Inc()
}
