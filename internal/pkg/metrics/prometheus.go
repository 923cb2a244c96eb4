// Package metrics provides Prometheus metrics for the step service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "already_submitted"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Manager owns the service metrics. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	submissions         *prometheus.CounterVec
	submittedSteps      prometheus.Counter
	storageErrors       *prometheus.CounterVec
	aggregations        *prometheus.CounterVec
	aggregationDuration prometheus.Histogram
	lastTotal           prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a metrics manager on its own private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "steps",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "submissions_total",
		Help:      "Step submissions by outcome",
	}, []string{"outcome"})

	m.submittedSteps = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "submitted_steps_total",
		Help:      "Sum of step counts in accepted submissions",
	})

	m.storageErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "storage_errors_total",
		Help:      "Failed storage operations by operation name",
	}, []string{"op"})

	m.aggregations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "aggregations_total",
		Help:      "Aggregation runs by result",
	}, []string{"result"})

	m.aggregationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Wall time of a full-table aggregation",
		Buckets:   m.histogramBuckets,
	})

	m.lastTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_total_steps",
		Help:      "Total steps reported by the most recent successful aggregation",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method"})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordSubmission counts one submission outcome; steps are added only when accepted.
func (m *Manager) RecordSubmission(outcome string, steps int64) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAccepted && steps > 0 {
		m.submittedSteps.Add(float64(steps))
	}
}

// RecordStorageError counts a failed storage operation.
func (m *Manager) RecordStorageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

// RecordAggregation records one aggregation run. total is ignored when err is non-nil.
func (m *Manager) RecordAggregation(d time.Duration, total int64, err error) {
	if m == nil {
		return
	}
	m.aggregationDuration.Observe(d.Seconds())
	if err != nil {
		m.aggregations.WithLabelValues("error").Inc()
		return
	}
	m.aggregations.WithLabelValues("ok").Inc()
	m.lastTotal.Set(float64(total))
}

// RecordHTTPRequest records a finished HTTP request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
