/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Admission decisions used as label values.
const (
	DecisionAllowed = "allowed"
	DecisionBlocked = "blocked"
)

const (
	metricsLabelService  = "service"
	metricsLabelDecision = "decision"
)

// MetricsCollector represents a collector of admission metrics.
type MetricsCollector interface {
	// IncRequests increments the number of admission checks for the service with the given decision.
	IncRequests(service, decision string)

	// ObserveWait observes how long WaitForCapacity waited for the service and whether it succeeded.
	ObserveWait(service string, d time.Duration, admitted bool)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	CurriedLabelNames []string

	// WaitDurationBuckets is a list of buckets for the wait duration histogram (in seconds).
	WaitDurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics for the rate limiter registry.
type PrometheusMetrics struct {
	RequestsTotal *prometheus.CounterVec
	WaitDuration  *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.WaitDurationBuckets
	if buckets == nil {
		buckets = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}
	labels := append(append([]string(nil), opts.CurriedLabelNames...), metricsLabelService, metricsLabelDecision)

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "ratelimit_requests_total",
			Help:        "Number of admission checks.",
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	waitDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "ratelimit_wait_duration_seconds",
			Help:        "Time spent waiting for capacity.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	return &PrometheusMetrics{RequestsTotal: requestsTotal, WaitDuration: waitDuration}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		RequestsTotal: pm.RequestsTotal.MustCurryWith(labels),
		WaitDuration:  pm.WaitDuration.MustCurryWith(labels).(*prometheus.HistogramVec),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.RequestsTotal, pm.WaitDuration)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.RequestsTotal)
	prometheus.Unregister(pm.WaitDuration)
}

// IncRequests increments the number of admission checks for the service with the given decision.
func (pm *PrometheusMetrics) IncRequests(service, decision string) {
	pm.RequestsTotal.With(prometheus.Labels{metricsLabelService: service, metricsLabelDecision: decision}).Inc()
}

// ObserveWait observes how long WaitForCapacity waited for the service.
func (pm *PrometheusMetrics) ObserveWait(service string, d time.Duration, admitted bool) {
	decision := DecisionBlocked
	if admitted {
		decision = DecisionAllowed
	}
	pm.WaitDuration.With(prometheus.Labels{metricsLabelService: service, metricsLabelDecision: decision}).Observe(d.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) IncRequests(string, string)               {}
func (disabledMetrics) ObserveWait(string, time.Duration, bool) {}
