/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import "github.com/prometheus/client_golang/prometheus"

// Cache tiers used as label values.
const (
	TierMemory  = "memory"
	TierDurable = "durable"
)

const (
	metricsLabelTier      = "tier"
	metricsLabelOperation = "operation"
)

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) the cache is used.
type MetricsCollector interface {
	// SetAmount sets the total number of entries in the memory tier.
	SetAmount(int)

	// IncHits increments the number of found keys in the given tier.
	IncHits(tier string)

	// IncMisses increments the number of keys not found in any tier.
	IncMisses()

	// AddEvictions increments the total number of evicted entries.
	AddEvictions(int)

	// IncDurableErrors increments the number of failed durable tier operations.
	IncDurableErrors(operation string)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// Keep in mind that if this list is not empty,
	// PrometheusMetrics.MustCurryWith method must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the cache.
type PrometheusMetrics struct {
	EntriesAmount      *prometheus.GaugeVec
	HitsTotal          *prometheus.CounterVec
	MissesTotal        *prometheus.CounterVec
	EvictionsTotal     *prometheus.CounterVec
	DurableErrorsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	withLabels := func(names ...string) []string {
		return append(append([]string(nil), opts.CurriedLabelNames...), names...)
	}

	entriesAmount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Total number of entries in the memory tier of the cache.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	hitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_hits_total",
			Help:        "Number of successfully found keys in the cache by tier.",
			ConstLabels: opts.ConstLabels,
		},
		withLabels(metricsLabelTier),
	)

	missesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_misses_total",
			Help:        "Number of keys not found in any tier of the cache.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	evictionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_evictions_total",
			Help:        "Number of evicted entries.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	durableErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_durable_errors_total",
			Help:        "Number of failed operations of the durable tier.",
			ConstLabels: opts.ConstLabels,
		},
		withLabels(metricsLabelOperation),
	)

	return &PrometheusMetrics{
		EntriesAmount:      entriesAmount,
		HitsTotal:          hitsTotal,
		MissesTotal:        missesTotal,
		EvictionsTotal:     evictionsTotal,
		DurableErrorsTotal: durableErrorsTotal,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount:      pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:          pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:        pm.MissesTotal.MustCurryWith(labels),
		EvictionsTotal:     pm.EvictionsTotal.MustCurryWith(labels),
		DurableErrorsTotal: pm.DurableErrorsTotal.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.EntriesAmount,
		pm.HitsTotal,
		pm.MissesTotal,
		pm.EvictionsTotal,
		pm.DurableErrorsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.EntriesAmount)
	prometheus.Unregister(pm.HitsTotal)
	prometheus.Unregister(pm.MissesTotal)
	prometheus.Unregister(pm.EvictionsTotal)
	prometheus.Unregister(pm.DurableErrorsTotal)
}

// SetAmount sets the total number of entries in the memory tier.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// IncHits increments the number of found keys in the given tier.
func (pm *PrometheusMetrics) IncHits(tier string) {
	pm.HitsTotal.With(prometheus.Labels{metricsLabelTier: tier}).Inc()
}

// IncMisses increments the number of keys not found in any tier.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.With(nil).Inc()
}

// AddEvictions increments the total number of evicted entries.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.With(nil).Add(float64(n))
}

// IncDurableErrors increments the number of failed durable tier operations.
func (pm *PrometheusMetrics) IncDurableErrors(operation string) {
	pm.DurableErrorsTotal.With(prometheus.Labels{metricsLabelOperation: operation}).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)           {}
func (disabledMetrics) IncHits(string)          {}
func (disabledMetrics) IncMisses()              {}
func (disabledMetrics) AddEvictions(int)        {}
func (disabledMetrics) IncDurableErrors(string) {}
