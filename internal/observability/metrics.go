// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
// All Record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Simulation metrics
	TrialsSimulated *prometheus.CounterVec
	TrialsRuined    *prometheus.CounterVec
	BatchDuration   *prometheus.HistogramVec
	BatchErrors     prometheus.Counter

	// Grid metrics
	CellsCompleted     prometheus.Counter
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	GenerationsActive  prometheus.Gauge

	// Cache metrics
	CacheLookups    *prometheus.CounterVec
	CacheOpDuration *prometheus.HistogramVec
	CacheErrors     *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "betting_risk_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Simulation metrics
		TrialsSimulated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_total",
			Help:      "Total number of trials simulated by strategy",
		}, []string{"strategy"}),
		TrialsRuined: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_ruined_total",
			Help:      "Total number of trials that ended in ruin by strategy",
		}, []string{"strategy"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "batch_duration_seconds",
			Help:      "Batch execution duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"strategy"}),
		BatchErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "batch_errors_total",
			Help:      "Total number of batches aborted by a trial failure",
		}),

		// Grid metrics
		CellsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "cells_completed_total",
			Help:      "Total number of grid cells aggregated",
		}),
		GenerationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "generations_total",
			Help:      "Total number of grid generations by status",
		}, []string{"status"}),
		GenerationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "generation_duration_seconds",
			Help:      "Grid generation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		GenerationsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "generations_active",
			Help:      "Number of grid generations currently running",
		}),

		// Cache metrics
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of grid cache lookups by result",
		}, []string{"result"}),
		CacheOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Grid cache operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Total number of grid cache errors by operation",
		}, []string{"operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
// A nil gatherer serves prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordBatch records a finished batch for one strategy.
func (m *Metrics) RecordBatch(strategy string, trials, ruined int, seconds float64, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.BatchErrors.Inc()
		return
	}
	m.TrialsSimulated.WithLabelValues(strategy).Add(float64(trials))
	m.TrialsRuined.WithLabelValues(strategy).Add(float64(ruined))
	m.BatchDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordCell increments the completed cells counter.
func (m *Metrics) RecordCell() {
	if m == nil {
		return
	}
	m.CellsCompleted.Inc()
}

// GenerationStarted marks a generation as running.
func (m *Metrics) GenerationStarted() {
	if m == nil {
		return
	}
	m.GenerationsActive.Inc()
}

// GenerationFinished records a finished generation. status is "complete", "cached" or "failed".
func (m *Metrics) GenerationFinished(status string, seconds float64) {
	if m == nil {
		return
	}
	m.GenerationsActive.Dec()
	m.GenerationsTotal.WithLabelValues(status).Inc()
	m.GenerationDuration.Observe(seconds)
}

// RecordCacheLookup records a cache lookup result: "hit", "miss" or "error".
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheOp records cache operation latency and errors.
func (m *Metrics) RecordCacheOp(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.CacheOpDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.CacheErrors.WithLabelValues(operation).Inc()
	}
}
