// Package metrics exposes the Prometheus instrumentation surface shared by
// the composite engine, circuit breaker, ingestors, scanner, and dispatcher.
// Every collector is registered once at package init via promauto against
// the default registry; callers obtain the shared Recorder through Default
// and wire it into a component with that component's SetMetrics method.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the concrete instrumentation sink. Each consuming package
// declares its own narrow interface over the subset of methods it calls,
// satisfied structurally by *Recorder, following the same pattern used for
// Broadcaster elsewhere in this module.
type Recorder struct {
	compositeComputeDuration *prometheus.HistogramVec
	compositeBiasNumeric     prometheus.Gauge
	compositeConfidence      *prometheus.GaugeVec
	compositeAlerts          *prometheus.CounterVec

	breakerTransitions *prometheus.CounterVec
	breakerActive      prometheus.Gauge
	breakerDecayTicks  prometheus.Counter

	ingestorRuns     *prometheus.CounterVec
	ingestorDuration *prometheus.HistogramVec

	scannerSignals  *prometheus.CounterVec
	scannerDuration prometheus.Histogram

	dispatcherDispatched prometheus.Counter
	dispatcherSuppressed prometheus.Counter
}

var (
	compositeComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biasengine_composite_compute_duration_seconds",
		Help:    "Duration of one composite bias compute cycle.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	compositeBiasNumeric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "biasengine_composite_bias_numeric",
		Help: "Current composite bias on the 1-5 numeric scale.",
	})

	compositeConfidence = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "biasengine_composite_confidence",
		Help: "Current composite confidence, one gauge per level set to 1.",
	}, []string{"level"})

	compositeAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biasengine_composite_alerts_total",
		Help: "Health alerts raised by the composite engine, by kind.",
	}, []string{"kind"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biasengine_breaker_transitions_total",
		Help: "Circuit breaker state transitions, by trigger.",
	}, []string{"trigger"})

	breakerActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "biasengine_breaker_active",
		Help: "Whether the circuit breaker is currently active (1) or cleared (0).",
	})

	breakerDecayTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biasengine_breaker_decay_ticks_total",
		Help: "Decay evaluations run against the active breaker state.",
	})

	ingestorRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biasengine_ingestor_runs_total",
		Help: "Factor ingestor invocations, by factor id and outcome.",
	}, []string{"factor_id", "outcome"})

	ingestorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "biasengine_ingestor_duration_seconds",
		Help:    "Duration of one ingestor's Compute call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"factor_id"})

	scannerSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "biasengine_scanner_signals_total",
		Help: "Signals emitted by the scanner, by signal type.",
	}, []string{"signal_type"})

	scannerDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "biasengine_scanner_scan_duration_seconds",
		Help:    "Duration of one full watchlist scan.",
		Buckets: prometheus.DefBuckets,
	})

	dispatcherDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biasengine_dispatcher_dispatched_total",
		Help: "Signals successfully dispatched (persisted and broadcast).",
	})

	dispatcherSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "biasengine_dispatcher_suppressed_total",
		Help: "Signals suppressed by the dispatcher's in-process cooldown.",
	})
)

// Default returns the shared, package-init-registered Recorder. Safe to call
// any number of times; it never re-registers a collector.
func Default() *Recorder {
	return &Recorder{
		compositeComputeDuration: compositeComputeDuration,
		compositeBiasNumeric:     compositeBiasNumeric,
		compositeConfidence:      compositeConfidence,
		compositeAlerts:          compositeAlerts,
		breakerTransitions:       breakerTransitions,
		breakerActive:            breakerActive,
		breakerDecayTicks:        breakerDecayTicks,
		ingestorRuns:             ingestorRuns,
		ingestorDuration:         ingestorDuration,
		scannerSignals:           scannerSignals,
		scannerDuration:          scannerDuration,
		dispatcherDispatched:     dispatcherDispatched,
		dispatcherSuppressed:     dispatcherSuppressed,
	}
}

// ObserveComputeDuration implements composite.MetricsRecorder.
func (r *Recorder) ObserveComputeDuration(d time.Duration, outcome string) {
	r.compositeComputeDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// SetBiasNumeric implements composite.MetricsRecorder.
func (r *Recorder) SetBiasNumeric(n int) {
	r.compositeBiasNumeric.Set(float64(n))
}

// SetConfidence implements composite.MetricsRecorder.
func (r *Recorder) SetConfidence(level string) {
	r.compositeConfidence.Reset()
	r.compositeConfidence.WithLabelValues(level).Set(1)
}

// IncAlert implements composite.MetricsRecorder.
func (r *Recorder) IncAlert(kind string) {
	r.compositeAlerts.WithLabelValues(kind).Inc()
}

// RecordTransition implements breaker.MetricsRecorder.
func (r *Recorder) RecordTransition(trigger string) {
	r.breakerTransitions.WithLabelValues(trigger).Inc()
}

// SetActive implements breaker.MetricsRecorder.
func (r *Recorder) SetActive(active bool) {
	if active {
		r.breakerActive.Set(1)
		return
	}
	r.breakerActive.Set(0)
}

// IncDecayTick implements breaker.MetricsRecorder.
func (r *Recorder) IncDecayTick() {
	r.breakerDecayTicks.Inc()
}

// RecordIngestorRun implements ingestors.MetricsRecorder.
func (r *Recorder) RecordIngestorRun(factorID, outcome string, d time.Duration) {
	r.ingestorRuns.WithLabelValues(factorID, outcome).Inc()
	r.ingestorDuration.WithLabelValues(factorID).Observe(d.Seconds())
}

// RecordScan implements scanner.MetricsRecorder.
func (r *Recorder) RecordScan(d time.Duration, signalCounts map[string]int) {
	r.scannerDuration.Observe(d.Seconds())
	for signalType, count := range signalCounts {
		r.scannerSignals.WithLabelValues(signalType).Add(float64(count))
	}
}

// RecordDispatch implements dispatcher.MetricsRecorder.
func (r *Recorder) RecordDispatch(dispatched bool) {
	if dispatched {
		r.dispatcherDispatched.Inc()
		return
	}
	r.dispatcherSuppressed.Inc()
}
