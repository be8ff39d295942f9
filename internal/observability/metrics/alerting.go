// Package metrics defines the Prometheus metrics exported by the alert engine.
//
// Naming follows Prometheus conventions: a smartalerte_ prefix, _total for
// counters and _seconds for duration histograms. A nil *AlertingMetrics is
// valid and records nothing, so callers never need to guard.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// AlertingMetrics groups the alert engine collectors.
type AlertingMetrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	TriggersTotal      *prometheus.CounterVec
	ResolutionsTotal   prometheus.Counter
	DispatchTotal      *prometheus.CounterVec
	StoreErrorsTotal   *prometheus.CounterVec
	SweepsTotal        *prometheus.CounterVec
	LastSweepTimestamp prometheus.Gauge
}

// NewAlertingMetrics creates the collectors and registers them with reg.
func NewAlertingMetrics(reg prometheus.Registerer) (*AlertingMetrics, error) {
	m := &AlertingMetrics{
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartalerte_evaluations_total",
				Help: "Total (alert, product) pair evaluations by entry point.",
			},
			[]string{"entry_point"},
		),
		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smartalerte_evaluation_duration_seconds",
				Help:    "Duration of one evaluation run in seconds.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
			[]string{"entry_point"},
		),
		TriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartalerte_triggers_total",
				Help: "Total trigger notifications created by severity.",
			},
			[]string{"severity"},
		),
		ResolutionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "smartalerte_resolutions_total",
				Help: "Total resolution notifications created.",
			},
		),
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartalerte_dispatch_total",
				Help: "Total channel deliveries by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartalerte_store_errors_total",
				Help: "Total persistence failures during evaluation by operation.",
			},
			[]string{"operation"},
		),
		SweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smartalerte_sweeps_total",
				Help: "Total scheduled sweeps by status.",
			},
			[]string{"status"},
		),
		LastSweepTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smartalerte_last_sweep_timestamp_seconds",
				Help: "Unix time the last sweep finished.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.TriggersTotal,
		m.ResolutionsTotal,
		m.DispatchTotal,
		m.StoreErrorsTotal,
		m.SweepsTotal,
		m.LastSweepTimestamp,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordEvaluation records one finished evaluation run.
func (m *AlertingMetrics) RecordEvaluation(entryPoint string, pairs int, d time.Duration) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(entryPoint).Add(float64(pairs))
	m.EvaluationDuration.WithLabelValues(entryPoint).Observe(d.Seconds())
}

func (m *AlertingMetrics) RecordTrigger(severity string) {
	if m == nil {
		return
	}
	m.TriggersTotal.WithLabelValues(severity).Inc()
}

func (m *AlertingMetrics) RecordResolution() {
	if m == nil {
		return
	}
	m.ResolutionsTotal.Inc()
}

// RecordDispatch counts a delivery attempt; err decides the outcome.
func (m *AlertingMetrics) RecordDispatch(channel string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.DispatchTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordDispatchSkipped counts a configured channel with no usable recipient or sender.
func (m *AlertingMetrics) RecordDispatchSkipped(channel string) {
	if m == nil {
		return
	}
	m.DispatchTotal.WithLabelValues(channel, OutcomeSkipped).Inc()
}

func (m *AlertingMetrics) RecordStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// RecordSweep records a finished sweep.
func (m *AlertingMetrics) RecordSweep(err error, finishedAt time.Time) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SweepsTotal.WithLabelValues(status).Inc()
	m.LastSweepTimestamp.Set(float64(finishedAt.Unix()))
}
