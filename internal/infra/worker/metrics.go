package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"birthday-courier/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the greeting worker. It
// embeds the shared configuration metrics and adds cycle-level counters:
//
//   - worker_greeting_cycle_runs_total: cycle runs by status (success/failure)
//   - worker_greeting_cycle_duration_seconds: cycle duration histogram
//   - worker_recipients_evaluated_total: recipients evaluated across cycles
//   - worker_deliveries_total: per-recipient dispositions by status
//   - worker_greeting_cycle_last_success_timestamp: last successful cycle
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CycleRunsTotal counts greeting cycle runs by status.
	CycleRunsTotal *prometheus.CounterVec

	// CycleDurationSeconds measures greeting cycle duration.
	CycleDurationSeconds prometheus.Histogram

	// RecipientsEvaluatedTotal counts recipients evaluated across cycles.
	RecipientsEvaluatedTotal prometheus.Counter

	// DeliveriesTotal counts per-recipient dispositions by status
	// (sent, failed, skipped).
	DeliveriesTotal *prometheus.CounterVec

	// CycleLastSuccessTimestamp records the last successful cycle time.
	CycleLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates worker metrics registered with the default
// Prometheus registry.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CycleRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_greeting_cycle_runs_total",
			Help: "Total number of greeting cycle runs by status (success/failure)",
		}, []string{"status"}),

		CycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_greeting_cycle_duration_seconds",
			Help:    "Duration of greeting cycle execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		RecipientsEvaluatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_recipients_evaluated_total",
			Help: "Total number of recipients evaluated across all cycles",
		}),

		DeliveriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_deliveries_total",
			Help: "Total per-recipient dispositions by status (sent/failed/skipped)",
		}, []string{"status"}),

		CycleLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_greeting_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last successful greeting cycle",
		}),
	}
}

// RecordCycleRun increments the cycle run counter for the given status.
func (m *WorkerMetrics) RecordCycleRun(status string) {
	m.CycleRunsTotal.WithLabelValues(status).Inc()
}

// RecordCycleDuration observes the duration of a greeting cycle in seconds.
func (m *WorkerMetrics) RecordCycleDuration(seconds float64) {
	m.CycleDurationSeconds.Observe(seconds)
}

// RecordEvaluated adds to the evaluated-recipient total.
func (m *WorkerMetrics) RecordEvaluated(count int) {
	m.RecipientsEvaluatedTotal.Add(float64(count))
}

// RecordDeliveries adds per-recipient dispositions for one status.
func (m *WorkerMetrics) RecordDeliveries(status string, count int64) {
	m.DeliveriesTotal.WithLabelValues(status).Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful cycle.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CycleLastSuccessTimestamp.SetToCurrentTime()
}
