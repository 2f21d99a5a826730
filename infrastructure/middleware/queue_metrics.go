// Package middleware provides cross-cutting concerns for the
// verification core: Prometheus metrics for the task queue and
// OpenTelemetry tracing around job execution.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/veridict/veridict/internal/ports"
)

// Compile-time verification that QueueMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*QueueMetrics)(nil)

// QueueMetrics implements the MetricsCollector interface using
// Prometheus. It tracks task throughput, queue pressure, and job
// latency for the verification worker pool.
type QueueMetrics struct {
	taskEvents  *prometheus.CounterVec
	queueState  *prometheus.GaugeVec
	jobDuration *prometheus.HistogramVec
}

// NewQueueMetrics creates a QueueMetrics instance and registers its
// collectors with reg. A nil reg falls back to the default registry.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &QueueMetrics{
		taskEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "verification_tasks_total",
				Help: "Total number of verification task events by type.",
			},
			[]string{"event"},
		),
		queueState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "verification_queue_state",
				Help: "Current task queue state values.",
			},
			[]string{"metric"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "verification_job_duration_seconds",
				Help:    "Execution time of verification jobs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// job execution time in a Prometheus histogram.
func (m *QueueMetrics) RecordLatency(operation string, duration time.Duration, _ map[string]string) {
	m.jobDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by
// incrementing the task event counter. The metric name becomes the
// event label, so new queue events need no code changes here.
func (m *QueueMetrics) RecordCounter(metric string, value float64, _ map[string]string) {
	m.taskEvents.WithLabelValues(metric).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// queue state gauges.
func (m *QueueMetrics) RecordGauge(metric string, value float64, _ map[string]string) {
	m.queueState.WithLabelValues(metric).Set(value)
}
