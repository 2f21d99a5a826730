package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueMetrics(t *testing.T) {
	m := NewQueueMetrics(prometheus.NewRegistry())
	require.NotNil(t, m)
	assert.NotNil(t, m.taskEvents)
	assert.NotNil(t, m.queueState)
	assert.NotNil(t, m.jobDuration)
}

func TestQueueMetrics_RecordCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	m.RecordCounter("tasks_queued", 1, nil)
	m.RecordCounter("tasks_queued", 1, nil)
	m.RecordCounter("tasks_failed", 1, nil)

	queued := testutil.ToFloat64(m.taskEvents.WithLabelValues("tasks_queued"))
	assert.Equal(t, 2.0, queued)

	failed := testutil.ToFloat64(m.taskEvents.WithLabelValues("tasks_failed"))
	assert.Equal(t, 1.0, failed)
}

func TestQueueMetrics_RecordGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	m.RecordGauge("queue_depth", 7, nil)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.queueState.WithLabelValues("queue_depth")))

	// Gauges track the latest value, not a running total.
	m.RecordGauge("queue_depth", 3, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueState.WithLabelValues("queue_depth")))
}

func TestQueueMetrics_RecordLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	m.RecordLatency("job_execution", 150*time.Millisecond, nil)
	m.RecordLatency("job_execution", 250*time.Millisecond, nil)

	count := testutil.CollectAndCount(m.jobDuration)
	assert.Equal(t, 1, count, "one histogram series expected")
}

func TestQueueMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewQueueMetrics(reg)

	assert.Panics(t, func() { NewQueueMetrics(reg) })
}
