package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PublishAttempt("ok")
	m.PublishAttempt("ok")
	m.PublishFailure("queue_full")
	m.Consumed("applied")
	m.ConsumerRestart()
	m.Reconciled("created")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PublishAttempts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures.WithLabelValues("queue_full")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumedMessages.WithLabelValues("applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConsumerRestarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReconcileOutcomes.WithLabelValues("created")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.PublishAttempt("ok")
		m.PublishFailure("failed")
		m.Consumed("skipped")
		m.ConsumerRestart()
		m.Reconciled("buffered")
	})
}
