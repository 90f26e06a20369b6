// Package metrics holds the Prometheus collectors shared by the publisher,
// the consumer loop and the reconciliation handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	PublishAttempts   *prometheus.CounterVec
	PublishFailures   *prometheus.CounterVec
	ConsumedMessages  *prometheus.CounterVec
	ConsumerRestarts  prometheus.Counter
	ReconcileOutcomes *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PublishAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_publish_attempts_total",
			Help: "Publish attempts by result",
		}, []string{"result"}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_publish_failures_total",
			Help: "Publish calls that gave up, by failure kind",
		}, []string{"kind"}),
		ConsumedMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_consumer_messages_total",
			Help: "Messages read by the consumer loop, by result",
		}, []string{"result"}),
		ConsumerRestarts: f.NewCounter(prometheus.CounterOpts{
			Name: "orders_consumer_restarts_total",
			Help: "Inner consumer loop failures handled by the reconnect supervisor",
		}),
		ReconcileOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_reconcile_outcomes_total",
			Help: "Events applied to the order store, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) PublishAttempt(result string) {
	if m == nil {
		return
	}
	m.PublishAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) PublishFailure(kind string) {
	if m == nil {
		return
	}
	m.PublishFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Consumed(result string) {
	if m == nil {
		return
	}
	m.ConsumedMessages.WithLabelValues(result).Inc()
}

func (m *Metrics) ConsumerRestart() {
	if m == nil {
		return
	}
	m.ConsumerRestarts.Inc()
}

func (m *Metrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileOutcomes.WithLabelValues(outcome).Inc()
}
