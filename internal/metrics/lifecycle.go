package metrics

import "github.com/prometheus/client_golang/prometheus"

// Lifecycle exposes counters for booking lifecycle operations and triage
// recommendations. A nil *Lifecycle is valid and records nothing.
type Lifecycle struct {
	operations      *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	sagaFailures    prometheus.Counter
}

func NewLifecycle(reg prometheus.Registerer) *Lifecycle {
	m := &Lifecycle{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid",
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid",
			Subsystem: "triage",
			Name:      "recommendations_total",
			Help:      "Test types recommended by the triage classifier",
		}, []string{"test_type"}),
		sagaFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covid",
			Subsystem: "booking",
			Name:      "partial_modifications_total",
			Help:      "Modify or revert sagas whose second step failed",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operations, m.recommendations, m.sagaFailures)
	return m
}

// ObserveOperation counts one lifecycle call; outcome is "ok", "refused"
// or "error".
func (m *Lifecycle) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Lifecycle) ObserveRecommendation(testType string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(testType).Inc()
}

func (m *Lifecycle) ObservePartialModification() {
	if m == nil {
		return
	}
	m.sagaFailures.Inc()
}
