package metrics

import "github.com/prometheus/client_golang/prometheus"

// LifecycleMetrics exposes counters for appointment lifecycle operations.
type LifecycleMetrics struct {
	transitionsTotal *prometheus.CounterVec
	cascadesTotal    *prometheus.CounterVec
}

func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	m := &LifecycleMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment state transition attempts by operation and outcome",
		}, []string{"operation", "outcome"}),
		cascadesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "doctors",
			Name:      "reference_cascades_total",
			Help:      "Doctor reference cascade runs by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.cascadesTotal)
	return m
}

func (m *LifecycleMetrics) ObserveTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *LifecycleMetrics) ObserveCascade(kind, outcome string) {
	if m == nil {
		return
	}
	m.cascadesTotal.WithLabelValues(kind, outcome).Inc()
}
