package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Outcomes    *prometheus.CounterVec
	Transitions *prometheus.CounterVec
}

// NewMetrics registers the allocation counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aanganwadi",
			Subsystem: "allocation",
			Name:      "line_items_total",
			Help:      "Line items processed by the allocation engine, by item type and outcome.",
		}, []string{"item_type", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aanganwadi",
			Subsystem: "allocation",
			Name:      "transitions_total",
			Help:      "Approval transitions seen by the allocation engine, by trigger and result.",
		}, []string{"trigger", "result"}),
	}
	reg.MustRegister(m.Outcomes, m.Transitions)
	return m
}
