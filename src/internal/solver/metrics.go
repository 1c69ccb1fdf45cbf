package solver

import "github.com/prometheus/client_golang/prometheus"

// Metrics records solver-internal counters as Prometheus collectors (spec
// §4.5's instrumentation requirement), grounded on internal/telemetry's
// existing client_golang registry for engine-level spans.
type Metrics struct {
	conflicts prometheus.Counter
}

// NewMetrics registers the solver's counters against reg and returns a
// Metrics ready to attach to a Solver. Pass a nil registry to disable
// instrumentation (used by tests).
func NewMetrics(reg prometheus.Registerer) Metrics {
	m := Metrics{
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pkgforge",
			Subsystem: "solver",
			Name:      "conflicts_total",
			Help:      "Number of SAT conflicts hit during dependency resolution.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.conflicts)
	}
	return m
}

// WithMetrics attaches m to s, replacing its (by-default no-op) metrics.
func (s *Solver) WithMetrics(m Metrics) *Solver {
	s.metrics = m
	return s
}

func (m Metrics) onConflict() {
	if m.conflicts != nil {
		m.conflicts.Inc()
	}
}
