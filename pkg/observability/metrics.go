package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/stateflow/pkg/domain"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	activeRuns   prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics
// handler; tests pass their own registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_runs_total",
				Help: "Completed workflow runs by graph and terminal status",
			},
			[]string{"graph", "status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stateflow_steps_total",
				Help: "Node invocations by graph and node",
			},
			[]string{"graph", "node"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stateflow_step_duration_seconds",
				Help:    "Node execution duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"graph", "node"},
		),
		activeRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stateflow_active_runs",
				Help: "Runs currently executing",
			},
		),
	}
	reg.MustRegister(m.runsTotal, m.stepsTotal, m.stepDuration, m.activeRuns)
	return m
}

// Hooks adapts the metrics into engine lifecycle hooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(_ context.Context, _ *domain.RunEvent) {
			m.activeRuns.Inc()
		},
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.stepsTotal.WithLabelValues(e.Graph, e.Node).Inc()
			m.stepDuration.WithLabelValues(e.Graph, e.Node).Observe(e.Duration.Seconds())
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.activeRuns.Dec()
			m.runsTotal.WithLabelValues(e.Graph, string(e.Status)).Inc()
		},
	}
}
