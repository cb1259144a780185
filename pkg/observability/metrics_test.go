package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/domain"
)

func reviewGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph("review")
	noop := func(ctx context.Context, s *domain.State) (*domain.State, error) { return s, nil }
	require.NoError(t, g.AddNode(domain.NewFuncNode("analyze", noop)))
	require.NoError(t, g.AddNode(domain.NewFuncNode("score", noop)))
	require.NoError(t, g.AddEdge(domain.Edge{From: "analyze", To: "score"}))
	require.NoError(t, g.SetEntry("analyze"))
	return g
}

func TestMetricsCountRunsAndSteps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	eng := runtime.NewEngine(runtime.WithHooks(m.Hooks()))
	res, err := eng.Run(context.Background(), reviewGraph(t), nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, res.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("review", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("review", "analyze")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepsTotal.WithLabelValues("review", "score")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRuns))
}

func TestMetricsTrackActiveRunsDuringExecution(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	var during float64
	probe := domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, _ *domain.StepEvent) {
			during = testutil.ToFloat64(m.activeRuns)
		},
	}

	eng := runtime.NewEngine(runtime.WithHooks(m.Hooks()), runtime.WithHooks(probe))
	_, err := eng.Run(context.Background(), reviewGraph(t), nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, during)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRuns))
}

func TestMetricsLabelFailedRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	g := domain.NewGraph("broken")
	require.NoError(t, g.AddNode(domain.NewFuncNode("explode", func(ctx context.Context, s *domain.State) (*domain.State, error) {
		return nil, context.DeadlineExceeded
	})))
	require.NoError(t, g.SetEntry("explode"))

	eng := runtime.NewEngine(runtime.WithHooks(m.Hooks()))
	res, err := eng.Run(context.Background(), g, nil)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, res.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("broken", "failed")))
}
