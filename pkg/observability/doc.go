/*
Package observability exposes engine activity as Prometheus metrics.

Metrics plug into the executor through domain.LifecycleHooks, so wiring is
one option at engine construction:

	m := observability.NewMetrics(prometheus.DefaultRegisterer)
	eng := runtime.NewEngine(runtime.WithHooks(m.Hooks()))
*/
package observability
