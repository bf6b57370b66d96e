/*
Package observability binds engine lifecycle hooks to Prometheus metrics and
structured logs.

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Chain(metrics.Hooks(), observability.LogHooks(logger))
*/
package observability
