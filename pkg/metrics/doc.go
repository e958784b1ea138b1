/*
Package metrics provides Prometheus instrumentation of Switchback itself.

These are metrics about the release controller, not about the service
being released (the latter come from pkg/metricsource). They answer
operational questions like "how often do canaries roll back in this
environment" and "how long do health probes take".

# Exported Metrics

	switchback_deploys_total{result}            counter
	switchback_rollbacks_total{reason}          counter
	switchback_promotion_steps_total            counter
	switchback_traffic_split_percent{environment,color}  gauge
	switchback_monitor_cycles_total{result}     counter
	switchback_monitor_consecutive_failures     gauge
	switchback_probe_duration_seconds           histogram

# Scraping

A CLI process is short-lived for deploy and rollback, but a canary window
can run for many minutes. Pass --metrics-addr to serve the registry for
the lifetime of the command:

	switchback canary production --metrics-addr :9090

	# then
	curl http://localhost:9090/metrics

# Label Values

  - deploys result: "succeeded", "failed"
  - rollbacks reason: "canary_failed", "promote_failed", "operator", "interrupt"
  - monitor cycle result: "passed", "failed", "query_error"

# See Also

  - pkg/controller - Increments deploy/rollback/promotion counters
  - pkg/monitor - Increments cycle counters
  - pkg/metricsource - Reads service metrics from Prometheus/CloudWatch
*/
package metrics
