/*
Package config loads and validates release specifications.

A release spec is a YAML file describing everything one environment needs
for a full blue-green cycle: the image to deploy, how to reach the
infrastructure, the health gate, the canary thresholds, and the promotion
schedule. Thresholds are explicit caller-supplied values, never read from
ambient process environment.

# Example Spec

	environment: production
	image: registry.example.com/app:v2.3.1

	applier:
	  command: ./infra/apply.sh
	  timeout: 5m

	health:
	  liveness_path: /healthz
	  readiness_path: /readyz
	  max_retries: 3
	  retry_delay: 5s
	  timeout: 10s

	monitor:
	  error_rate_percent: 5.0
	  latency_p50_ms: 200
	  latency_p90_ms: 500
	  interval: 30s
	  duration: 5m
	  max_consecutive_failures: 3

	canary:
	  percent: 10

	promote:
	  steps: [25, 50, 75, 100]
	  settle_delay: 30s
	  decommission_grace: 2m

	metrics:
	  backend: prometheus
	  prometheus:
	    address: http://prometheus.internal:9090

# Defaults and Validation

Unset fields receive the defaults shown above. Validation rejects specs
the controller cannot run safely: promotion steps must strictly increase
from the canary share to exactly 100, the canary share must be a minority
split, and the selected metrics backend must be fully configured.

# See Also

  - cmd/switchback - Loads the spec and wires components
  - pkg/controller - Consumes the derived health.Spec and monitor.Config
*/
package config
