/*
Package metricsource provides monitor.Source implementations backed by
real metrics systems.

Two backends are supported:

  - Prometheus: evaluates configurable PromQL expressions over the
    server's HTTP API. The default queries assume standard HTTP server
    metrics (http_requests_total, http_request_duration_seconds_bucket)
    labeled with environment and color.

  - CloudWatch: reads custom metrics (ErrorRatePercent, RequestLatencyMs
    with p50/p90/p99 extended statistics) dimensioned by Environment and
    Color, using the default AWS credential chain.

# Query Contract

Each QueryWindow call must produce a complete Sample — error rate plus
three latency percentiles — for the just-elapsed window. A backend that
cannot produce any one of the values returns an error, which the monitor
counts as a failing cycle. "No data" is deliberately an error: a canary
serving no measurable traffic cannot be proven healthy.

# Prometheus Configuration

	metrics:
	  backend: prometheus
	  prometheus:
	    address: http://prometheus.internal:9090
	    # optional query overrides; $ENVIRONMENT/$COLOR/$WINDOW substituted
	    queries:
	      error_rate: ...

# CloudWatch Configuration

	metrics:
	  backend: cloudwatch
	  cloudwatch:
	    region: us-east-1
	    namespace: MyApp/Releases

# See Also

  - pkg/monitor - Consumes Samples and applies thresholds
*/
package metricsource
