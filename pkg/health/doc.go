/*
Package health implements the health gate a new revision must pass before
it may receive any traffic.

The gate checks two HTTP endpoints in sequence — liveness, then readiness —
and both must independently succeed. Each endpoint is retried a bounded
number of times with a fixed delay; exhausting the retry budget is a hard
failure that aborts the deploy with no traffic shifted.

# Architecture

	┌───────────────────────────────────────────┐
	│                  Prober                   │
	│  Probe(ctx)                               │
	│   1. liveness  {baseURL}{livenessPath}    │
	│   2. readiness {baseURL}{readinessPath}   │
	│   per endpoint: up to MaxRetries attempts │
	│   fixed RetryDelay between attempts       │
	└─────────────────────┬─────────────────────┘
	                      │
	                      ▼
	        ┌───────────────────────────┐
	        │      Checker Interface    │
	        │      Check(ctx) Result    │
	        └─────────────┬─────────────┘
	                      │
	                      ▼
	              ┌──────────────┐
	              │  HTTPChecker │
	              │  GET, 200 OK │
	              └──────────────┘

# Success Criteria

Only HTTP 200 counts as success. Any other status code, a timeout, or a
connection error is a failed attempt. This is stricter than general
health checking on purpose: the gate decides whether untested code gets
production traffic.

# Retry Semantics

Retries use a constant delay with no backoff growth. The expected wait is
bounded (the revision either starts within its startup budget or it never
will), so exponential backoff would only delay the failure verdict.

Scenario: MaxRetries 3, RetryDelay 1s against an endpoint that fails twice
then returns 200 → the probe succeeds on the third attempt.

# Cancellation

Probe respects context cancellation between attempts and within each HTTP
request, so an operator interrupt aborts the gate promptly.

# Usage

	spec := health.Spec{
		BaseURL:           revisionURL,
		LivenessPath:      "/healthz",
		ReadinessPath:     "/readyz",
		MaxRetries:        3,
		RetryDelay:        5 * time.Second,
		PerRequestTimeout: 10 * time.Second,
	}

	prober := health.NewProber(spec, log.WithComponent("health"))
	if err := prober.Probe(ctx); err != nil {
		// revision must not receive traffic
		return err
	}

# See Also

  - pkg/controller - Runs the gate during deploy and at the end of promote
  - pkg/monitor - Continuous metric evaluation during the canary window
*/
package health
