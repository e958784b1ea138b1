/*
Package monitor implements the continuous metrics evaluation loop that
gates canary promotion.

The monitor polls a metrics source every CheckInterval for TotalDuration,
evaluates each sample against error-rate and latency thresholds, and
tracks consecutive failing cycles. It exists to answer one question: is
the canary revision degrading production traffic in a sustained way?

# Evaluation Flow

	every CheckInterval:
	  1. Query source for the just-elapsed window
	  2. Cycle fails if:
	       errorRate > ErrorRateThresholdPercent
	       OR p50 > LatencyP50ThresholdMs
	       OR p90 > LatencyP90ThresholdMs
	       OR the query itself failed
	  3. Failing cycle  → consecutive counter + 1
	     Passing cycle  → consecutive counter reset to 0
	  4. counter == MaxConsecutiveFailures → stop early, Outcome{Passed: false}
	  5. duration elapsed with counter below threshold → Outcome{Passed: true}

# Consecutive, Not Cumulative

The counter resets on every passing cycle. A transient blip — one bad
sample surrounded by good ones — never triggers rollback; only sustained
degradation does. This is the hysteresis that keeps canaries from
flapping on noisy metrics.

	samples:  1%  1%  6%  7%  8%  (threshold 5%, max failures 3)
	counter:   0   0   1   2   3  → early exit, failed

# Fail-Safe Semantics

A metrics-source query error counts as a failing cycle. If the monitoring
backend is down we cannot prove the canary healthy, and unproven means
unpromotable.

# Timing

The loop runs on a Clock abstraction. Production uses the real ticker;
tests inject a synchronous clock and drive cycles without sleeping.
Cancellation via context aborts the window immediately so an operator
interrupt can proceed straight to rollback.

# Usage

	cfg := monitor.Config{
		ErrorRateThresholdPercent: 5.0,
		LatencyP50ThresholdMs:     200,
		LatencyP90ThresholdMs:     500,
		CheckInterval:             30 * time.Second,
		TotalDuration:             5 * time.Minute,
		MaxConsecutiveFailures:    3,
	}

	m := monitor.New(source, cfg, log.WithComponent("monitor"))
	outcome, err := m.Run(ctx, "production", types.ColorGreen)
	if err != nil {
		// cancelled or misconfigured
	}
	if !outcome.Passed {
		// roll back
	}

# See Also

  - pkg/metricsource - Prometheus and CloudWatch Source implementations
  - pkg/controller - Converts a failed Outcome into an automatic rollback
*/
package monitor
