/*
Package log provides structured logging for Switchback built on zerolog.

All operator-visible output of the release controller flows through this
package: phase transitions, probe attempts, monitor samples, rollback
notices. Logs go to stderr by default so that command output (for example
`switchback status`) stays parseable on stdout.

# Initialization

The CLI initializes the global logger once at startup:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false, // console format for interactive use
	})

# Child Loggers

Components create child loggers with contextual fields rather than
repeating fields per event:

	logger := log.WithComponent("monitor")
	logger.Info().Float64("error_rate", 2.5).Msg("cycle passed")

	logger := log.WithRelease("production", "green")
	logger.Warn().Int("consecutive_failures", 2).Msg("threshold breached")

# Output Formats

Console output (default) is human-readable with RFC3339 timestamps.
JSON output is a stream of structured events for log aggregation:

	{"level":"info","component":"controller","environment":"production",
	 "phase":"CANARY","time":"2026-08-30T10:00:00Z","message":"canary traffic applied"}

# Log Levels

  - debug: per-attempt probe results, raw metric samples
  - info: phase transitions, traffic shifts, monitor cycle outcomes
  - warn: failing cycles below the rollback threshold, retried probes
  - error: operation failures, rollback triggers

# See Also

  - pkg/controller - Primary producer of lifecycle events
  - pkg/events - Structured event stream complementing the log stream
*/
package log
