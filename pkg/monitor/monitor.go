package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/metrics"
	"github.com/switchback-run/switchback/pkg/types"
)

// Sample is one observation of the service's live metrics over the
// just-elapsed window. Ephemeral; never persisted beyond the run's log.
type Sample struct {
	Timestamp        time.Time
	ErrorRatePercent float64
	P50Ms            float64
	P90Ms            float64
	P99Ms            float64
}

// Source queries the external metrics backend for the current window
type Source interface {
	QueryWindow(ctx context.Context, environment string, color types.Color, window time.Duration) (Sample, error)
}

// Config defines thresholds and timing for a monitoring run. Immutable,
// supplied by the caller.
type Config struct {
	ErrorRateThresholdPercent float64
	LatencyP50ThresholdMs     float64
	LatencyP90ThresholdMs     float64
	CheckInterval             time.Duration
	TotalDuration             time.Duration
	MaxConsecutiveFailures    int
}

// Validate checks the config for values the monitor cannot run with
func (c Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive, got %v", c.CheckInterval)
	}
	if c.TotalDuration < c.CheckInterval {
		return fmt.Errorf("total duration %v shorter than check interval %v", c.TotalDuration, c.CheckInterval)
	}
	if c.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("max consecutive failures must be >= 1, got %d", c.MaxConsecutiveFailures)
	}
	if c.ErrorRateThresholdPercent < 0 || c.ErrorRateThresholdPercent > 100 {
		return fmt.Errorf("error rate threshold out of range: %v", c.ErrorRateThresholdPercent)
	}
	return nil
}

// evaluate reports whether a sample breaches any threshold
func (c Config) evaluate(s Sample) (bool, string) {
	switch {
	case s.ErrorRatePercent > c.ErrorRateThresholdPercent:
		return true, fmt.Sprintf("error rate %.2f%% > %.2f%%", s.ErrorRatePercent, c.ErrorRateThresholdPercent)
	case s.P50Ms > c.LatencyP50ThresholdMs:
		return true, fmt.Sprintf("p50 %.0fms > %.0fms", s.P50Ms, c.LatencyP50ThresholdMs)
	case s.P90Ms > c.LatencyP90ThresholdMs:
		return true, fmt.Sprintf("p90 %.0fms > %.0fms", s.P90Ms, c.LatencyP90ThresholdMs)
	}
	return false, ""
}

// Outcome is the terminal result of a monitoring run
type Outcome struct {
	Passed                    bool
	ConsecutiveFailuresAtExit int
	SampleCount               int
}

// Clock abstracts timing so tests can drive cycles synchronously
// instead of sleeping in real time
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the minimal surface of time.Ticker the monitor needs
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r *realTicker) Chan() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()                  { r.t.Stop() }

// Monitor polls a metrics source on a fixed interval for a configured
// duration and tracks consecutive threshold breaches.
type Monitor struct {
	source Source
	cfg    Config
	logger zerolog.Logger
	clock  Clock
}

// New creates a monitor for the given source and config
func New(source Source, cfg Config, logger zerolog.Logger) *Monitor {
	return &Monitor{
		source: source,
		cfg:    cfg,
		logger: logger,
		clock:  realClock{},
	}
}

// WithClock replaces the clock (used by tests)
func (m *Monitor) WithClock(c Clock) *Monitor {
	m.clock = c
	return m
}

// Run executes the monitoring loop until the total duration elapses, the
// consecutive-failure threshold is reached, or ctx is cancelled.
//
// A metrics-source query failure counts as a failing cycle: fail-safe
// toward caution, not toward silent success. The returned error is
// non-nil only for invalid config or cancellation; a threshold breach is
// a normal Outcome, not an error.
func (m *Monitor) Run(ctx context.Context, environment string, color types.Color) (Outcome, error) {
	if err := m.cfg.Validate(); err != nil {
		return Outcome{}, err
	}

	cycles := int(m.cfg.TotalDuration / m.cfg.CheckInterval)
	consecutive := 0
	sampleCount := 0

	m.logger.Info().
		Int("cycles", cycles).
		Dur("interval", m.cfg.CheckInterval).
		Dur("duration", m.cfg.TotalDuration).
		Msg("starting metrics monitoring")

	ticker := m.clock.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for cycle := 1; cycle <= cycles; cycle++ {
		select {
		case <-ticker.Chan():
		case <-ctx.Done():
			return Outcome{Passed: false, ConsecutiveFailuresAtExit: consecutive, SampleCount: sampleCount},
				fmt.Errorf("monitoring aborted: %w", ctx.Err())
		}

		failed, reason := m.observe(ctx, environment, color, cycle)
		sampleCount++

		if failed {
			consecutive++
			metrics.MonitorConsecutiveFailures.Set(float64(consecutive))
			m.logger.Warn().
				Int("cycle", cycle).
				Int("consecutive_failures", consecutive).
				Int("max", m.cfg.MaxConsecutiveFailures).
				Str("reason", reason).
				Msg("monitoring cycle failed")

			if consecutive >= m.cfg.MaxConsecutiveFailures {
				// Sustained degradation: stop early, do not wait out the window
				return Outcome{
					Passed:                    false,
					ConsecutiveFailuresAtExit: consecutive,
					SampleCount:               sampleCount,
				}, nil
			}
		} else {
			// Failures must be consecutive, not cumulative
			consecutive = 0
			metrics.MonitorConsecutiveFailures.Set(0)
			m.logger.Info().Int("cycle", cycle).Int("of", cycles).Msg("monitoring cycle passed")
		}
	}

	return Outcome{
		Passed:                    true,
		ConsecutiveFailuresAtExit: consecutive,
		SampleCount:               sampleCount,
	}, nil
}

// observe queries one sample and evaluates it against the thresholds
func (m *Monitor) observe(ctx context.Context, environment string, color types.Color, cycle int) (bool, string) {
	sample, err := m.source.QueryWindow(ctx, environment, color, m.cfg.CheckInterval)
	if err != nil {
		metrics.MonitorCyclesTotal.WithLabelValues("query_error").Inc()
		return true, fmt.Sprintf("metrics query failed: %v", err)
	}

	m.logger.Debug().
		Int("cycle", cycle).
		Float64("error_rate", sample.ErrorRatePercent).
		Float64("p50_ms", sample.P50Ms).
		Float64("p90_ms", sample.P90Ms).
		Float64("p99_ms", sample.P99Ms).
		Msg("metric sample")

	failed, reason := m.cfg.evaluate(sample)
	if failed {
		metrics.MonitorCyclesTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.MonitorCyclesTotal.WithLabelValues("passed").Inc()
	}
	return failed, reason
}
