package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/types"
)

// hasFailureRun reports whether rates contain maxFailures consecutive
// values above threshold. Independent reference implementation of the
// rollback condition.
func hasFailureRun(rates []float64, threshold float64, maxFailures int) bool {
	run := 0
	for _, r := range rates {
		if r > threshold {
			run++
			if run >= maxFailures {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

// TestMonitor_OutcomeMatchesFailureRunProperty checks that for arbitrary
// sample sequences the monitor fails exactly when a consecutive failure
// run exists, and passes otherwise.
func TestMonitor_OutcomeMatchesFailureRunProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	cfg := Config{
		ErrorRateThresholdPercent: 5.0,
		LatencyP50ThresholdMs:     1000,
		LatencyP90ThresholdMs:     1000,
		CheckInterval:             time.Second,
		MaxConsecutiveFailures:    3,
	}

	properties.Property("passed iff no consecutive-failure run", prop.ForAll(
		func(rates []float64) bool {
			if len(rates) == 0 {
				return true
			}
			runCfg := cfg
			runCfg.TotalDuration = time.Duration(len(rates)) * runCfg.CheckInterval

			source := &scriptedSource{errorRates: rates}
			m := New(source, runCfg, zerolog.Nop()).WithClock(instantClock{})

			outcome, err := m.Run(context.Background(), "prod", types.ColorBlue)
			if err != nil {
				return false
			}

			return outcome.Passed != hasFailureRun(rates, runCfg.ErrorRateThresholdPercent, runCfg.MaxConsecutiveFailures)
		},
		gen.SliceOf(gen.Float64Range(0, 100)),
	))

	properties.Property("early exit never consumes the full window on failure", prop.ForAll(
		func(prefix []float64) bool {
			// Append a guaranteed failure run; the monitor must stop
			// within the run and leave trailing samples unobserved.
			rates := append(append([]float64{}, prefix...), 50, 50, 50, 0, 0)
			runCfg := cfg
			runCfg.TotalDuration = time.Duration(len(rates)) * runCfg.CheckInterval

			source := &scriptedSource{errorRates: rates}
			m := New(source, runCfg, zerolog.Nop()).WithClock(instantClock{})

			outcome, err := m.Run(context.Background(), "prod", types.ColorBlue)
			if err != nil {
				return false
			}
			return !outcome.Passed && outcome.SampleCount < len(rates)
		},
		gen.SliceOfN(4, gen.Float64Range(0, 4.9)),
	))

	properties.TestingRun(t)
}
