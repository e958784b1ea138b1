package health

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/metrics"
)

// Prober runs the health gate for a revision: liveness then readiness,
// each with bounded retries and a fixed delay between attempts.
type Prober struct {
	spec   Spec
	logger zerolog.Logger

	// newChecker is swappable for tests
	newChecker func(url string) Checker
}

// NewProber creates a prober for the given spec
func NewProber(spec Spec, logger zerolog.Logger) *Prober {
	return &Prober{
		spec:   spec,
		logger: logger,
		newChecker: func(url string) Checker {
			return NewHTTPChecker(url).WithTimeout(spec.PerRequestTimeout)
		},
	}
}

// Probe runs the full health gate. It returns nil only if both endpoints
// succeeded; any other outcome is a hard failure and the caller must not
// shift traffic to the revision.
func (p *Prober) Probe(ctx context.Context) error {
	endpoints := []struct {
		name string
		path string
	}{
		{"liveness", p.spec.LivenessPath},
		{"readiness", p.spec.ReadinessPath},
	}

	for _, ep := range endpoints {
		if err := p.probeEndpoint(ctx, ep.name, p.spec.BaseURL+ep.path); err != nil {
			return err
		}
	}
	return nil
}

// probeEndpoint retries a single endpoint until it succeeds or the retry
// budget is exhausted
func (p *Prober) probeEndpoint(ctx context.Context, name, url string) error {
	attempts := p.spec.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	checker := p.newChecker(url)

	var last Result
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		last = checker.Check(ctx)
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())

		if last.Healthy {
			p.logger.Info().
				Str("endpoint", name).
				Int("attempt", attempt).
				Dur("duration", last.Duration).
				Msg("health check passed")
			return nil
		}

		p.logger.Warn().
			Str("endpoint", name).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Str("result", last.Message).
			Msg("health check attempt failed")

		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.spec.RetryDelay):
		case <-ctx.Done():
			return fmt.Errorf("%s probe aborted: %w", name, ctx.Err())
		}
	}

	return fmt.Errorf("%s probe failed after %d attempts: %s", name, attempts, last.Message)
}
