package traffic

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/applier"
	"github.com/switchback-run/switchback/pkg/metrics"
	"github.com/switchback-run/switchback/pkg/types"
)

// Manager applies traffic splits through the infrastructure applier.
// Pure command: it validates and de-duplicates, but makes no
// promotion or rollback decisions.
type Manager struct {
	applier applier.Applier
	logger  zerolog.Logger

	mu          sync.Mutex
	lastApplied map[string]types.TrafficSplit
}

// NewManager creates a traffic manager backed by the given applier
func NewManager(a applier.Applier, logger zerolog.Logger) *Manager {
	return &Manager{
		applier:     a,
		logger:      logger,
		lastApplied: make(map[string]types.TrafficSplit),
	}
}

// Apply sets the environment's traffic split. An invalid split is
// rejected before any applier call. Re-applying the split that is
// already live is a successful no-op, which makes repeated rollbacks
// safe.
func (m *Manager) Apply(ctx context.Context, environment string, split types.TrafficSplit) error {
	if err := split.Validate(); err != nil {
		return fmt.Errorf("refusing traffic change: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.lastApplied[environment]; ok && last.Equal(split) {
		m.logger.Debug().
			Str("environment", environment).
			Int("blue", split.Percent(types.ColorBlue)).
			Int("green", split.Percent(types.ColorGreen)).
			Msg("traffic split already applied, skipping")
		return nil
	}

	if err := m.applier.SetTrafficSplit(ctx, environment, split); err != nil {
		return fmt.Errorf("traffic split failed: %w", err)
	}

	m.lastApplied[environment] = split
	for _, c := range []types.Color{types.ColorBlue, types.ColorGreen} {
		metrics.TrafficSplitPercent.WithLabelValues(environment, string(c)).Set(float64(split.Percent(c)))
	}

	m.logger.Info().
		Str("environment", environment).
		Int("blue", split.Percent(types.ColorBlue)).
		Int("green", split.Percent(types.ColorGreen)).
		Msg("traffic split applied")
	return nil
}

// RouteAll shifts 100% of traffic to a single color. This is the
// rollback primitive and must always be callable.
func (m *Manager) RouteAll(ctx context.Context, environment string, color types.Color) error {
	return m.Apply(ctx, environment, types.AllTo(color))
}
