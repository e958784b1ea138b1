package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/applier"
	"github.com/switchback-run/switchback/pkg/config"
	"github.com/switchback-run/switchback/pkg/events"
	"github.com/switchback-run/switchback/pkg/health"
	"github.com/switchback-run/switchback/pkg/metrics"
	"github.com/switchback-run/switchback/pkg/monitor"
	"github.com/switchback-run/switchback/pkg/storage"
	"github.com/switchback-run/switchback/pkg/traffic"
	"github.com/switchback-run/switchback/pkg/types"
)

var (
	// ErrDeploymentPending is returned when deploy is invoked while a
	// prior cycle exists for the environment
	ErrDeploymentPending = errors.New("a deployment is already pending; rollback or promote it first")

	// ErrPrecondition is returned when an operation is invoked in a
	// phase it does not accept. No side effects have occurred.
	ErrPrecondition = errors.New("operation precondition not met")
)

// Prober is the health gate run against a revision URL
type Prober interface {
	Probe(ctx context.Context) error
}

// MonitorRunner executes one canary monitoring window
type MonitorRunner interface {
	Run(ctx context.Context, environment string, color types.Color) (monitor.Outcome, error)
}

// Controller orchestrates the full blue-green release lifecycle for an
// environment: deploy, canary, graduated promotion, rollback. It is the
// sole owner of the persisted DeploymentState.
type Controller struct {
	cfg     *config.Release
	store   storage.Store
	applier applier.Applier
	traffic *traffic.Manager
	broker  *events.Broker
	logger  zerolog.Logger

	// seams for tests
	newProber  func(url string) Prober
	newMonitor func() MonitorRunner
	sleep      func(ctx context.Context, d time.Duration) error
}

// New wires a controller from its collaborators
func New(cfg *config.Release, store storage.Store, infra applier.Applier, source monitor.Source, broker *events.Broker, logger zerolog.Logger) *Controller {
	c := &Controller{
		cfg:     cfg,
		store:   store,
		applier: infra,
		traffic: traffic.NewManager(infra, logger.With().Str("component", "traffic").Logger()),
		broker:  broker,
		logger:  logger,
	}
	c.newProber = func(url string) Prober {
		return health.NewProber(cfg.HealthSpec(url), logger.With().Str("component", "health").Logger())
	}
	c.newMonitor = func() MonitorRunner {
		return monitor.New(source, cfg.MonitorSettings(), logger.With().Str("component", "monitor").Logger())
	}
	c.sleep = sleepCtx
	return c
}

// Deploy creates the pending-color revision and runs the health gate.
// No traffic is shifted; a failed deploy leaves the live split untouched.
func (c *Controller) Deploy(ctx context.Context, environment string) error {
	state, err := c.loadState(environment)
	if err != nil {
		return err
	}

	if state.HasPending() {
		return fmt.Errorf("%w (environment %s is %s)", ErrDeploymentPending, environment, state.Phase)
	}
	if state.Phase == types.PhaseRollingBack {
		return fmt.Errorf("%w: a rollback is in progress for %s; run rollback to completion first", ErrPrecondition, environment)
	}

	pending := state.ActiveColor.Other()
	state.ID = uuid.New().String()
	state.PendingColor = pending
	state.ImageRef = c.cfg.Image
	state.Phase = types.PhaseGreenDeploying
	state.StartedAt = time.Now()
	if err := c.save(state); err != nil {
		return err
	}

	c.logger.Info().
		Str("environment", environment).
		Str("color", string(pending)).
		Str("image", c.cfg.Image).
		Msg("deploying pending revision")
	c.broker.Publish(events.EventDeployStarted, environment,
		fmt.Sprintf("deploying %s as %s", c.cfg.Image, pending),
		map[string]string{"color": string(pending), "image": c.cfg.Image})

	url, err := c.applier.CreateOrUpdateRevision(ctx, environment, pending, c.cfg.Image)
	if err != nil {
		c.recordFailure(state)
		metrics.DeploysTotal.WithLabelValues("failed").Inc()
		c.broker.Publish(events.EventDeployFailed, environment, err.Error(), nil)
		return fmt.Errorf("failed to create %s revision: %w", pending, err)
	}

	if err := c.newProber(url).Probe(ctx); err != nil {
		c.recordFailure(state)
		metrics.DeploysTotal.WithLabelValues("failed").Inc()
		c.broker.Publish(events.EventDeployFailed, environment, err.Error(), nil)
		return fmt.Errorf("%s revision failed the health gate, no traffic shifted: %w", pending, err)
	}

	state.PendingRevisionURL = url
	state.Phase = types.PhaseGreenHealthy
	if err := c.save(state); err != nil {
		return err
	}

	metrics.DeploysTotal.WithLabelValues("succeeded").Inc()
	c.broker.Publish(events.EventDeployHealthy, environment,
		fmt.Sprintf("%s revision healthy at %s", pending, url),
		map[string]string{"color": string(pending), "url": url})
	c.logger.Info().
		Str("environment", environment).
		Str("url", url).
		Msg("pending revision healthy, traffic unchanged")
	return nil
}

// Canary shifts a minority traffic share to the pending color and runs
// the metrics monitor for the canary window. A failed window triggers an
// automatic rollback.
func (c *Controller) Canary(ctx context.Context, environment string) error {
	state, err := c.loadState(environment)
	if err != nil {
		return err
	}
	if state.Phase != types.PhaseGreenHealthy {
		return fmt.Errorf("%w: canary requires a healthy pending revision (environment %s is %s)",
			ErrPrecondition, environment, state.Phase)
	}

	split := types.TrafficSplit{
		state.PendingColor: c.cfg.Canary.Percent,
		state.ActiveColor:  100 - c.cfg.Canary.Percent,
	}
	if err := c.traffic.Apply(ctx, environment, split); err != nil {
		return err
	}
	state.Phase = types.PhaseCanary
	state.Split = split
	if err := c.save(state); err != nil {
		return err
	}

	c.broker.Publish(events.EventCanaryStarted, environment,
		fmt.Sprintf("%d%% traffic to %s", c.cfg.Canary.Percent, state.PendingColor),
		map[string]string{"color": string(state.PendingColor)})

	outcome, err := c.newMonitor().Run(ctx, environment, state.PendingColor)
	if err != nil {
		// Interrupt path: restore traffic before reporting, using a
		// context that survives the cancellation that got us here
		if rbErr := c.rollbackPending(context.WithoutCancel(ctx), state, "interrupt"); rbErr != nil {
			return fmt.Errorf("canary aborted (%v) and rollback failed: %w", err, rbErr)
		}
		return fmt.Errorf("canary aborted, traffic restored to %s: %w", state.ActiveColor, err)
	}

	if !outcome.Passed {
		c.broker.Publish(events.EventCanaryFailed, environment,
			fmt.Sprintf("%d consecutive failing cycles after %d samples",
				outcome.ConsecutiveFailuresAtExit, outcome.SampleCount), nil)
		if rbErr := c.rollbackPending(ctx, state, "canary_failed"); rbErr != nil {
			return fmt.Errorf("canary failed and rollback failed: %w", rbErr)
		}
		return fmt.Errorf("canary failed after %d consecutive failing cycles (%d samples observed); traffic rolled back to %s",
			outcome.ConsecutiveFailuresAtExit, outcome.SampleCount, state.ActiveColor)
	}

	state.UpdatedAt = time.Now()
	if err := c.save(state); err != nil {
		return err
	}
	c.broker.Publish(events.EventCanaryPassed, environment,
		fmt.Sprintf("%d samples within thresholds", outcome.SampleCount), nil)
	c.logger.Info().
		Str("environment", environment).
		Int("samples", outcome.SampleCount).
		Msg("canary window passed, ready to promote")
	return nil
}

// Promote walks traffic through the configured step sequence toward the
// pending color, re-checks health at 100%, swaps color roles, and
// decommissions the old revision after the grace delay.
func (c *Controller) Promote(ctx context.Context, environment string) error {
	state, err := c.loadState(environment)
	if err != nil {
		return err
	}

	switch state.Phase {
	case types.PhaseCanary:
		// normal path
	case types.PhaseGreenActive:
		// promotion already at 100%; resume the decommission tail
		return c.finishPromotion(ctx, state)
	default:
		return fmt.Errorf("%w: promote requires a completed canary (environment %s is %s)",
			ErrPrecondition, environment, state.Phase)
	}

	pending := state.PendingColor
	state.Phase = types.PhasePromoting
	if err := c.save(state); err != nil {
		return err
	}

	// Strictly ordered: each step's safety assessment assumes the
	// previous percentage is already live
	for _, step := range c.cfg.Promote.Steps {
		split := types.TrafficSplit{
			pending:           step,
			state.ActiveColor: 100 - step,
		}
		if err := c.traffic.Apply(ctx, environment, split); err != nil {
			return fmt.Errorf("promotion aborted at %d%% (state preserved, re-run promote or rollback): %w", step, err)
		}
		state.Split = split
		if err := c.save(state); err != nil {
			return err
		}
		metrics.PromotionStepsTotal.Inc()
		c.broker.Publish(events.EventPromoteStep, environment,
			fmt.Sprintf("%d%% traffic to %s", step, pending),
			map[string]string{"percent": fmt.Sprintf("%d", step)})

		if step < 100 {
			if err := c.sleep(ctx, c.cfg.Promote.SettleDelay.Std()); err != nil {
				if rbErr := c.rollbackPending(context.WithoutCancel(ctx), state, "interrupt"); rbErr != nil {
					return fmt.Errorf("promotion interrupted and rollback failed: %w", rbErr)
				}
				return fmt.Errorf("promotion interrupted, traffic restored to %s: %w", state.ActiveColor, err)
			}
		}
	}

	// One more health pass before the roles swap becomes permanent
	if err := c.newProber(state.PendingRevisionURL).Probe(ctx); err != nil {
		if rbErr := c.rollbackPending(context.WithoutCancel(ctx), state, "promote_failed"); rbErr != nil {
			return fmt.Errorf("final health check failed and rollback failed: %w", rbErr)
		}
		return fmt.Errorf("final health check failed, traffic rolled back to %s: %w", state.ActiveColor, err)
	}

	state.ActiveColor = pending
	state.PendingColor = ""
	state.Phase = types.PhaseGreenActive
	if err := c.save(state); err != nil {
		return err
	}
	c.logger.Info().
		Str("environment", environment).
		Str("color", string(pending)).
		Msg("color roles swapped, old revision pending decommission")

	return c.finishPromotion(ctx, state)
}

// finishPromotion waits out the grace delay and removes the old revision
func (c *Controller) finishPromotion(ctx context.Context, state *types.DeploymentState) error {
	old := state.ActiveColor.Other()

	if err := c.sleep(ctx, c.cfg.Promote.DecommissionGrace.Std()); err != nil {
		return fmt.Errorf("decommission wait interrupted, re-run promote to finish: %w", err)
	}
	if err := c.applier.Decommission(ctx, state.Environment, old); err != nil {
		return fmt.Errorf("failed to decommission %s, re-run promote to retry: %w", old, err)
	}

	active := state.ActiveColor
	state.Steady(active)
	if err := c.save(state); err != nil {
		return err
	}

	c.broker.Publish(events.EventPromoteCompleted, state.Environment,
		fmt.Sprintf("%s serving 100%%, %s decommissioned", active, old),
		map[string]string{"color": string(active)})
	c.logger.Info().
		Str("environment", state.Environment).
		Str("color", string(active)).
		Msg("promotion complete")
	return nil
}

// Rollback forces traffic back to the color that was active before the
// current cycle began. Safe to call at any time: with nothing in flight
// it is a successful no-op. This is also the panic and interrupt path,
// so it depends on no previous step having completed.
func (c *Controller) Rollback(ctx context.Context, environment string) error {
	state, err := c.store.GetDeployment(environment)
	if errors.Is(err, storage.ErrNotFound) {
		c.logger.Info().Str("environment", environment).Msg("no pending deployment, nothing to roll back")
		return nil
	}
	if err != nil {
		return err
	}

	if !state.HasPending() && state.Phase != types.PhaseRollingBack {
		if state.Phase == types.PhaseFailed {
			// clear the failed marker so the next deploy starts clean
			state.Steady(state.ActiveColor)
			if err := c.save(state); err != nil {
				return err
			}
		}
		c.logger.Info().
			Str("environment", environment).
			Str("color", string(state.ActiveColor)).
			Msg("no rollout in progress, traffic already on active color")
		return nil
	}

	return c.rollbackPending(ctx, state, "operator")
}

// rollbackPending restores 100% traffic to the originally active color
// and resets the cycle
func (c *Controller) rollbackPending(ctx context.Context, state *types.DeploymentState, reason string) error {
	target := state.ActiveColor
	if state.Phase == types.PhaseGreenActive {
		// roles already swapped; the original color is the other one
		target = state.ActiveColor.Other()
	}

	state.Phase = types.PhaseRollingBack
	if err := c.save(state); err != nil {
		return err
	}
	metrics.RollbacksTotal.WithLabelValues(reason).Inc()
	c.broker.Publish(events.EventRollbackStarted, state.Environment,
		fmt.Sprintf("restoring 100%% traffic to %s (%s)", target, reason),
		map[string]string{"reason": reason})

	if err := c.traffic.RouteAll(ctx, state.Environment, target); err != nil {
		return fmt.Errorf("rollback failed to restore traffic to %s: %w", target, err)
	}

	state.Steady(target)
	if err := c.save(state); err != nil {
		return err
	}

	c.broker.Publish(events.EventRollbackCompleted, state.Environment,
		fmt.Sprintf("traffic restored to %s", target), nil)
	c.logger.Info().
		Str("environment", state.Environment).
		Str("color", string(target)).
		Str("reason", reason).
		Msg("rollback complete")
	return nil
}

// Status returns the persisted state for an environment, or ErrNotFound
func (c *Controller) Status(environment string) (*types.DeploymentState, error) {
	return c.store.GetDeployment(environment)
}

// loadState fetches the environment's state, synthesizing the initial
// steady state when none exists yet
func (c *Controller) loadState(environment string) (*types.DeploymentState, error) {
	state, err := c.store.GetDeployment(environment)
	if errors.Is(err, storage.ErrNotFound) {
		state = &types.DeploymentState{
			ID:          uuid.New().String(),
			Environment: environment,
			StartedAt:   time.Now(),
		}
		state.Steady(types.ColorBlue)
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment state: %w", err)
	}
	return state, nil
}

// save persists the state with a fresh update timestamp
func (c *Controller) save(state *types.DeploymentState) error {
	state.UpdatedAt = time.Now()
	if err := c.store.SaveDeployment(state); err != nil {
		return fmt.Errorf("failed to persist deployment state: %w", err)
	}
	return nil
}

// recordFailure marks the cycle failed; best effort, the operation error
// is the one reported to the caller
func (c *Controller) recordFailure(state *types.DeploymentState) {
	state.Phase = types.PhaseFailed
	if err := c.save(state); err != nil {
		c.logger.Error().Err(err).Msg("failed to record deployment failure")
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
