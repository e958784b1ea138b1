package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchback-run/switchback/pkg/config"
	"github.com/switchback-run/switchback/pkg/events"
	"github.com/switchback-run/switchback/pkg/monitor"
	"github.com/switchback-run/switchback/pkg/storage"
	"github.com/switchback-run/switchback/pkg/types"
)

// memStore is an in-memory storage.Store for controller tests
type memStore struct {
	mu     sync.Mutex
	states map[string]types.DeploymentState
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string]types.DeploymentState)}
}

func (m *memStore) SaveDeployment(state *types.DeploymentState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Environment] = *state
	return nil
}

func (m *memStore) GetDeployment(environment string) (*types.DeploymentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[environment]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := state
	return &out, nil
}

func (m *memStore) DeleteDeployment(environment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, environment)
	return nil
}

func (m *memStore) ListDeployments() ([]*types.DeploymentState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.DeploymentState
	for _, s := range m.states {
		copied := s
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

// fakeApplier records every infrastructure call in order
type fakeApplier struct {
	mu              sync.Mutex
	revisions       []string
	splits          []types.TrafficSplit
	decommissioned  []types.Color
	revisionErr     error
	trafficErr      error
	trafficErrAfter int // inject trafficErr only after this many successful calls
	decommissionErr error
}

func (f *fakeApplier) CreateOrUpdateRevision(_ context.Context, env string, color types.Color, image string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revisionErr != nil {
		return "", f.revisionErr
	}
	f.revisions = append(f.revisions, fmt.Sprintf("%s/%s/%s", env, color, image))
	return fmt.Sprintf("https://%s-%s.example.com", env, color), nil
}

func (f *fakeApplier) SetTrafficSplit(_ context.Context, _ string, split types.TrafficSplit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trafficErr != nil && len(f.splits) >= f.trafficErrAfter {
		return f.trafficErr
	}
	f.splits = append(f.splits, split)
	return nil
}

func (f *fakeApplier) Decommission(_ context.Context, _ string, color types.Color) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decommissionErr != nil {
		return f.decommissionErr
	}
	f.decommissioned = append(f.decommissioned, color)
	return nil
}

func (f *fakeApplier) lastSplit() types.TrafficSplit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.splits) == 0 {
		return nil
	}
	return f.splits[len(f.splits)-1]
}

type proberFunc func(ctx context.Context) error

func (f proberFunc) Probe(ctx context.Context) error { return f(ctx) }

type fakeMonitor struct {
	outcome monitor.Outcome
	err     error
}

func (f *fakeMonitor) Run(context.Context, string, types.Color) (monitor.Outcome, error) {
	return f.outcome, f.err
}

func testConfig() *config.Release {
	return &config.Release{
		Environment: "prod",
		Image:       "registry.example.com/app:v2",
		Canary:      config.CanaryConfig{Percent: 10},
		Promote: config.PromoteConfig{
			Steps:             []int{25, 50, 75, 100},
			SettleDelay:       config.Duration(time.Millisecond),
			DecommissionGrace: config.Duration(time.Millisecond),
		},
	}
}

func newTestController(t *testing.T) (*Controller, *fakeApplier, *memStore) {
	t.Helper()
	store := newMemStore()
	infra := &fakeApplier{}
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	c := New(testConfig(), store, infra, nil, broker, zerolog.Nop())
	c.sleep = func(context.Context, time.Duration) error { return nil }
	c.newProber = func(string) Prober {
		return proberFunc(func(context.Context) error { return nil })
	}
	c.newMonitor = func() MonitorRunner {
		return &fakeMonitor{outcome: monitor.Outcome{Passed: true, SampleCount: 10}}
	}
	return c, infra, store
}

func mustState(t *testing.T, store *memStore, env string) *types.DeploymentState {
	t.Helper()
	state, err := store.GetDeployment(env)
	require.NoError(t, err)
	return state
}

func TestDeploy_HealthyRevisionShiftsNoTraffic(t *testing.T) {
	c, infra, store := newTestController(t)

	err := c.Deploy(context.Background(), "prod")
	require.NoError(t, err)

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseGreenHealthy, state.Phase)
	assert.Equal(t, types.ColorBlue, state.ActiveColor)
	assert.Equal(t, types.ColorGreen, state.PendingColor)
	assert.Equal(t, "https://prod-green.example.com", state.PendingRevisionURL)

	assert.Equal(t, []string{"prod/green/registry.example.com/app:v2"}, infra.revisions)
	assert.Empty(t, infra.splits, "deploy must not touch traffic")
}

func TestDeploy_RefusesSecondDeployWhilePending(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))

	err := c.Deploy(context.Background(), "prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeploymentPending)
}

func TestDeploy_RevisionFailureLeavesTrafficUntouched(t *testing.T) {
	c, infra, store := newTestController(t)
	infra.revisionErr = errors.New("image pull backoff")

	err := c.Deploy(context.Background(), "prod")
	require.Error(t, err)

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseFailed, state.Phase)
	assert.Empty(t, infra.splits)

	// a failed cycle does not block the next deploy attempt
	infra.revisionErr = nil
	assert.NoError(t, c.Deploy(context.Background(), "prod"))
}

func TestDeploy_HealthGateFailureLeavesTrafficUntouched(t *testing.T) {
	c, infra, store := newTestController(t)
	c.newProber = func(string) Prober {
		return proberFunc(func(context.Context) error {
			return errors.New("readiness probe failed after 3 attempts")
		})
	}

	err := c.Deploy(context.Background(), "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "health gate")

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseFailed, state.Phase)
	assert.Empty(t, infra.splits)
}

func TestCanary_PassedWindowHoldsSplit(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))

	err := c.Canary(context.Background(), "prod")
	require.NoError(t, err)

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseCanary, state.Phase)
	assert.True(t, state.Split.Equal(types.TrafficSplit{
		types.ColorGreen: 10,
		types.ColorBlue:  90,
	}))
	assert.True(t, infra.lastSplit().Equal(state.Split))
}

// A failed canary restores 100% traffic to the active color and resets
// the cycle so a new deploy is accepted.
func TestCanary_FailedWindowRollsBack(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	c.newMonitor = func() MonitorRunner {
		return &fakeMonitor{outcome: monitor.Outcome{
			Passed:                    false,
			ConsecutiveFailuresAtExit: 3,
			SampleCount:               5,
		}}
	}

	err := c.Canary(context.Background(), "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolled back")

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseBlueActive, state.Phase)
	assert.Equal(t, types.ColorBlue, state.ActiveColor)
	assert.Empty(t, state.PendingColor)
	assert.True(t, infra.lastSplit().Equal(types.AllTo(types.ColorBlue)))

	assert.NoError(t, c.Deploy(context.Background(), "prod"))
}

func TestCanary_RequiresHealthyPendingRevision(t *testing.T) {
	c, _, _ := newTestController(t)

	err := c.Canary(context.Background(), "prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
}

// Cancelling mid-window behaves like a failure: traffic goes back to the
// active color before the error is reported.
func TestCanary_InterruptRollsBack(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	c.newMonitor = func() MonitorRunner {
		return &fakeMonitor{err: fmt.Errorf("monitoring aborted: %w", context.Canceled)}
	}

	err := c.Canary(context.Background(), "prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseBlueActive, state.Phase)
	assert.True(t, infra.lastSplit().Equal(types.AllTo(types.ColorBlue)))
}

func TestPromote_WalksStepsInOrderAndSwapsColors(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	require.NoError(t, c.Canary(context.Background(), "prod"))

	err := c.Promote(context.Background(), "prod")
	require.NoError(t, err)

	// canary split, then 25/50/75/100 toward green
	require.Len(t, infra.splits, 5)
	for i, want := range []int{10, 25, 50, 75, 100} {
		assert.Equal(t, want, infra.splits[i].Percent(types.ColorGreen), "split %d", i)
		assert.Equal(t, 100-want, infra.splits[i].Percent(types.ColorBlue), "split %d", i)
	}
	assert.Equal(t, []types.Color{types.ColorBlue}, infra.decommissioned)

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseBlueActive, state.Phase)
	assert.Equal(t, types.ColorGreen, state.ActiveColor, "green is the new active color")
	assert.Empty(t, state.PendingColor)
	assert.True(t, state.Split.Equal(types.AllTo(types.ColorGreen)))
}

func TestPromote_RequiresCompletedCanary(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))

	err := c.Promote(context.Background(), "prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
}

// An infrastructure error mid-walk is fatal: the controller stops without
// rolling back, and the persisted split reflects the last applied step.
func TestPromote_ApplierFailureAbortsWithoutRollback(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	require.NoError(t, c.Canary(context.Background(), "prod"))

	infra.trafficErr = errors.New("load balancer API unavailable")
	infra.trafficErrAfter = 3 // canary + 25% + 50% succeed, 75% fails

	err := c.Promote(context.Background(), "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "75%")

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhasePromoting, state.Phase)
	assert.Equal(t, 50, state.Split.Percent(types.ColorGreen))
	assert.Empty(t, infra.decommissioned)
}

func TestPromote_FinalHealthCheckFailureRollsBack(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	require.NoError(t, c.Canary(context.Background(), "prod"))

	probes := 0
	c.newProber = func(string) Prober {
		return proberFunc(func(context.Context) error {
			probes++
			return errors.New("readiness flapping")
		})
	}

	err := c.Promote(context.Background(), "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolled back")
	assert.Equal(t, 1, probes)

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseBlueActive, state.Phase)
	assert.Equal(t, types.ColorBlue, state.ActiveColor)
	assert.True(t, infra.lastSplit().Equal(types.AllTo(types.ColorBlue)))
	assert.Empty(t, infra.decommissioned)
}

// A crash between the role swap and the decommission leaves GREEN_ACTIVE
// persisted; re-running promote finishes the tail.
func TestPromote_ResumesDecommissionFromGreenActive(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	require.NoError(t, c.Canary(context.Background(), "prod"))

	infra.decommissionErr = errors.New("deadline exceeded")
	err := c.Promote(context.Background(), "prod")
	require.Error(t, err)

	state := mustState(t, store, "prod")
	require.Equal(t, types.PhaseGreenActive, state.Phase)
	require.Equal(t, types.ColorGreen, state.ActiveColor)

	infra.decommissionErr = nil
	require.NoError(t, c.Promote(context.Background(), "prod"))

	state = mustState(t, store, "prod")
	assert.Equal(t, types.PhaseBlueActive, state.Phase)
	assert.Equal(t, []types.Color{types.ColorBlue}, infra.decommissioned)
}

func TestRollback_NoMarkerIsNoOp(t *testing.T) {
	c, infra, _ := newTestController(t)

	err := c.Rollback(context.Background(), "prod")
	assert.NoError(t, err)
	assert.Empty(t, infra.splits)
}

// Rollback twice with nothing in between: the second call is a no-op and
// the end state is identical.
func TestRollback_Idempotent(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	require.NoError(t, c.Canary(context.Background(), "prod"))

	require.NoError(t, c.Rollback(context.Background(), "prod"))
	after := mustState(t, store, "prod")
	callsAfterFirst := len(infra.splits)

	require.NoError(t, c.Rollback(context.Background(), "prod"))
	again := mustState(t, store, "prod")

	assert.Equal(t, after.Phase, again.Phase)
	assert.Equal(t, after.ActiveColor, again.ActiveColor)
	assert.True(t, after.Split.Equal(again.Split))
	assert.Equal(t, callsAfterFirst, len(infra.splits), "second rollback must not reapply traffic")
}

func TestRollback_FromCanaryRestoresActiveColor(t *testing.T) {
	c, infra, store := newTestController(t)
	require.NoError(t, c.Deploy(context.Background(), "prod"))
	require.NoError(t, c.Canary(context.Background(), "prod"))

	require.NoError(t, c.Rollback(context.Background(), "prod"))

	state := mustState(t, store, "prod")
	assert.Equal(t, types.PhaseBlueActive, state.Phase)
	assert.Equal(t, types.ColorBlue, state.ActiveColor)
	assert.True(t, infra.lastSplit().Equal(types.AllTo(types.ColorBlue)))
}

func TestRollback_ClearsFailedMarker(t *testing.T) {
	c, infra, store := newTestController(t)
	infra.revisionErr = errors.New("registry unreachable")
	require.Error(t, c.Deploy(context.Background(), "prod"))
	require.Equal(t, types.PhaseFailed, mustState(t, store, "prod").Phase)

	require.NoError(t, c.Rollback(context.Background(), "prod"))
	assert.Equal(t, types.PhaseBlueActive, mustState(t, store, "prod").Phase)
}

func TestStatus_UnknownEnvironment(t *testing.T) {
	c, _, _ := newTestController(t)
	_, err := c.Status("prod")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// Full happy path twice over: after a promoted green release, the next
// deploy targets blue.
func TestFullCycle_AlternatesColors(t *testing.T) {
	c, infra, store := newTestController(t)
	ctx := context.Background()

	require.NoError(t, c.Deploy(ctx, "prod"))
	require.NoError(t, c.Canary(ctx, "prod"))
	require.NoError(t, c.Promote(ctx, "prod"))
	require.Equal(t, types.ColorGreen, mustState(t, store, "prod").ActiveColor)

	require.NoError(t, c.Deploy(ctx, "prod"))
	state := mustState(t, store, "prod")
	assert.Equal(t, types.ColorGreen, state.ActiveColor)
	assert.Equal(t, types.ColorBlue, state.PendingColor)
	assert.Contains(t, infra.revisions[len(infra.revisions)-1], "prod/blue/")
}
