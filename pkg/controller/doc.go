// Package controller implements the deployment state machine that drives
// a blue-green release through its lifecycle.
//
// # Overview
//
// The controller is the only writer of the persisted DeploymentState. Each
// operator command maps to exactly one controller operation, and each
// operation validates the current phase before taking any action:
//
//	┌─────────────┐  deploy   ┌─────────────────┐  health gate  ┌───────────────┐
//	│ BLUE_ACTIVE ├──────────►│ GREEN_DEPLOYING ├──────────────►│ GREEN_HEALTHY │
//	└─────────────┘           └───────┬─────────┘               └──────┬────────┘
//	      ▲                           │ probe fails                    │ canary
//	      │                           ▼                                ▼
//	      │                      ┌────────┐                      ┌────────┐
//	      │                      │ FAILED │                      │ CANARY │
//	      │                      └────────┘                      └───┬────┘
//	      │                                                         │ promote
//	      │  rollback / grace    ┌──────────────┐   step walk   ┌───▼───────┐
//	      └──────────────────────┤ GREEN_ACTIVE │◄──────────────┤ PROMOTING │
//	                             └──────────────┘               └───────────┘
//
// Canary or promotion failures, and operator interrupts during either,
// route through ROLLING_BACK back to the steady state on the originally
// active color.
//
// # Operations
//
//   - Deploy: creates the idle-color revision and gates it on health
//     probes. Traffic is never shifted by deploy.
//   - Canary: applies the minority split and runs the metrics monitor for
//     the full window. A failed window rolls back automatically.
//   - Promote: walks traffic through the configured steps with a settle
//     delay between them, re-checks health at 100%, swaps color roles and
//     decommissions the old revision after a grace delay.
//   - Rollback: restores 100% traffic to the previously active color.
//     Idempotent and safe to invoke at any time; with no cycle in flight
//     it is a no-op that still exits successfully.
//
// # Usage
//
//	ctrl := controller.New(cfg, store, infra, source, broker, logger)
//	if err := ctrl.Deploy(ctx, "production"); err != nil {
//	    return err
//	}
//	if err := ctrl.Canary(ctx, "production"); err != nil {
//	    return err // traffic already restored on failure
//	}
//	if err := ctrl.Promote(ctx, "production"); err != nil {
//	    return err
//	}
//
// # Failure Semantics
//
// Infrastructure (applier) errors are fatal and never retried: the
// controller stops with the persisted state reflecting the last completed
// step, and the operator decides between re-running the operation and
// rolling back. Health and monitoring failures are expected outcomes and
// trigger the automatic rollback path.
//
// # See Also
//
//   - pkg/monitor for the canary evaluation loop
//   - pkg/health for the probe gate
//   - pkg/traffic for idempotent split application
//   - pkg/storage for state persistence
package controller
