/*
Package traffic applies traffic-percentage splits between the two revision
colors of an environment.

The manager is a pure command layer over the infrastructure applier. It
owns two concerns and nothing else:

  - Validation: a split that does not sum to exactly 100 never reaches
    the infrastructure.
  - Idempotence: re-applying the split that is already live succeeds
    without an applier call, so rollback can be invoked any number of
    times.

All decision logic — which split to apply, when, and what to do on
failure — lives in pkg/controller. Traffic changes are strictly ordered
by the caller; the manager never batches or reorders.

# Usage

	tm := traffic.NewManager(infraApplier, log.WithComponent("traffic"))

	// canary split
	err := tm.Apply(ctx, "production", types.TrafficSplit{
		types.ColorGreen: 10,
		types.ColorBlue:  90,
	})

	// rollback primitive
	err = tm.RouteAll(ctx, "production", types.ColorBlue)

# See Also

  - pkg/applier - Executes the underlying infrastructure change
  - pkg/controller - Sequences splits during canary and promotion
*/
package traffic
