/*
Package types defines the core data structures shared across Switchback packages.

This package contains the domain vocabulary of blue-green releases: the two
revision colors, the deployment phase enumeration, traffic splits, and the
persisted DeploymentState record. It has no dependencies on other Switchback
packages, allowing all components to share these types without circular imports.

# Type Hierarchy

	DeploymentState (one per environment)
	├── ActiveColor / PendingColor (Color)
	├── Split (TrafficSplit, color → percent)
	└── Phase (deployment cycle state)

# Phase Lifecycle

A deployment cycle moves through phases in a fixed order:

	BLUE_ACTIVE ──deploy──▶ GREEN_DEPLOYING ──health gate──▶ GREEN_HEALTHY
	                              │                               │
	                              ▼                            canary
	                           FAILED                             │
	                                                              ▼
	       BLUE_ACTIVE ◀── GREEN_ACTIVE ◀──promote── PROMOTING ◀─ CANARY
	            ▲                                        │           │
	            └──────────── ROLLING_BACK ◀─────────────┴───────────┘

BLUE_ACTIVE is the only steady state. Exactly one color holds 100% of
traffic in every phase except CANARY and PROMOTING, where the split is
defined by the current step.

# Traffic Splits

TrafficSplit is a mapping from color to percentage. Valid splits always
sum to exactly 100:

	split := types.TrafficSplit{types.ColorGreen: 10, types.ColorBlue: 90}
	if err := split.Validate(); err != nil {
		// rejected before reaching the infrastructure
	}

AllTo builds the 100/0 split used as the rollback primitive.

# Design Notes

Colors are labels, not roles: after a completed promotion the previously
pending color becomes the active one, and the next deploy targets the
other color. Nothing in the system assumes blue deployed first.

# See Also

  - pkg/controller - Owns and mutates DeploymentState
  - pkg/storage - Persists DeploymentState between invocations
  - pkg/traffic - Applies TrafficSplit values
*/
package types
