package applier

import (
	"context"

	"github.com/switchback-run/switchback/pkg/types"
)

// Applier provisions and mutates the underlying infrastructure for an
// environment. Calls are synchronous-to-completion: when a method
// returns nil the change is live.
//
// Failures are fatal to the calling operation and are never retried
// here; a failed traffic shift must not be assumed to have partially
// succeeded.
type Applier interface {
	// CreateOrUpdateRevision deploys the image as the given color and
	// returns the revision's addressable URL
	CreateOrUpdateRevision(ctx context.Context, environment string, color types.Color, imageRef string) (string, error)

	// SetTrafficSplit updates the traffic percentages for the environment
	SetTrafficSplit(ctx context.Context, environment string, split types.TrafficSplit) error

	// Decommission removes the revision of the given color
	Decommission(ctx context.Context, environment string, color types.Color) error
}
