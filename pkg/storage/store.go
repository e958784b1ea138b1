package storage

import (
	"errors"

	"github.com/switchback-run/switchback/pkg/types"
)

// ErrNotFound is returned when no deployment state exists for an environment.
// Its absence means "no pending deployment" to the controller.
var ErrNotFound = errors.New("deployment state not found")

// Store defines the interface for deployment state persistence.
// Implemented by BoltDB-backed storage; tests may substitute an in-memory store.
type Store interface {
	// SaveDeployment persists the state for its environment (upsert)
	SaveDeployment(state *types.DeploymentState) error

	// GetDeployment returns the state for an environment, or ErrNotFound
	GetDeployment(environment string) (*types.DeploymentState, error)

	// DeleteDeployment removes the state marker for an environment.
	// Deleting a missing marker is not an error.
	DeleteDeployment(environment string) error

	// ListDeployments returns state for all known environments
	ListDeployments() ([]*types.DeploymentState, error)

	// Close releases the store and the environment lock it holds
	Close() error
}
