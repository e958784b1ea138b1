/*
Package storage provides persistent deployment state storage for Switchback.

The controller records one DeploymentState per environment so that a
crashed or interrupted invocation can be inspected, resumed, or rolled
back. State lives in an embedded BoltDB database, keeping the single-binary
deployment model: no external database is required.

# Architecture

	┌──────────────────────────────────────────┐
	│              Store Interface             │
	│  • SaveDeployment(state)                 │
	│  • GetDeployment(env) / ErrNotFound      │
	│  • DeleteDeployment(env)                 │
	│  • ListDeployments()                     │
	└────────────────────┬─────────────────────┘
	                     │
	                     ▼
	          ┌────────────────────┐
	          │     BoltStore      │
	          │  switchback.db     │
	          │  bucket:           │
	          │   deployments      │
	          └────────────────────┘

Values are JSON-encoded DeploymentState records keyed by environment name.
JSON keeps the database inspectable with standard Bolt tooling during
incident response.

# Locking

BoltDB holds an exclusive file lock for the lifetime of the open handle.
Switchback relies on this as its mutual-exclusion primitive: two
simultaneous invocations against the same state directory cannot both open
the database, so concurrent deploy/rollback runs for an environment are
rejected at startup rather than interleaved. The open timeout is two
seconds; the second process reports "another switchback running?".

# Absence Semantics

GetDeployment returns ErrNotFound when no record exists. The controller
interprets absence as "no pending deployment": rollback becomes a no-op
and deploy starts a fresh cycle from the steady state.

# Usage

	store, err := storage.NewBoltStore("/var/lib/switchback")
	if err != nil {
		return err // likely lock contention
	}
	defer store.Close()

	state, err := store.GetDeployment("production")
	if errors.Is(err, storage.ErrNotFound) {
		// nothing in flight
	}

# See Also

  - pkg/controller - Sole writer of deployment state
  - pkg/types - DeploymentState definition
*/
package storage
