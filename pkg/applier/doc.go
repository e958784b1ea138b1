/*
Package applier defines the boundary between the release controller and
the infrastructure that actually provisions revisions and routes traffic.

The controller never talks to a cloud API directly. Everything it needs
from the platform reduces to three synchronous operations:

	CreateOrUpdateRevision(env, color, image) → revisionURL
	SetTrafficSplit(env, color→percent)
	Decommission(env, color)

# Failure Contract

Applier calls are never retried by the controller. A failed traffic shift
cannot be assumed to have partially succeeded, so the only safe reactions
are aborting the operation or forcing a full rollback — both decisions
belong to the controller, not to this package.

# ExecApplier

The shipped implementation shells out to an operator-provided
provisioning command, which keeps Switchback agnostic of the platform
(Cloud Run, ECS, a terraform wrapper) while the command owns credentials
and resource naming:

	applier:
	  command: ./infra/apply.sh
	  timeout: 5m

Invocation shape:

	apply.sh revision production green registry/app:v2
	  → {"url": "https://app-green.prod.example.com"}
	apply.sh traffic production blue=90 green=10
	apply.sh decommission production blue

The revision subcommand must print a JSON object with a url field on
stdout. Non-zero exit codes surface as fatal applier errors with stderr
attached to the error message.

# See Also

  - pkg/traffic - Validates and de-duplicates SetTrafficSplit calls
  - pkg/controller - Decides when each operation runs
*/
package applier
