package applier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/types"
)

// ExecApplier shells out to a provisioning command (a terraform or
// gcloud wrapper) for each infrastructure mutation. The command contract:
//
//	<cmd> [args...] revision <env> <color> <image>   → {"url": "..."} on stdout
//	<cmd> [args...] traffic <env> blue=N green=M
//	<cmd> [args...] decommission <env> <color>
//
// A non-zero exit code is a fatal applier error.
type ExecApplier struct {
	Command string
	Args    []string
	Timeout time.Duration

	logger zerolog.Logger
}

// revisionOutput is the JSON handshake printed by the revision subcommand
type revisionOutput struct {
	URL string `json:"url"`
}

// NewExecApplier creates an applier that invokes the given command
func NewExecApplier(command string, args []string, timeout time.Duration, logger zerolog.Logger) *ExecApplier {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &ExecApplier{
		Command: command,
		Args:    args,
		Timeout: timeout,
		logger:  logger,
	}
}

// CreateOrUpdateRevision provisions the color's revision and parses its URL
func (a *ExecApplier) CreateOrUpdateRevision(ctx context.Context, environment string, color types.Color, imageRef string) (string, error) {
	stdout, err := a.run(ctx, "revision", environment, string(color), imageRef)
	if err != nil {
		return "", err
	}

	var out revisionOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return "", fmt.Errorf("applier revision output is not valid JSON: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("applier revision output missing url field")
	}
	return out.URL, nil
}

// SetTrafficSplit applies the split as color=percent arguments
func (a *ExecApplier) SetTrafficSplit(ctx context.Context, environment string, split types.TrafficSplit) error {
	args := []string{"traffic", environment}

	// Deterministic argument order for reproducible invocations
	colors := make([]string, 0, len(split))
	for c := range split {
		colors = append(colors, string(c))
	}
	sort.Strings(colors)
	for _, c := range colors {
		args = append(args, fmt.Sprintf("%s=%d", c, split[types.Color(c)]))
	}

	_, err := a.run(ctx, args...)
	return err
}

// Decommission removes the color's revision
func (a *ExecApplier) Decommission(ctx context.Context, environment string, color types.Color) error {
	_, err := a.run(ctx, "decommission", environment, string(color))
	return err
}

// run executes one applier invocation with the configured timeout
func (a *ExecApplier) run(ctx context.Context, subArgs ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	args := append(append([]string{}, a.Args...), subArgs...)
	cmd := exec.CommandContext(runCtx, a.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	a.logger.Debug().Str("command", a.Command).Strs("args", args).Msg("invoking applier")

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("applier %s timed out after %v: %w", subArgs[0], a.Timeout, runCtx.Err())
		}
		return nil, fmt.Errorf("applier %s failed: %w: %s", subArgs[0], err, bytes.TrimSpace(stderr.Bytes()))
	}

	return stdout.Bytes(), nil
}
