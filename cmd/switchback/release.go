package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/switchback-run/switchback/pkg/storage"
	"github.com/switchback-run/switchback/pkg/types"
)

var deployCmd = &cobra.Command{
	Use:   "deploy ENVIRONMENT",
	Short: "Deploy the release image to the idle color",
	Long: `Deploy creates or updates the idle-color revision with the image from
the release spec and gates it on health probes. Traffic is not shifted;
a healthy deploy is followed by 'switchback canary'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, args[0], func(ctx context.Context, rt *runtime, env string) error {
			if err := rt.controller.Deploy(ctx, env); err != nil {
				return err
			}
			fmt.Printf("Deployed %s to %s, revision healthy. Next: switchback canary %s\n",
				rt.cfg.Image, env, env)
			return nil
		})
	},
}

var canaryCmd = &cobra.Command{
	Use:   "canary ENVIRONMENT",
	Short: "Send a minority traffic share to the new revision and watch metrics",
	Long: `Canary shifts the configured minority percentage of traffic to the
pending revision and monitors error rate and latency for the full
window. A failing window rolls traffic back automatically; Ctrl-C does
the same.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, args[0], func(ctx context.Context, rt *runtime, env string) error {
			if err := rt.controller.Canary(ctx, env); err != nil {
				return err
			}
			fmt.Printf("Canary passed on %s. Next: switchback promote %s\n", env, env)
			return nil
		})
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote ENVIRONMENT",
	Short: "Walk traffic to 100% on the new revision and retire the old one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, args[0], func(ctx context.Context, rt *runtime, env string) error {
			if err := rt.controller.Promote(ctx, env); err != nil {
				return err
			}
			fmt.Printf("Promotion complete on %s.\n", env)
			return nil
		})
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback ENVIRONMENT",
	Short: "Restore 100% traffic to the previously active color",
	Long: `Rollback forces all traffic back to the color that was active before
the current release cycle started. It is safe to run at any point,
including when nothing is in flight.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, args[0], func(ctx context.Context, rt *runtime, env string) error {
			if err := rt.controller.Rollback(ctx, env); err != nil {
				return err
			}
			fmt.Printf("Rollback complete on %s.\n", env)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status ENVIRONMENT",
	Short: "Show the deployment state for an environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRelease(cmd, args[0], func(_ context.Context, rt *runtime, env string) error {
			state, err := rt.controller.Status(env)
			if errors.Is(err, storage.ErrNotFound) {
				fmt.Printf("No deployment recorded for %s\n", env)
				return nil
			}
			if err != nil {
				return err
			}
			printState(state)
			return nil
		})
	},
}

// runRelease wires the runtime, installs signal handling, and runs one
// release operation against it
func runRelease(cmd *cobra.Command, environment string, fn func(context.Context, *runtime, string) error) error {
	rt, err := setup(cmd, environment)
	if err != nil {
		return err
	}
	defer rt.close()

	// Ctrl-C cancels the operation; the controller turns a cancelled
	// canary or promotion into a rollback before returning
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, rt, environment)
}

func printState(state *types.DeploymentState) {
	fmt.Printf("Environment:  %s\n", state.Environment)
	fmt.Printf("Phase:        %s\n", state.Phase)
	fmt.Printf("Active:       %s\n", state.ActiveColor)
	if state.PendingColor != "" {
		fmt.Printf("Pending:      %s\n", state.PendingColor)
	}
	if state.ImageRef != "" {
		fmt.Printf("Image:        %s\n", state.ImageRef)
	}
	if state.PendingRevisionURL != "" {
		fmt.Printf("Revision URL: %s\n", state.PendingRevisionURL)
	}
	var parts []string
	for _, c := range []types.Color{types.ColorBlue, types.ColorGreen} {
		parts = append(parts, fmt.Sprintf("%s=%d%%", c, state.Split.Percent(c)))
	}
	fmt.Printf("Traffic:      %s\n", strings.Join(parts, " "))
	fmt.Printf("Updated:      %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
}
