package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/switchback-run/switchback/pkg/applier"
	"github.com/switchback-run/switchback/pkg/config"
	"github.com/switchback-run/switchback/pkg/controller"
	"github.com/switchback-run/switchback/pkg/events"
	"github.com/switchback-run/switchback/pkg/log"
	"github.com/switchback-run/switchback/pkg/metrics"
	"github.com/switchback-run/switchback/pkg/metricsource"
	"github.com/switchback-run/switchback/pkg/monitor"
	"github.com/switchback-run/switchback/pkg/storage"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "switchback",
	Short: "Switchback - blue-green release controller",
	Long: `Switchback drives blue-green releases through an explicit lifecycle:
deploy the idle color, canary a minority traffic share against live
metrics, promote traffic in graduated steps, and roll back instantly
when anything looks wrong.

State is persisted per environment, so every step survives a restart
and can be resumed or reverted.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Switchback version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "f", "release.yaml", "Release spec file")
	rootCmd.PersistentFlags().String("state-dir", "./switchback-data", "Directory for persisted deployment state")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "Structured JSON log output")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(canaryCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(statusCmd)
}

// runtime bundles everything a release command needs
type runtime struct {
	cfg        *config.Release
	controller *controller.Controller
	store      storage.Store
	broker     *events.Broker
}

func (r *runtime) close() {
	r.broker.Stop()
	if err := r.store.Close(); err != nil {
		log.Errorf("failed to close state store", err)
	}
}

// setup loads configuration and wires the controller. The returned
// runtime must be closed by the caller.
func setup(cmd *cobra.Command, environment string) (*runtime, error) {
	// Optional .env for credentials (Prometheus auth, AWS keys)
	_ = godotenv.Load()

	logLevel, _ := cmd.Flags().GetString("log-level")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: jsonOutput})

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Environment != environment {
		return nil, fmt.Errorf("release spec %s is for environment %q, not %q",
			configPath, cfg.Environment, environment)
	}

	stateDir, _ := cmd.Flags().GetString("state-dir")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	store, err := storage.NewBoltStore(stateDir)
	if err != nil {
		return nil, err
	}

	source, err := buildMetricSource(cmd, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	infra := applier.NewExecApplier(cfg.Applier.Command, cfg.Applier.Args,
		cfg.Applier.Timeout.Std(), log.WithComponent("applier"))

	broker := events.NewBroker()
	broker.Start()
	go logEvents(broker)

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go serveMetrics(addr)
	}

	logger := log.WithEnvironment(environment)
	ctrl := controller.New(cfg, store, infra, source, broker, logger)

	return &runtime{cfg: cfg, controller: ctrl, store: store, broker: broker}, nil
}

func buildMetricSource(cmd *cobra.Command, cfg *config.Release) (monitor.Source, error) {
	logger := log.WithComponent("metricsource")
	switch cfg.Metrics.Backend {
	case "prometheus":
		return metricsource.NewPrometheusSource(cfg.Metrics.Prometheus.Address, cfg.PromQueries(), logger)
	case "cloudwatch":
		return metricsource.NewCloudWatchSource(cmd.Context(), cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, logger)
	default:
		return nil, fmt.Errorf("unknown metrics backend: %s", cfg.Metrics.Backend)
	}
}

// logEvents mirrors lifecycle events into the log stream
func logEvents(broker *events.Broker) {
	sub := broker.Subscribe()
	logger := log.WithComponent("events")
	for event := range sub {
		logger.Info().
			Str("type", string(event.Type)).
			Str("environment", event.Environment).
			Msg(event.Message)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server stopped", err)
	}
}
