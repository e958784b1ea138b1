package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/switchback-run/switchback/pkg/health"
	"github.com/switchback-run/switchback/pkg/metricsource"
	"github.com/switchback-run/switchback/pkg/monitor"
)

// Duration wraps time.Duration for YAML values like "30s" or "5m"
type Duration time.Duration

// UnmarshalYAML parses a Go duration string
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Release is the full release specification for one environment,
// loaded from a YAML file.
type Release struct {
	Environment string        `yaml:"environment"`
	Image       string        `yaml:"image"`
	Applier     ApplierConfig `yaml:"applier"`
	Health      HealthConfig  `yaml:"health"`
	Monitor     MonitorConfig `yaml:"monitor"`
	Canary      CanaryConfig  `yaml:"canary"`
	Promote     PromoteConfig `yaml:"promote"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// ApplierConfig configures the provisioning command
type ApplierConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Timeout Duration `yaml:"timeout"`
}

// HealthConfig configures the health gate
type HealthConfig struct {
	LivenessPath  string   `yaml:"liveness_path"`
	ReadinessPath string   `yaml:"readiness_path"`
	MaxRetries    int      `yaml:"max_retries"`
	RetryDelay    Duration `yaml:"retry_delay"`
	Timeout       Duration `yaml:"timeout"`
}

// MonitorConfig configures canary metric thresholds and timing
type MonitorConfig struct {
	ErrorRatePercent       float64  `yaml:"error_rate_percent"`
	LatencyP50Ms           float64  `yaml:"latency_p50_ms"`
	LatencyP90Ms           float64  `yaml:"latency_p90_ms"`
	Interval               Duration `yaml:"interval"`
	Duration               Duration `yaml:"duration"`
	MaxConsecutiveFailures int      `yaml:"max_consecutive_failures"`
}

// CanaryConfig configures the canary traffic share
type CanaryConfig struct {
	Percent int `yaml:"percent"`
}

// PromoteConfig configures the graduated promotion walk.
// The delays are tunable, not load-bearing.
type PromoteConfig struct {
	Steps             []int    `yaml:"steps"`
	SettleDelay       Duration `yaml:"settle_delay"`
	DecommissionGrace Duration `yaml:"decommission_grace"`
}

// MetricsConfig selects and configures the metrics backend
type MetricsConfig struct {
	Backend    string           `yaml:"backend"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

// PrometheusConfig configures the Prometheus metrics source
type PrometheusConfig struct {
	Address string                `yaml:"address"`
	Queries *metricsource.Queries `yaml:"queries"`
}

// CloudWatchConfig configures the CloudWatch metrics source
type CloudWatchConfig struct {
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

// Load reads, defaults, and validates a release spec
func Load(path string) (*Release, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read release spec: %w", err)
	}

	var release Release
	if err := yaml.Unmarshal(data, &release); err != nil {
		return nil, fmt.Errorf("failed to parse release spec: %w", err)
	}

	release.applyDefaults()
	if err := release.Validate(); err != nil {
		return nil, err
	}
	return &release, nil
}

// applyDefaults fills in unset fields
func (r *Release) applyDefaults() {
	if r.Applier.Timeout == 0 {
		r.Applier.Timeout = Duration(10 * time.Minute)
	}
	if r.Health.LivenessPath == "" {
		r.Health.LivenessPath = "/healthz"
	}
	if r.Health.ReadinessPath == "" {
		r.Health.ReadinessPath = "/readyz"
	}
	if r.Health.MaxRetries == 0 {
		r.Health.MaxRetries = 3
	}
	if r.Health.RetryDelay == 0 {
		r.Health.RetryDelay = Duration(5 * time.Second)
	}
	if r.Health.Timeout == 0 {
		r.Health.Timeout = Duration(10 * time.Second)
	}
	if r.Monitor.ErrorRatePercent == 0 {
		r.Monitor.ErrorRatePercent = 5.0
	}
	if r.Monitor.LatencyP50Ms == 0 {
		r.Monitor.LatencyP50Ms = 200
	}
	if r.Monitor.LatencyP90Ms == 0 {
		r.Monitor.LatencyP90Ms = 500
	}
	if r.Monitor.Interval == 0 {
		r.Monitor.Interval = Duration(30 * time.Second)
	}
	if r.Monitor.Duration == 0 {
		r.Monitor.Duration = Duration(5 * time.Minute)
	}
	if r.Monitor.MaxConsecutiveFailures == 0 {
		r.Monitor.MaxConsecutiveFailures = 3
	}
	if r.Canary.Percent == 0 {
		r.Canary.Percent = 10
	}
	if len(r.Promote.Steps) == 0 {
		r.Promote.Steps = []int{25, 50, 75, 100}
	}
	if r.Promote.SettleDelay == 0 {
		r.Promote.SettleDelay = Duration(30 * time.Second)
	}
	if r.Promote.DecommissionGrace == 0 {
		r.Promote.DecommissionGrace = Duration(2 * time.Minute)
	}
	if r.Metrics.Backend == "" {
		r.Metrics.Backend = "prometheus"
	}
}

// Validate rejects specs the controller cannot safely run with
func (r *Release) Validate() error {
	if r.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if r.Image == "" {
		return fmt.Errorf("image is required")
	}
	if r.Applier.Command == "" {
		return fmt.Errorf("applier command is required")
	}
	if r.Canary.Percent < 1 || r.Canary.Percent > 49 {
		return fmt.Errorf("canary percent must be a minority share (1-49), got %d", r.Canary.Percent)
	}

	prev := r.Canary.Percent
	for _, step := range r.Promote.Steps {
		if step <= prev || step > 100 {
			return fmt.Errorf("promote steps must increase toward 100, got %v", r.Promote.Steps)
		}
		prev = step
	}
	if r.Promote.Steps[len(r.Promote.Steps)-1] != 100 {
		return fmt.Errorf("promote steps must end at 100, got %v", r.Promote.Steps)
	}

	switch r.Metrics.Backend {
	case "prometheus":
		if r.Metrics.Prometheus.Address == "" {
			return fmt.Errorf("prometheus address is required")
		}
	case "cloudwatch":
		if r.Metrics.CloudWatch.Region == "" || r.Metrics.CloudWatch.Namespace == "" {
			return fmt.Errorf("cloudwatch region and namespace are required")
		}
	default:
		return fmt.Errorf("unknown metrics backend: %s", r.Metrics.Backend)
	}

	return nil
}

// HealthSpec builds the health gate spec for a revision URL
func (r *Release) HealthSpec(baseURL string) health.Spec {
	return health.Spec{
		BaseURL:           baseURL,
		LivenessPath:      r.Health.LivenessPath,
		ReadinessPath:     r.Health.ReadinessPath,
		MaxRetries:        r.Health.MaxRetries,
		RetryDelay:        r.Health.RetryDelay.Std(),
		PerRequestTimeout: r.Health.Timeout.Std(),
	}
}

// MonitorSettings builds the monitor configuration
func (r *Release) MonitorSettings() monitor.Config {
	return monitor.Config{
		ErrorRateThresholdPercent: r.Monitor.ErrorRatePercent,
		LatencyP50ThresholdMs:     r.Monitor.LatencyP50Ms,
		LatencyP90ThresholdMs:     r.Monitor.LatencyP90Ms,
		CheckInterval:             r.Monitor.Interval.Std(),
		TotalDuration:             r.Monitor.Duration.Std(),
		MaxConsecutiveFailures:    r.Monitor.MaxConsecutiveFailures,
	}
}

// PromQueries returns the configured PromQL queries or the defaults
func (r *Release) PromQueries() metricsource.Queries {
	if r.Metrics.Prometheus.Queries != nil {
		return *r.Metrics.Prometheus.Queries
	}
	return metricsource.DefaultQueries()
}
