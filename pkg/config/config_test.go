package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSpec(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "release.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write spec: %v", err)
	}
	return path
}

const minimalSpec = `
environment: staging
image: registry.example.com/app:v2
applier:
  command: ./apply.sh
metrics:
  backend: prometheus
  prometheus:
    address: http://prometheus:9090
`

func TestLoad_MinimalSpecGetsDefaults(t *testing.T) {
	release, err := Load(writeSpec(t, minimalSpec))
	require.NoError(t, err)

	assert.Equal(t, "staging", release.Environment)
	assert.Equal(t, "/healthz", release.Health.LivenessPath)
	assert.Equal(t, "/readyz", release.Health.ReadinessPath)
	assert.Equal(t, 3, release.Health.MaxRetries)
	assert.Equal(t, 10, release.Canary.Percent)
	assert.Equal(t, []int{25, 50, 75, 100}, release.Promote.Steps)
	assert.Equal(t, 30*time.Second, release.Promote.SettleDelay.Std())
	assert.Equal(t, 2*time.Minute, release.Promote.DecommissionGrace.Std())
	assert.Equal(t, 5.0, release.Monitor.ErrorRatePercent)
	assert.Equal(t, 3, release.Monitor.MaxConsecutiveFailures)
}

func TestLoad_FullSpec(t *testing.T) {
	path := writeSpec(t, `
environment: production
image: registry.example.com/app:v3
applier:
  command: terraform
  args: ["-chdir=infra", "apply"]
  timeout: 15m
health:
  liveness_path: /live
  readiness_path: /ready
  max_retries: 5
  retry_delay: 2s
  timeout: 3s
monitor:
  error_rate_percent: 1.5
  latency_p50_ms: 100
  latency_p90_ms: 250
  interval: 15s
  duration: 10m
  max_consecutive_failures: 4
canary:
  percent: 5
promote:
  steps: [20, 60, 100]
  settle_delay: 1m
  decommission_grace: 5m
metrics:
  backend: cloudwatch
  cloudwatch:
    region: us-east-1
    namespace: App/Releases
`)

	release, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"-chdir=infra", "apply"}, release.Applier.Args)
	assert.Equal(t, 15*time.Minute, release.Applier.Timeout.Std())
	assert.Equal(t, 5, release.Canary.Percent)
	assert.Equal(t, []int{20, 60, 100}, release.Promote.Steps)

	settings := release.MonitorSettings()
	assert.Equal(t, 1.5, settings.ErrorRateThresholdPercent)
	assert.Equal(t, 15*time.Second, settings.CheckInterval)
	assert.Equal(t, 4, settings.MaxConsecutiveFailures)

	spec := release.HealthSpec("https://green.example.com")
	assert.Equal(t, "https://green.example.com", spec.BaseURL)
	assert.Equal(t, "/live", spec.LivenessPath)
	assert.Equal(t, 5, spec.MaxRetries)
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{
			name: "missing environment",
			spec: `
image: app:v1
applier: {command: ./apply.sh}
metrics: {backend: prometheus, prometheus: {address: http://p:9090}}
`,
		},
		{
			name: "missing image",
			spec: `
environment: dev
applier: {command: ./apply.sh}
metrics: {backend: prometheus, prometheus: {address: http://p:9090}}
`,
		},
		{
			name: "missing applier command",
			spec: `
environment: dev
image: app:v1
metrics: {backend: prometheus, prometheus: {address: http://p:9090}}
`,
		},
		{
			name: "majority canary share",
			spec: minimalSpec + `
canary:
  percent: 60
`,
		},
		{
			name: "steps not increasing",
			spec: minimalSpec + `
promote:
  steps: [50, 25, 100]
`,
		},
		{
			name: "steps not ending at 100",
			spec: minimalSpec + `
promote:
  steps: [25, 50, 75]
`,
		},
		{
			name: "unknown backend",
			spec: `
environment: dev
image: app:v1
applier: {command: ./apply.sh}
metrics: {backend: statsd}
`,
		},
		{
			name: "invalid duration",
			spec: minimalSpec + `
health:
  retry_delay: soon
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSpec(t, tt.spec))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
