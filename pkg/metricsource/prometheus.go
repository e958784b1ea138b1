package metricsource

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/monitor"
	"github.com/switchback-run/switchback/pkg/types"
)

// Queries holds the PromQL expressions evaluated each cycle. The
// placeholders $ENVIRONMENT, $COLOR and $WINDOW are substituted before
// evaluation.
type Queries struct {
	ErrorRate string `yaml:"error_rate"`
	P50       string `yaml:"p50"`
	P90       string `yaml:"p90"`
	P99       string `yaml:"p99"`
}

// DefaultQueries assumes standard HTTP server metrics labeled with
// environment and color
func DefaultQueries() Queries {
	return Queries{
		ErrorRate: `100 * sum(rate(http_requests_total{environment="$ENVIRONMENT",color="$COLOR",code=~"5.."}[$WINDOW])) / sum(rate(http_requests_total{environment="$ENVIRONMENT",color="$COLOR"}[$WINDOW]))`,
		P50:       `1000 * histogram_quantile(0.50, sum(rate(http_request_duration_seconds_bucket{environment="$ENVIRONMENT",color="$COLOR"}[$WINDOW])) by (le))`,
		P90:       `1000 * histogram_quantile(0.90, sum(rate(http_request_duration_seconds_bucket{environment="$ENVIRONMENT",color="$COLOR"}[$WINDOW])) by (le))`,
		P99:       `1000 * histogram_quantile(0.99, sum(rate(http_request_duration_seconds_bucket{environment="$ENVIRONMENT",color="$COLOR"}[$WINDOW])) by (le))`,
	}
}

// PrometheusSource queries a Prometheus server over its HTTP API
type PrometheusSource struct {
	api     promv1.API
	queries Queries
	logger  zerolog.Logger
}

// NewPrometheusSource creates a source against the given server address
func NewPrometheusSource(address string, queries Queries, logger zerolog.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &PrometheusSource{
		api:     promv1.NewAPI(client),
		queries: queries,
		logger:  logger,
	}, nil
}

// QueryWindow evaluates all four expressions for the just-elapsed window
func (s *PrometheusSource) QueryWindow(ctx context.Context, environment string, color types.Color, window time.Duration) (monitor.Sample, error) {
	now := time.Now()
	replacer := strings.NewReplacer(
		"$ENVIRONMENT", environment,
		"$COLOR", string(color),
		"$WINDOW", model.Duration(window).String(),
	)

	sample := monitor.Sample{Timestamp: now}
	targets := []struct {
		name  string
		query string
		dest  *float64
	}{
		{"error_rate", s.queries.ErrorRate, &sample.ErrorRatePercent},
		{"p50", s.queries.P50, &sample.P50Ms},
		{"p90", s.queries.P90, &sample.P90Ms},
		{"p99", s.queries.P99, &sample.P99Ms},
	}

	for _, tgt := range targets {
		value, err := s.scalar(ctx, replacer.Replace(tgt.query), now)
		if err != nil {
			return monitor.Sample{}, fmt.Errorf("%s query failed: %w", tgt.name, err)
		}
		*tgt.dest = value
	}

	return sample, nil
}

// scalar evaluates a query expected to yield a single numeric value
func (s *PrometheusSource) scalar(ctx context.Context, query string, ts time.Time) (float64, error) {
	value, warnings, err := s.api.Query(ctx, query, ts)
	if err != nil {
		return 0, err
	}
	for _, w := range warnings {
		s.logger.Warn().Str("warning", w).Msg("prometheus query warning")
	}

	switch v := value.(type) {
	case *model.Scalar:
		return float64(v.Value), nil
	case model.Vector:
		if len(v) == 0 {
			return 0, fmt.Errorf("query returned no data: %s", query)
		}
		return float64(v[0].Value), nil
	default:
		return 0, fmt.Errorf("query returned unexpected type %T: %s", value, query)
	}
}
