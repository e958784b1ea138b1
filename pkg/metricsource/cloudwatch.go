package metricsource

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/rs/zerolog"

	"github.com/switchback-run/switchback/pkg/monitor"
	"github.com/switchback-run/switchback/pkg/types"
)

// CloudWatchSource reads error rate and latency percentiles from
// CloudWatch custom metrics published by the service:
//
//	<Namespace>/ErrorRatePercent   (Average)
//	<Namespace>/RequestLatencyMs   (p50, p90, p99)
//
// Both carry Environment and Color dimensions.
type CloudWatchSource struct {
	client    *cloudwatch.Client
	namespace string
	logger    zerolog.Logger
}

// NewCloudWatchSource creates a source using the default AWS credential chain
func NewCloudWatchSource(ctx context.Context, region, namespace string, logger zerolog.Logger) (*CloudWatchSource, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &CloudWatchSource{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		logger:    logger,
	}, nil
}

// QueryWindow fetches the latest datapoints for the just-elapsed window
func (s *CloudWatchSource) QueryWindow(ctx context.Context, environment string, color types.Color, window time.Duration) (monitor.Sample, error) {
	now := time.Now()
	start := now.Add(-window)
	period := periodFor(window)
	dims := []cwtypes.Dimension{
		{Name: aws.String("Environment"), Value: aws.String(environment)},
		{Name: aws.String("Color"), Value: aws.String(string(color))},
	}

	sample := monitor.Sample{Timestamp: now}

	errRate, err := s.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(s.namespace),
		MetricName: aws.String("ErrorRatePercent"),
		Dimensions: dims,
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(period),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("error rate query failed: %w", err)
	}
	dp, err := latestDatapoint(errRate.Datapoints)
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("error rate: %w", err)
	}
	sample.ErrorRatePercent = aws.ToFloat64(dp.Average)

	latency, err := s.client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:          aws.String(s.namespace),
		MetricName:         aws.String("RequestLatencyMs"),
		Dimensions:         dims,
		StartTime:          aws.Time(start),
		EndTime:            aws.Time(now),
		Period:             aws.Int32(period),
		ExtendedStatistics: []string{"p50", "p90", "p99"},
	})
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("latency query failed: %w", err)
	}
	dp, err = latestDatapoint(latency.Datapoints)
	if err != nil {
		return monitor.Sample{}, fmt.Errorf("latency: %w", err)
	}
	sample.P50Ms = dp.ExtendedStatistics["p50"]
	sample.P90Ms = dp.ExtendedStatistics["p90"]
	sample.P99Ms = dp.ExtendedStatistics["p99"]

	return sample, nil
}

// latestDatapoint picks the most recent datapoint; CloudWatch returns
// them unordered
func latestDatapoint(points []cwtypes.Datapoint) (cwtypes.Datapoint, error) {
	if len(points) == 0 {
		return cwtypes.Datapoint{}, fmt.Errorf("no datapoints in window")
	}
	latest := points[0]
	for _, p := range points[1:] {
		if aws.ToTime(p.Timestamp).After(aws.ToTime(latest.Timestamp)) {
			latest = p
		}
	}
	return latest, nil
}

// periodFor maps the window to a valid CloudWatch period
func periodFor(window time.Duration) int32 {
	seconds := int32(window.Seconds())
	if seconds < 60 {
		return 60
	}
	// periods above a minute must be multiples of 60
	return seconds - seconds%60
}
