package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Deployment metrics
	DeploysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchback_deploys_total",
			Help: "Total number of deploy operations by result",
		},
		[]string{"result"},
	)

	RollbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchback_rollbacks_total",
			Help: "Total number of rollbacks by trigger reason",
		},
		[]string{"reason"},
	)

	PromotionStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switchback_promotion_steps_total",
			Help: "Total number of promotion traffic steps applied",
		},
	)

	TrafficSplitPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "switchback_traffic_split_percent",
			Help: "Last applied traffic percentage by environment and color",
		},
		[]string{"environment", "color"},
	)

	// Monitor metrics
	MonitorCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switchback_monitor_cycles_total",
			Help: "Total number of monitoring cycles by result",
		},
		[]string{"result"},
	)

	MonitorConsecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "switchback_monitor_consecutive_failures",
			Help: "Current consecutive failing monitor cycles",
		},
	)

	// Health probe metrics
	ProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "switchback_probe_duration_seconds",
			Help:    "Health probe attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(DeploysTotal)
	prometheus.MustRegister(RollbacksTotal)
	prometheus.MustRegister(PromotionStepsTotal)
	prometheus.MustRegister(TrafficSplitPercent)
	prometheus.MustRegister(MonitorCyclesTotal)
	prometheus.MustRegister(MonitorConsecutiveFailures)
	prometheus.MustRegister(ProbeDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
