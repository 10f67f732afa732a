package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowboard_http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"route", "status"},
	)

	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowboard_risk_aggregation_duration_seconds",
			Help:    "Risk aggregation run duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	FeatureBucketCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowboard_feature_buckets_per_run",
			Help:    "Number of feature buckets produced per aggregation run",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	RiskLevelCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flowboard_risk_level_features",
			Help: "Features per risk level from the latest aggregation run",
		},
		[]string{"level"},
	)

	PartialRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowboard_partial_aggregation_runs_total",
			Help: "Aggregation runs that completed with degraded provider data",
		},
	)

	ProviderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowboard_provider_failures_total",
			Help: "Provider fetches absorbed into degraded results",
		},
		[]string{"provider"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowboard_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowboard_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	BugsImported = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flowboard_bugs_imported_total",
			Help: "Total bug reports imported from tracker exports",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestTotal)
	prometheus.MustRegister(AggregationDuration)
	prometheus.MustRegister(FeatureBucketCount)
	prometheus.MustRegister(RiskLevelCount)
	prometheus.MustRegister(PartialRuns)
	prometheus.MustRegister(ProviderFailures)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(BugsImported)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
