package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "workouts",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Workout pipeline runs grouped by operation and result.",
	}, []string{"operation", "result"})

	pipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "workouts",
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "Time spent deriving and storing a workout.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"operation"})

	profileBuckets = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "workouts",
		Name:      "profile_buckets",
		Help:      "Number of buckets in computed combined profiles.",
		Buckets:   prometheus.ExponentialBuckets(8, 2, 12),
	})

	parseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "workouts",
		Name:      "parse_failures_total",
		Help:      "Raw HealthKit payloads rejected as malformed.",
	})
)

func init() {
	prometheus.MustRegister(pipelineRuns, pipelineDuration, profileBuckets, parseFailures)
}

// RecordPipelineRun counts one create/patch run and observes its duration.
func RecordPipelineRun(operation, result string, elapsed time.Duration) {
	pipelineRuns.WithLabelValues(operation, result).Inc()
	pipelineDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func RecordProfileBuckets(n int) {
	profileBuckets.Observe(float64(n))
}

func RecordParseFailure() {
	parseFailures.Inc()
}

var rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "workouts",
	Subsystem: "http",
	Name:      "rate_limited_total",
	Help:      "Requests rejected by the per-IP rate limiter.",
})

func init() {
	prometheus.MustRegister(rateLimited)
}

func RecordRateLimited() {
	rateLimited.Inc()
}
