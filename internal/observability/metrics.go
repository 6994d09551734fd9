// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Analysis metrics
	AnalysesRequested *prometheus.CounterVec
	AnalysesCompleted *prometheus.CounterVec
	AnalysesFailed    *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	JobsInflight      prometheus.Gauge
	StaleJobsFailed   prometheus.Counter

	// Analyzer metrics
	AnalyzerErrors   *prometheus.CounterVec
	AnalyzerDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Scoring metrics
	RiskTierAssigned *prometheus.CounterVec

	// Database metrics
	DBQueryErrors *prometheus.CounterVec

	// Health metrics
	LastSuccessfulAnalysis prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "coinclarity"
	}

	return &Metrics{
		// Analysis metrics
		AnalysesRequested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "requested_total",
			Help:      "Total number of analysis requests accepted, by chain",
		}, []string{"chain"}),
		AnalysesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "completed_total",
			Help:      "Total number of analyses completed, by chain",
		}, []string{"chain"}),
		AnalysesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "failed_total",
			Help:      "Total number of analyses failed, by chain",
		}, []string{"chain"}),
		AnalysisDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End-to-end analysis duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"chain"}),
		JobsInflight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "jobs_inflight",
			Help:      "Number of analysis jobs currently queued or running",
		}),
		StaleJobsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "stale_jobs_failed_total",
			Help:      "Total number of jobs failed by the stale job janitor",
		}),

		// Analyzer metrics
		AnalyzerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "errors_total",
			Help:      "Total number of analyzer errors by analyzer and error type",
		}, []string{"analyzer", "error_type"}),
		AnalyzerDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "duration_seconds",
			Help:      "Per-analyzer duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"analyzer"}),

		// Cache metrics
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of report cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of report cache misses",
		}),

		// Scoring metrics
		RiskTierAssigned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "risk_tier_assigned_total",
			Help:      "Total number of reports produced by risk tier",
		}, []string{"tier"}),

		// Database metrics
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulAnalysis: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_analysis_timestamp",
			Help:      "Unix timestamp of last successfully completed analysis",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordAnalysisRequested increments the accepted request counter.
func RecordAnalysisRequested(chain string) {
	DefaultMetrics.AnalysesRequested.WithLabelValues(chain).Inc()
}

// RecordAnalysisCompleted records a finished analysis and its duration.
func RecordAnalysisCompleted(chain string, seconds float64) {
	DefaultMetrics.AnalysesCompleted.WithLabelValues(chain).Inc()
	DefaultMetrics.AnalysisDuration.WithLabelValues(chain).Observe(seconds)
}

// RecordAnalysisFailed increments the failed analysis counter.
func RecordAnalysisFailed(chain string) {
	DefaultMetrics.AnalysesFailed.WithLabelValues(chain).Inc()
}

// RecordAnalyzerError records an analyzer error.
func RecordAnalyzerError(analyzer, errorType string) {
	DefaultMetrics.AnalyzerErrors.WithLabelValues(analyzer, errorType).Inc()
}

// RecordAnalyzerDuration records per-analyzer latency.
func RecordAnalyzerDuration(analyzer string, seconds float64) {
	DefaultMetrics.AnalyzerDuration.WithLabelValues(analyzer).Observe(seconds)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordRiskTier increments the per-tier report counter.
func RecordRiskTier(tier string) {
	DefaultMetrics.RiskTierAssigned.WithLabelValues(tier).Inc()
}

// RecordStaleJobsFailed adds to the janitor fail counter.
func RecordStaleJobsFailed(count int) {
	DefaultMetrics.StaleJobsFailed.Add(float64(count))
}

// RecordDBQueryError records a database query error.
func RecordDBQueryError(database, operation string) {
	DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
}

// JobsInflightInc increments the inflight jobs gauge.
func JobsInflightInc() {
	DefaultMetrics.JobsInflight.Inc()
}

// JobsInflightDec decrements the inflight jobs gauge.
func JobsInflightDec() {
	DefaultMetrics.JobsInflight.Dec()
}

// MarkAnalysisSuccess stamps the last successful analysis gauge.
func MarkAnalysisSuccess(unixSeconds float64) {
	DefaultMetrics.LastSuccessfulAnalysis.Set(unixSeconds)
}
