package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Compliance metrics
	ComplianceChecksTotal *prometheus.CounterVec
	BackoffDelaySeconds   prometheus.Histogram
	PolicyFetchesTotal    *prometheus.CounterVec

	// Detection metrics
	DetectionRunsTotal  *prometheus.CounterVec
	FormsDetected       prometheus.Histogram
	ContactLinksScanned prometheus.Histogram

	// Submission metrics
	SubmissionsTotal    *prometheus.CounterVec
	SubmissionDuration  prometheus.Histogram
	ScreenshotsUploaded prometheus.Counter

	// Temporal activity metrics
	ActivitiesExecuted *prometheus.CounterVec

	// System metrics
	BrowserLeasesActive prometheus.Gauge
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "inquiry"
	}

	m := &Metrics{
		ComplianceChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compliance_checks_total",
				Help:      "Total number of compliance checks",
			},
			[]string{"level", "result"},
		),
		BackoffDelaySeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backoff_delay_seconds",
				Help:      "Delay applied before gated fetches in seconds",
				Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		PolicyFetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_fetches_total",
				Help:      "Total number of site policy derivations",
			},
			[]string{"result"},
		),

		DetectionRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detection_runs_total",
				Help:      "Total number of form detection runs",
			},
			[]string{"status"},
		),
		FormsDetected: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "forms_detected",
				Help:      "Number of forms detected per run",
				Buckets:   []float64{0, 1, 2, 3, 5},
			},
		),
		ContactLinksScanned: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "contact_links_scanned",
				Help:      "Number of candidate contact links scanned per run",
				Buckets:   []float64{0, 1, 2, 3, 5},
			},
		),

		SubmissionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of form submission attempts",
			},
			[]string{"status", "dry_run"},
		),
		SubmissionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_duration_seconds",
				Help:      "Submission attempt duration in seconds",
				Buckets:   []float64{1, 5, 10, 20, 30, 60, 120},
			},
		),
		ScreenshotsUploaded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenshots_uploaded_total",
				Help:      "Total number of screenshots uploaded to object storage",
			},
		),

		ActivitiesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "activities_executed_total",
				Help:      "Total number of activities executed",
			},
			[]string{"activity_type", "status"},
		),

		BrowserLeasesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "browser_leases_active",
				Help:      "Number of browser contexts currently leased",
			},
		),
		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
	}

	return m
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordComplianceCheck records one compliance decision
func (m *Metrics) RecordComplianceCheck(level string, allowed bool, delaySeconds float64) {
	result := "allowed"
	if !allowed {
		result = "blocked"
	}
	m.ComplianceChecksTotal.WithLabelValues(level, result).Inc()
	m.BackoffDelaySeconds.Observe(delaySeconds)
}

// RecordPolicyFetch records a site policy derivation
func (m *Metrics) RecordPolicyFetch(ok bool) {
	result := "ok"
	if !ok {
		result = "degraded"
	}
	m.PolicyFetchesTotal.WithLabelValues(result).Inc()
}

// RecordDetectionRun records a completed detection run
func (m *Metrics) RecordDetectionRun(status string, formsFound, linksScanned int) {
	m.DetectionRunsTotal.WithLabelValues(status).Inc()
	m.FormsDetected.Observe(float64(formsFound))
	m.ContactLinksScanned.Observe(float64(linksScanned))
}

// RecordSubmission records a submission attempt
func (m *Metrics) RecordSubmission(status string, dryRun bool, duration time.Duration) {
	dry := "false"
	if dryRun {
		dry = "true"
	}
	m.SubmissionsTotal.WithLabelValues(status, dry).Inc()
	m.SubmissionDuration.Observe(duration.Seconds())
}

// RecordActivityExecution records activity execution
func (m *Metrics) RecordActivityExecution(activityType, status string) {
	m.ActivitiesExecuted.WithLabelValues(activityType, status).Inc()
}

// SetDBStats updates the connection pool gauges
func (m *Metrics) SetDBStats(active, idle int) {
	m.DBConnectionsActive.Set(float64(active))
	m.DBConnectionsIdle.Set(float64(idle))
}

// Global metrics instance
var globalMetrics *Metrics

// InitMetrics initializes the global metrics instance
func InitMetrics(namespace string) *Metrics {
	globalMetrics = NewMetrics(namespace)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		globalMetrics = NewMetrics("inquiry")
	}
	return globalMetrics
}
