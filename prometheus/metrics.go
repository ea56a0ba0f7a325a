package prometheus

import (
	"time"

	"stockwatch-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Scan cycle metrics
	ScanCyclesTotal prometheus.CounterVec
	ScanDuration    prometheus.HistogramVec
	CandidatesFound prometheus.CounterVec

	// Mutation metrics
	DeactivationsTotal        prometheus.CounterVec
	DeactivationFailuresTotal prometheus.Counter
	ReactivationsTotal        prometheus.Counter

	// Webhook metrics
	WebhookEventsTotal prometheus.CounterVec

	// Scheduler metrics
	SchedulerTicksSkippedTotal prometheus.Counter
	DueTenantsGauge            prometheus.Gauge
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(config *config.Config) {
	// Use metric prefix from configuration
	prefix := config.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ScanCyclesTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_scan_cycles_total",
			Help: "Total number of scan cycles by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ScanDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_scan_duration_seconds",
			Help:    "Duration of full scan cycles in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	CandidatesFound = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_candidates_found_total",
			Help: "Total number of deactivation candidates identified",
		},
		[]string{"kind"},
	)

	DeactivationsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_deactivations_total",
			Help: "Total number of products deactivated",
		},
		[]string{"method"},
	)

	DeactivationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_deactivation_failures_total",
			Help: "Total number of per-item deactivation failures",
		},
	)

	ReactivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_reactivations_total",
			Help: "Total number of products reactivated",
		},
	)

	WebhookEventsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_webhook_events_total",
			Help: "Total number of inbound inventory webhook events by outcome",
		},
		[]string{"outcome"},
	)

	SchedulerTicksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_scheduler_ticks_skipped_total",
			Help: "Total number of scheduler ticks skipped because a cycle was in flight",
		},
	)

	DueTenantsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_due_tenants",
			Help: "Number of tenants found due on the most recent scheduler tick",
		},
	)
}

// ObserveScanDuration records the duration of one scan cycle
func ObserveScanDuration(kind string, start time.Time) {
	ScanDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RecordScanCycle increments the scan cycle counter
func RecordScanCycle(kind, outcome string) {
	ScanCyclesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordDeactivation increments the deactivation counter
func RecordDeactivation(method string) {
	DeactivationsTotal.WithLabelValues(method).Inc()
}

// RecordWebhookEvent increments the webhook event counter
func RecordWebhookEvent(outcome string) {
	WebhookEventsTotal.WithLabelValues(outcome).Inc()
}
