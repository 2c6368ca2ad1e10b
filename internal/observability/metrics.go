package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	scansTotal             *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	absencesCreatedTotal   prometheus.Counter
	schedulerRunsTotal     *prometheus.CounterVec
	feedClientsActive      prometheus.Gauge
	queueEnqueueFailsTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors exposed on /metrics.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_scans_total",
			Help: "QR scans processed, by outcome.",
		}, []string{"outcome"})

		notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_notifications_total",
			Help: "Notification deliveries, by kind and status.",
		}, []string{"kind", "status"})

		absencesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_absences_created_total",
			Help: "Absence notifications created by the absence check.",
		})

		schedulerRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_scheduler_runs_total",
			Help: "Scheduled job runs, by job and status.",
		}, []string{"job", "status"})

		feedClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_feed_clients_active",
			Help: "Live feed subscribers currently connected.",
		})

		queueEnqueueFailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_queue_enqueue_failures_total",
			Help: "Notification intents that could not be enqueued, by kind.",
		}, []string{"kind"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			scansTotal,
			notificationsTotal,
			absencesCreatedTotal,
			schedulerRunsTotal,
			feedClientsActive,
			queueEnqueueFailsTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ScansTotal counts scans by outcome.
func ScansTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return scansTotal
}

// NotificationsTotal counts deliveries by kind and status (sent, failed).
func NotificationsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsTotal
}

// AbsencesCreated counts newly confirmed absences.
func AbsencesCreated() prometheus.Counter {
	RegisterMetrics()
	return absencesCreatedTotal
}

// SchedulerRuns counts scheduled job runs.
func SchedulerRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return schedulerRunsTotal
}

// FeedClientsActive tracks connected live feed subscribers.
func FeedClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return feedClientsActive
}

// QueueEnqueueFailures counts intents dropped before reaching the queue.
func QueueEnqueueFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return queueEnqueueFailsTotal
}
