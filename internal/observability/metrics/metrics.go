package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flowhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	remoteSyncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowhub_remote_sync_requests_total",
		Help: "Remote store writes by table and result",
	}, []string{"table", "result"})

	remoteSyncFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowhub_remote_sync_failures_total",
		Help: "Swallowed best-effort sync failures by table",
	}, []string{"table"})

	syncRetryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flowhub_sync_retry_queue_depth",
		Help: "Number of failed user syncs waiting for retry",
	})

	syncRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowhub_sync_retries_total",
		Help: "Retry worker attempts by result",
	}, []string{"result"})

	inviteEmails = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowhub_invite_emails_total",
		Help: "Invitation email sends by result",
	}, []string{"result"})

	usersInvited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowhub_users_invited_total",
		Help: "User shells created through invite batches",
	})

	lifecycleEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flowhub_lifecycle_events_total",
		Help: "Lifecycle events emitted on the event bus",
	}, []string{"event"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveRemoteSync records one remote store write attempt
func ObserveRemoteSync(table, result string) {
	remoteSyncRequests.WithLabelValues(table, result).Inc()
}

// ObserveSwallowedSyncFailure counts a best-effort sync failure that was
// logged rather than surfaced to the caller
func ObserveSwallowedSyncFailure(table string) {
	remoteSyncFailures.WithLabelValues(table).Inc()
}

// SetSyncRetryQueueDepth sets the dead-letter queue depth gauge
func SetSyncRetryQueueDepth(depth int) {
	if depth < 0 {
		depth = 0
	}
	syncRetryQueueDepth.Set(float64(depth))
}

// ObserveSyncRetry records a retry worker attempt with a result label
func ObserveSyncRetry(result string) {
	syncRetries.WithLabelValues(result).Inc()
}

// ObserveInviteEmail increments the invite email counter for the given result
func ObserveInviteEmail(result string) {
	inviteEmails.WithLabelValues(result).Inc()
}

// ObserveUserInvited counts a newly created user shell
func ObserveUserInvited() {
	usersInvited.Inc()
}

// ObserveLifecycleEvent counts one emitted lifecycle event
func ObserveLifecycleEvent(event string) {
	lifecycleEvents.WithLabelValues(event).Inc()
}
