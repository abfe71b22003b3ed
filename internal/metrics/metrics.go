package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	NotificationRetries *prometheus.CounterVec
	SendLatency         *prometheus.HistogramVec
	JobsDropped         prometheus.Counter
}

// New registers all instruments with the given registerer. Tests pass a
// fresh prometheus.NewRegistry() to stay isolated from global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of successfully delivered notifications.",
		}, []string{"type"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of notifications marked failed by the dispatcher.",
		}, []string{"type"}),

		NotificationRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_retries_total",
			Help: "Total number of retry jobs pushed after a failed attempt.",
		}, []string{"type"}),

		SendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_send_seconds",
			Help:    "Latency of successful channel sends.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),

		JobsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "queue_jobs_dropped_total",
			Help: "Total number of malformed queue payloads dropped.",
		}),
	}

	reg.MustRegister(
		m.NotificationsSent,
		m.NotificationsFailed,
		m.NotificationRetries,
		m.SendLatency,
		m.JobsDropped,
	)

	return m
}

// WorkerHooks returns the callbacks expected by worker.NewDispatcher.
func (m *Metrics) WorkerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnSent: func(t domain.Type, latency time.Duration) {
			m.NotificationsSent.WithLabelValues(label(t)).Inc()
			m.SendLatency.WithLabelValues(label(t)).Observe(latency.Seconds())
		},
		OnFailed: func(t domain.Type) {
			m.NotificationsFailed.WithLabelValues(label(t)).Inc()
		},
		OnRetry: func(t domain.Type) {
			m.NotificationRetries.WithLabelValues(label(t)).Inc()
		},
		OnDropped: func() {
			m.JobsDropped.Inc()
		},
	}
}

// label keeps the type label set bounded.
func label(t domain.Type) string {
	if t.IsValid() {
		return string(t)
	}
	return "unknown"
}
