package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/metrics"
)

func TestWorkerHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hooks := m.WorkerHooks()

	hooks.OnSent(domain.TypeEmail, 50*time.Millisecond)
	hooks.OnSent(domain.TypeEmail, 10*time.Millisecond)
	hooks.OnFailed(domain.TypePush)
	hooks.OnRetry(domain.TypePush)
	hooks.OnRetry("")
	hooks.OnDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("email")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsFailed.WithLabelValues("push")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationRetries.WithLabelValues("push")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationRetries.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsDropped))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SendLatency))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
