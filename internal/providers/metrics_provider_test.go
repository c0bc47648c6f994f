package providers

import (
	"perimeterd/internal/structures"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type metricsTestPosture struct {
	code int
}

func (m *metricsTestPosture) PostureCode() int { return m.code }

func useIsolatedRegistry(t *testing.T) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prometheus.NewRegistry()
		prometheus.DefaultGatherer = prometheus.DefaultRegisterer.(prometheus.Gatherer)
	})
	return reg
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf, &metricsTestPosture{})
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(time.Millisecond)
	m.IncPostureTransitions("panic")
	m.IncAuditEvents("wrong_guild")
	m.IncNotifications("dm", true)
	m.IncWatchdogTicks("skipped")
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	useIsolatedRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestPosture{})
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_IncrementCounters(t *testing.T) {
	useIsolatedRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestPosture{}).(*MetricsProvider)

	m.IncRequestsTotal("/command", 200)
	m.IncRequestsTotal("/command", 403)
	m.ObserveRequestDuration("/command", 5*time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(100 * time.Millisecond)
	m.IncPostureTransitions("autopanic")
	m.IncPostureTransitions("autopanic")
	m.IncNotifications("dm", false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.postureTransitions.WithLabelValues("autopanic")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("dm", "false")))
}

func TestMetricsProvider_PostureGauge(t *testing.T) {
	reg := useIsolatedRegistry(t)

	posture := &metricsTestPosture{code: 2}
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	NewMetricsProvider(conf, posture)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "perimeter_posture_state" {
			found = true
			assert.Equal(t, float64(2), f.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
