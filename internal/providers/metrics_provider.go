package providers

import (
	"perimeterd/internal/structures"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncPostureTransitions(transition string)
	IncAuditEvents(reason string)
	IncNotifications(target string, delivered bool)
	IncWatchdogTicks(outcome string)
}

// PostureSource reports the current posture as 0 (normal), 1 (suspended)
// or 2 (panicked).
type PostureSource interface {
	PostureCode() int
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	postureTransitions  *prometheus.CounterVec
	auditEvents         *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	watchdogTicks       *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncPostureTransitions(transition string) {
	m.postureTransitions.WithLabelValues(transition).Inc()
}

func (m *MetricsProvider) IncAuditEvents(reason string) {
	m.auditEvents.WithLabelValues(reason).Inc()
}

func (m *MetricsProvider) IncNotifications(target string, delivered bool) {
	m.notifications.WithLabelValues(target, strconv.FormatBool(delivered)).Inc()
}

func (m *MetricsProvider) IncWatchdogTicks(outcome string) {
	m.watchdogTicks.WithLabelValues(outcome).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, posture PostureSource) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perimeter_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perimeter_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perimeter_cache_hits_total",
			Help: "Total number of station cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perimeter_cache_misses_total",
			Help: "Total number of station cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "perimeter_persistence_duration_seconds",
			Help:    "Duration of store writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		postureTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perimeter_posture_transitions_total",
			Help: "Committed safety posture transitions",
		}, []string{"transition"}),

		auditEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perimeter_audit_events_total",
			Help: "Security audit events emitted",
		}, []string{"reason"}),

		notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perimeter_notifications_total",
			Help: "Outbound notifications by target and delivery result",
		}, []string{"target", "delivered"}),

		watchdogTicks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perimeter_watchdog_ticks_total",
			Help: "Watchdog ticks by outcome",
		}, []string{"outcome"}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "perimeter_posture_state",
		Help: "Current posture: 0 normal, 1 suspended, 2 panicked",
	}, func() float64 {
		return float64(posture.PostureCode())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncPostureTransitions(_ string)                   {}
func (n *noopMetrics) IncAuditEvents(_ string)                          {}
func (n *noopMetrics) IncNotifications(_ string, _ bool)                {}
func (n *noopMetrics) IncWatchdogTicks(_ string)                        {}
