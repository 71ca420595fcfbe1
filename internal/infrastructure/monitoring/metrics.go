package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Session metrics
	SessionsActive   prometheus.Gauge
	SessionsOpened   prometheus.Counter
	SessionsRestored prometheus.Counter

	// Resolve metrics
	ResolvesTotal *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Relay metrics
	RelayConnected prometheus.Gauge
	RelayFrames    *prometheus.CounterVec

	// Search cache metrics
	CacheLookups *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the JSON health API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON health API.
type Snapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	ActiveSessions int64
	TotalResolves  int64
}

// NewMetrics registers the collectors on the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the collectors on reg. Tests pass a fresh
// registry so repeated construction never collides.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glint_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glint_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "glint_sessions_active",
				Help: "Number of live session sockets",
			},
		),
		SessionsOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "glint_sessions_opened_total",
				Help: "Total number of sessions opened",
			},
		),
		SessionsRestored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "glint_sessions_restored_total",
				Help: "Total number of sessions restored from persisted state",
			},
		),

		ResolvesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glint_resolves_total",
				Help: "Dwell resolve outcomes",
			},
			[]string{"outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glint_stage_duration_seconds",
				Help:    "Resolve chain stage duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),

		RelayConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "glint_relay_connected",
				Help: "1 when the gaze channel is live, 0 while polling",
			},
		),
		RelayFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glint_relay_frames_total",
				Help: "Gaze frames by path",
			},
			[]string{"path"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glint_search_cache_lookups_total",
				Help: "Search cache lookups by result",
			},
			[]string{"result"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "glint_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "glint_ws_messages_total",
				Help: "WebSocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "glint_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordResolve records a resolve outcome ("success", "capture_failed",
// "reasoning_failed").
func (m *Metrics) RecordResolve(outcome string) {
	m.ResolvesTotal.WithLabelValues(outcome).Inc()
	m.mu.Lock()
	m.snapshot.TotalResolves++
	m.mu.Unlock()
}

// RecordStage records one chain stage duration.
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// SetRelayConnected flips the relay gauge.
func (m *Metrics) SetRelayConnected(up bool) {
	if up {
		m.RelayConnected.Set(1)
	} else {
		m.RelayConnected.Set(0)
	}
}

// RecordRelayFrame counts one delivered frame ("channel" or "poll").
func (m *Metrics) RecordRelayFrame(path string) {
	m.RelayFrames.WithLabelValues(path).Inc()
}

// RecordCacheLookup counts a search cache lookup ("hit" or "miss").
func (m *Metrics) RecordCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordWSMessage counts a WebSocket message.
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetSessionsActive sets the live session gauge.
func (m *Metrics) SetSessionsActive(count int) {
	m.SessionsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveSessions = int64(count)
	m.mu.Unlock()
}

// IncSessionsOpened counts one opened session.
func (m *Metrics) IncSessionsOpened() {
	m.SessionsOpened.Inc()
}

// IncSessionsRestored counts one restored session.
func (m *Metrics) IncSessionsRestored() {
	m.SessionsRestored.Inc()
}

// IncWSConnections increments the connection gauge.
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements the connection gauge.
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// CurrentSnapshot returns the JSON-API view of the counters.
func (m *Metrics) CurrentSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
