package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Terminal metrics
	TerminalsActive       prometheus.Gauge
	TerminalsSpawned      *prometheus.CounterVec
	TerminalSpawnFailures *prometheus.CounterVec
	TerminalsEnded        prometheus.Counter
	TerminalBytesIn       prometheus.Counter
	TerminalBytesOut      prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveTerminals   int64   `json:"active_terminals"`
	ActiveConnections int64   `json:"active_connections"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector with its own registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devtoolkit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devtoolkit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devtoolkit_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devtoolkit_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devtoolkit_service_calls_total",
				Help: "Total number of service tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devtoolkit_service_duration_seconds",
				Help:    "Service tool call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "tool"},
		),
		ServiceErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devtoolkit_service_errors_total",
				Help: "Total number of failed service tool calls",
			},
			[]string{"service", "tool"},
		),

		TerminalsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "devtoolkit_terminals_active",
				Help: "Number of registered terminal sessions",
			},
		),
		TerminalsSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devtoolkit_terminals_spawned_total",
				Help: "Total number of terminal sessions spawned",
			},
			[]string{"profile"},
		),
		TerminalSpawnFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devtoolkit_terminal_spawn_failures_total",
				Help: "Total number of failed terminal spawns",
			},
			[]string{"profile"},
		),
		TerminalsEnded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "devtoolkit_terminals_ended_total",
				Help: "Total number of terminal sessions whose output stream closed",
			},
		),
		TerminalBytesIn: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "devtoolkit_terminal_input_bytes_total",
				Help: "Bytes written to terminal sessions",
			},
		),
		TerminalBytesOut: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "devtoolkit_terminal_output_bytes_total",
				Help: "Bytes read from terminal sessions",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "devtoolkit_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devtoolkit_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "devtoolkit_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records a service tool call
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
	if status != "success" {
		m.ServiceErrors.WithLabelValues(service, tool).Inc()
	}
}

// RecordTerminalSpawn counts a successful spawn
func (m *Metrics) RecordTerminalSpawn(profile string) {
	m.TerminalsSpawned.WithLabelValues(profileLabel(profile)).Inc()
}

// RecordTerminalSpawnFailure counts a failed spawn
func (m *Metrics) RecordTerminalSpawnFailure(profile string) {
	m.TerminalSpawnFailures.WithLabelValues(profileLabel(profile)).Inc()
}

// RecordTerminalEnded counts a session whose output stream closed
func (m *Metrics) RecordTerminalEnded() {
	m.TerminalsEnded.Inc()
}

// SetTerminalsActive sets the number of registered sessions
func (m *Metrics) SetTerminalsActive(count int) {
	m.TerminalsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActiveTerminals = int64(count)
	m.mu.Unlock()
}

// AddTerminalInput adds n bytes of terminal input
func (m *Metrics) AddTerminalInput(n int) {
	if n > 0 {
		m.TerminalBytesIn.Add(float64(n))
	}
}

// AddTerminalOutput adds n bytes of terminal output
func (m *Metrics) AddTerminalOutput(n int) {
	if n > 0 {
		m.TerminalBytesOut.Add(float64(n))
	}
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMs = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

// Custom shell paths would explode label cardinality.
func profileLabel(profile string) string {
	switch profile {
	case "":
		return "default"
	case "default", "pwsh", "cmd", "git-bash", "wsl":
		return profile
	default:
		return "custom"
	}
}
