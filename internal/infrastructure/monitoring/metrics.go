// Package monitoring provides Prometheus metrics for the playground backend.
package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Project metrics
	ProjectsActive prometheus.Gauge
	ProjectsTotal  prometheus.Counter
	FileSetUpdates prometheus.Counter

	// Preview metrics
	PreviewsActive  prometheus.Gauge
	PreviewBoots    prometheus.Counter
	UpdatesPosted   prometheus.Counter
	EditsCoalesced  prometheus.Counter
	ScriptExecs     prometheus.Counter
	ScriptSkips     prometheus.Counter
	ScriptFaults    prometheus.Counter
	ExtractDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint
type Snapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	ActivePreviews int64
	UpdatesPosted  int64
	TotalDuration  float64 // sum of all request durations
	RequestCount   int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		ProjectsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_projects_active",
				Help: "Number of projects currently held in the store",
			},
		),
		ProjectsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_projects_total",
				Help: "Total number of projects created",
			},
		),
		FileSetUpdates: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_fileset_updates_total",
				Help: "Total number of authoritative file-set replacements",
			},
		),

		PreviewsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_previews_active",
				Help: "Number of mounted preview sessions",
			},
		),
		PreviewBoots: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_preview_boots_total",
				Help: "Total number of sandbox bootstrap loads (mounts and manual refreshes)",
			},
		),
		UpdatesPosted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_preview_updates_total",
				Help: "Total number of update messages posted to sandboxes",
			},
		),
		EditsCoalesced: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_preview_edits_coalesced_total",
				Help: "Edits absorbed by an already-pending debounce window",
			},
		),
		ScriptExecs: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_sandbox_script_executions_total",
				Help: "User scripts executed in headless sandboxes",
			},
		),
		ScriptSkips: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_sandbox_script_skips_total",
				Help: "Script executions skipped because the script was unchanged",
			},
		),
		ScriptFaults: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "playground_sandbox_script_faults_total",
				Help: "User script executions that raised a runtime or syntax fault",
			},
		),
		ExtractDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_extract_duration_seconds",
				Help:    "Content layer extraction duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),

		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordExtract records one content extraction
func (m *Metrics) RecordExtract(duration time.Duration) {
	m.ExtractDuration.Observe(duration.Seconds())
}

// SetProjectsActive sets the number of projects in the store
func (m *Metrics) SetProjectsActive(count int) {
	m.ProjectsActive.Set(float64(count))
}

// IncProjectsTotal increments the total projects counter
func (m *Metrics) IncProjectsTotal() {
	m.ProjectsTotal.Inc()
}

// IncFileSetUpdates increments the file-set replacement counter
func (m *Metrics) IncFileSetUpdates() {
	m.FileSetUpdates.Inc()
}

// SetPreviewsActive sets the number of mounted preview sessions
func (m *Metrics) SetPreviewsActive(count int) {
	m.PreviewsActive.Set(float64(count))
	m.mu.Lock()
	m.snapshot.ActivePreviews = int64(count)
	m.mu.Unlock()
}

// IncPreviewBoots increments the bootstrap load counter
func (m *Metrics) IncPreviewBoots() {
	m.PreviewBoots.Inc()
}

// IncUpdatesPosted increments the posted update counter
func (m *Metrics) IncUpdatesPosted() {
	m.UpdatesPosted.Inc()
	m.mu.Lock()
	m.snapshot.UpdatesPosted++
	m.mu.Unlock()
}

// IncEditsCoalesced increments the coalesced edit counter
func (m *Metrics) IncEditsCoalesced() {
	m.EditsCoalesced.Inc()
}

// IncScriptExecs increments the executed-script counter
func (m *Metrics) IncScriptExecs() {
	m.ScriptExecs.Inc()
}

// IncScriptSkips increments the deduplicated-script counter
func (m *Metrics) IncScriptSkips() {
	m.ScriptSkips.Inc()
}

// IncScriptFaults increments the faulted-script counter
func (m *Metrics) IncScriptFaults() {
	m.ScriptFaults.Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// GetSnapshot returns a copy of the current snapshot values
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds returns seconds since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
