package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/saphari-core/internal/metrics"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          MQTTMetrics      `json:"mqtt"`
	Devices       DeviceMetrics    `json:"devices"`
	Telemetry     TelemetryMetrics `json:"telemetry"`
	Database      DatabaseMetrics  `json:"database"`
	Counters      metrics.Snapshot `json:"counters"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains broker connection state.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device registry statistics.
type DeviceMetrics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// TelemetryMetrics describes the telemetry cache.
type TelemetryMetrics struct {
	Devices int `json:"devices"`
	Samples int `json:"samples"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns a JSON summary of the hub.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := SystemMetrics{
		Timestamp:     s.now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Devices: DeviceMetrics{
			Total:    s.registry.Count(),
			ByStatus: make(map[string]int),
		},
		Telemetry: TelemetryMetrics{
			Devices: len(s.cache.Devices()),
			Samples: s.cache.Len(),
		},
	}

	if s.transport != nil {
		resp.MQTT.Connected = s.transport.IsConnected()
	}

	for status, n := range s.registry.CountByStatus() {
		resp.Devices.ByStatus[string(status)] = n
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		resp.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	snap, err := s.metrics.Snapshot()
	if err != nil {
		s.logger.Warn("gathering metrics failed", "error", err)
	}
	resp.Counters = snap

	writeJSON(w, http.StatusOK, resp)
}

// handlePrometheus serves the Prometheus exposition format.
func (s *Server) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeNotFound(w, "metrics not enabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}
