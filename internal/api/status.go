package api

import (
	"context"
	"net/http"
	"runtime"
	"time"
)

// healthCheckTimeout bounds each connection check of GET /health.
const healthCheckTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Database  string            `json:"database"`
	Scheduler string            `json:"scheduler"`
	Sinks     map[string]string `json:"sinks,omitempty"`
}

// handleHealth reports database reachability, the scheduler state and
// the connection of every checked sink. It answers 503 when the
// database is configured but unreachable. An unreachable sink only
// degrades the status, since readings are still stored locally.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Version:   s.version,
		Database:  "disabled",
		Scheduler: "disabled",
	}

	if s.monitor != nil {
		resp.Scheduler = s.monitor.State().String()
	}

	status := http.StatusOK
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp.Database = "ok"
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	if len(s.checks) > 0 {
		resp.Sinks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			resp.Sinks[name] = "ok"
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := check.HealthCheck(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("sink health check failed", "sink", name, "error", err)
				resp.Sinks[name] = "unreachable"
				resp.Status = "degraded"
			}
		}
	}

	writeJSON(w, status, resp)
}

// SystemStatus is the body of GET /status.
type SystemStatus struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeStatus   `json:"runtime"`
	WebSocket     WSStatus        `json:"websocket"`
	Database      *DatabaseStatus `json:"database,omitempty"`
	Scheduler     string          `json:"scheduler,omitempty"`
}

// RuntimeStatus contains Go runtime statistics.
type RuntimeStatus struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSStatus contains WebSocket hub statistics.
type WSStatus struct {
	Enabled          bool `json:"enabled"`
	ConnectedClients int  `json:"connected_clients"`
}

// DatabaseStatus contains database connection pool statistics.
type DatabaseStatus struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleStatus returns runtime and connection statistics.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := SystemStatus{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeStatus{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
	}

	if s.hub != nil {
		status.WebSocket = WSStatus{Enabled: true, ConnectedClients: s.hub.ClientCount()}
	}
	if s.db != nil {
		stats := s.db.Stats()
		status.Database = &DatabaseStatus{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}
	if s.monitor != nil {
		status.Scheduler = s.monitor.State().String()
	}

	writeJSON(w, http.StatusOK, status)
}
