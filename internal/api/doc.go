// Package api implements the HTTP query API and live WebSocket feed of
// the weather station.
//
// This package provides:
//   - Stream endpoints: GET /get_available_streams and GET /get_stream
//   - GET /health with database, scheduler and sink connection state
//   - GET /status with runtime statistics
//   - GET /metrics for Prometheus
//   - WebSocket hub broadcasting each sampling pass to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// All routes sit under the configured root (default "/").
//
// # Stream requests
//
//	GET /get_stream?meters=internalTemperature,presenceCount&start=2026-03-01 10:00:00&end=2026-03-01 11:00:00
//
// Dates use the "YYYY-MM-DD HH:MM:SS" layout in UTC. Each metric is
// resolved independently: failed metrics are listed under "errors"
// and the response stays 200 unless every requested metric failed. It
// is then 404 when all of them are unknown and 500 otherwise, still
// carrying the "errors" map.
package api
