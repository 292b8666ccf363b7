package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Route(s.root(), func(r chi.Router) {
		r.Get("/get_available_streams", s.handleGetAvailableStreams)
		r.Get("/get_stream", s.handleGetStream)

		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

		if s.hub != nil {
			r.Get(s.wsPath(), s.handleWebSocket)
		}
	})

	return r
}

// root returns the configured mount point, normalised to "/" or "/x".
func (s *Server) root() string {
	return "/" + strings.Trim(s.cfg.Root, "/")
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return "/" + strings.TrimPrefix(s.wsCfg.Path, "/")
}
