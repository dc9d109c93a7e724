package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Live sessions
	r.Get(s.wsCfg.Path, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/state", s.handleGetState)

		r.Route("/relays", func(r chi.Router) {
			r.Get("/", s.handleListRelays)
			r.Get("/{id}", s.handleGetRelay)
		})
		r.Get("/schedules", s.handleListSchedules)
	})

	// Dashboard (embedded static files); everything else falls through here.
	r.Handle("/*", s.panelHandler())

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"mqtt":       snap.BusStatus,
		"controller": snap.ControllerStatus,
	})
}
