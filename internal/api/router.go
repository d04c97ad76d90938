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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/fleet", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/config", s.handleGetConfig)
			r.Post("/config", s.handleSetConfig)

			r.Post("/move", s.handleMove)
			r.Post("/stop", s.handleStop)
			r.Post("/function", s.handleFunction)
			r.Post("/accessory", s.handleAccessory)

			r.Post("/models", s.handleDeclareModel)
			r.Post("/vehicles", s.handleAddVehicle)
			r.Post("/consists", s.handleDeclareConsist)
			r.Post("/consists/assign", s.handleAssign)
			r.Post("/consists/remove", s.handleRemove)
			r.Delete("/{id}", s.handleDelete)
		})

		r.Post("/gpio", s.handleGpio)
		r.Get("/capture", s.handleCapture)

		// WebSocket status stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status together with a
// snapshot of the track link.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"revision": s.registry.Revision(),
		"link":     s.link.Stats(),
	})
}
