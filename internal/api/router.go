package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-pool/internal/auth"
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

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermStateRead)).Get("/state", s.handleGetState)
			r.With(s.requirePermission(auth.PermStateRead)).Get("/displays", s.handleGetDisplays)
			r.With(s.requirePermission(auth.PermButtonPress)).Post("/buttons/{name}", s.handlePressButton)

			// WebSocket (token via query parameter)
			r.With(s.requirePermission(auth.PermStateRead)).Get("/ws", s.handleWebSocket)
		})
	})

	return r
}
