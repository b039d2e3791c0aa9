package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-pool/internal/controller"
)

// healthTimeout bounds the dependency checks behind /health.
const healthTimeout = 2 * time.Second

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.mqtt != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.mqtt.HealthCheck(ctx); err != nil {
			resp["status"] = "degraded"
			resp["mqtt"] = err.Error()
		} else {
			resp["mqtt"] = "connected"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetState returns the persisted controller state.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshot())
}

// handleGetDisplays returns every status display text.
func (s *Server) handleGetDisplays(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"displays": s.displays.Snapshot(),
	})
}

// handlePressButton queues a button press and returns 202.
func (s *Server) handlePressButton(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !controller.IsButton(name) {
		writeNotFound(w, "unknown button: "+name)
		return
	}

	if err := s.buttons.PressAsync(name); err != nil {
		switch {
		case errors.Is(err, controller.ErrUnknownButton):
			writeNotFound(w, "unknown button: "+name)
		case errors.Is(err, controller.ErrClosed):
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "controller is shutting down")
		default:
			s.logger.Error("button press failed", "button", name, "error", err)
			writeInternalError(w, "button press failed")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"button": name,
	})
}
