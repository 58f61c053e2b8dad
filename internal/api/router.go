package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/saphari-core/internal/audit"
)

// healthCheckTimeout bounds the database ping in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)
		r.Get("/metrics/prometheus", s.handlePrometheus)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleRegisterDevice)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Get("/telemetry", s.handleGetDeviceTelemetry)
				r.Get("/topics", s.handleGetDeviceTopics)
				r.Post("/commands", s.handleDeviceCommand)
			})
		})

		r.Route("/dashboards", func(r chi.Router) {
			r.Get("/", s.handleListDashboards)

			r.Route("/{scope}", func(r chi.Router) {
				r.Get("/", s.handleGetDashboard)
				r.Delete("/", s.handleDeleteDashboard)
				r.Post("/widgets", s.handleAddWidget)

				r.Route("/widgets/{widgetID}", func(r chi.Router) {
					r.Get("/", s.handleGetWidget)
					r.Delete("/", s.handleRemoveWidget)
					r.Put("/cell", s.handleMoveWidget)
					r.Get("/value", s.handleGetWidgetValue)
					r.Post("/command", s.handleWidgetCommand)
				})
			})
		})

		r.Post("/session/reset", s.handleSessionReset)
		r.Get("/audit", s.handleListAudit)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status. The database and broker
// are reported but only a failing database makes the hub unhealthy; a
// disconnected broker is an expected, recoverable state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	resp := map[string]any{
		"version": s.version,
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			resp["database"] = err.Error()
		} else {
			resp["database"] = "ok"
		}
	}
	if s.transport != nil {
		resp["mqtt_connected"] = s.transport.IsConnected()
	}

	resp["status"] = status
	writeJSON(w, code, resp)
}

// handleSessionReset clears the telemetry cache. UIs call it on logout so
// the next session does not display stale values.
func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	s.cache.Reset()
	s.logger.Info("telemetry cache reset")
	s.record(r, audit.Entry{Action: audit.ActionSessionReset, EntityType: audit.EntityCache})
	w.WriteHeader(http.StatusNoContent)
}
