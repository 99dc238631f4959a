package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/neobridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/neobridge/internal/poller"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.withRequestID)
	r.Use(s.withAccessLog)
	r.Use(s.withRecovery)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/snapshot", s.handleSnapshot)
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "only GET is served")
	})

	return r
}

// Health is the body of GET /api/v1/health.
type Health struct {
	Status        string              `json:"status"`
	Version       string              `json:"version"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Bus           string              `json:"bus"`
	Components    map[string]string   `json:"components,omitempty"`
	LastCycle     *poller.CycleReport `json:"last_cycle,omitempty"`
}

// handleHealth reports "ok" while the bus is connected and every
// component check passes, and "degraded" (503) otherwise. Components
// maps each checked dependency to "ok" or its error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Bus:           "unknown",
	}
	healthy := true

	if s.bus != nil {
		state := s.bus.State()
		h.Bus = state.String()
		healthy = state == mqtt.StateConnected
	}

	if len(s.checks) > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()
		h.Components = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check.HealthCheck(ctx); err != nil {
				h.Components[name] = err.Error()
				healthy = false
				continue
			}
			h.Components[name] = "ok"
		}
	}

	if s.cycles != nil {
		if report, ok := s.cycles.LastReport(); ok {
			h.LastCycle = &report
		}
	}

	status := http.StatusOK
	if !healthy {
		h.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

// handleSnapshot returns the last encoded snapshot byte for byte.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.cycles == nil {
		writeProblem(w, http.StatusNotFound, "polling is not running")
		return
	}
	report, ok := s.cycles.LastReport()
	if !ok || report.Payload == nil {
		writeProblem(w, http.StatusNotFound, "no snapshot yet")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", report.StartedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(report.Payload)
}
