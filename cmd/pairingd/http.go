package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nexmeet/nexmeet-chat/internal/connection"
	"github.com/nexmeet/nexmeet-chat/internal/router"
	"github.com/nexmeet/nexmeet-chat/internal/session"
	"github.com/nexmeet/nexmeet-chat/internal/sweeper"
	"github.com/nexmeet/nexmeet-chat/internal/version"
	"github.com/nexmeet/nexmeet-chat/internal/writer"
)

// handlerDeps holds what the HTTP surface exposes. Optional fields may be nil.
type handlerDeps struct {
	instanceID  string
	wsPath      string
	ws          http.Handler
	metricsPath string
	metrics     http.Handler                    // nil = metrics disabled
	ping        func(ctx context.Context) error // nil = no database
	stats       func() statsResponse
	logger      *slog.Logger
}

// statsResponse is the body of GET /stats.
type statsResponse struct {
	Instance    string                  `json:"instance"`
	Pairing     session.Stats           `json:"pairing"`
	Connections connection.ManagerStats `json:"connections"`
	Router      router.RouterStats      `json:"router"`
	Sweeper     sweeper.Stats           `json:"sweeper"`
	Journal     *writer.WriterMetrics   `json:"journal,omitempty"`
}

type healthResponse struct {
	Status     string         `json:"status"`
	Instance   string         `json:"instance"`
	Version    version.Info   `json:"version"`
	Components map[string]any `json:"components"`
}

func newHandler(d handlerDeps) http.Handler {
	if d.logger == nil {
		d.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get(d.wsPath, d.ws.ServeHTTP)
	r.Get("/health", d.health)
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.stats(), d.logger)
	})
	if d.metrics != nil {
		r.Handle(d.metricsPath, d.metrics)
	}

	return r
}

func (d handlerDeps) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Instance:   d.instanceID,
		Version:    version.Get(),
		Components: make(map[string]any),
	}

	if d.ping == nil {
		resp.Components["database"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := d.ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			resp.Components["database"] = "connected"
		}
	}

	stats := d.stats()
	resp.Components["matchmaking"] = stats.Pairing
	resp.Components["connections"] = stats.Connections.Connected

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp, d.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}
