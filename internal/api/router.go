package api

import (
	"net/http"

	"log/slog"
)

// SetupRoutes configures all API routes.
func SetupRoutes(mux *http.ServeMux, handler *Handler, cronSecret string, metricsHandler http.Handler, logger *slog.Logger) {
	mux.HandleFunc("/api/cron/aggregate", RequireSecret(cronSecret, logger, handler.AggregateHandler))
	mux.HandleFunc("/api/telemetry", RequireSecret(cronSecret, logger, handler.TelemetryHandler))
	mux.HandleFunc("/api/health", handler.HealthHandler)

	// Read-only briefing surface.
	mux.HandleFunc("/api/briefing", handler.BriefingHandler)
	mux.HandleFunc("/api/items", handler.ItemsHandler)
	mux.HandleFunc("/api/ecosystem", handler.EcosystemHandler)
	mux.HandleFunc("/api/changelog", handler.ChangelogHandler)

	// Liveness probe: no dependencies, always 200.
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
}
