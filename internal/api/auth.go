package api

import (
	"net/http"

	"log/slog"
)

// RequireSecret guards a handler with bearer-token auth against the shared
// cron secret. An unset secret is a deployment error and yields 500 rather
// than an open endpoint.
func RequireSecret(secret string, logger *slog.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret == "" {
			logger.Error("cron secret not configured, rejecting request", "path", r.URL.Path)
			writeError(w, http.StatusInternalServerError, "Server Configuration Error")
			return
		}

		if r.Header.Get("Authorization") != "Bearer "+secret {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next(w, r)
	}
}
