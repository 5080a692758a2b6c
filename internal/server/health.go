package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/devdvd/klogame-client/internal/catalog"
)

// HealthCheck is the per-dependency status.
type HealthCheck struct {
	Status string `json:"status"`
}

// HealthResponse maps dependency name to check result.
type HealthResponse map[string]HealthCheck

func handleHealth(logger *slog.Logger, db *sql.DB, cat *catalog.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := HealthResponse{
			"sqlite":  {Status: "ok"},
			"catalog": {Status: "ok"},
		}
		status := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			logger.Error("health check failed", "name", "sqlite", "error", err)
			checks["sqlite"] = HealthCheck{Status: "error"}
			status = http.StatusServiceUnavailable
		}

		// The catalog being down only degrades edition downloads; the
		// local game keeps working, so it never fails the whole check.
		if err := cat.Health(ctx); err != nil {
			logger.Warn("health check failed", "name", "catalog", "error", err)
			checks["catalog"] = HealthCheck{Status: "error"}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(checks)
	}
}
