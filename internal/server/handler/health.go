package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	source SnapshotSource
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided snapshot source.
func NewHealthHandler(source SnapshotSource, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{source: source, logger: logger}
}

// HealthCheck reports liveness plus refresh-pipeline health. Status degrades
// to "degraded" when the last cycle was a total failure; stale data is still
// served, so this is never a hard failure code.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Current()

	status := "ok"
	if snap.LastError != "" {
		status = "degraded"
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"markets":   len(snap.Markets),
		"loading":   snap.Loading,
	}
	if snap.LastError != "" {
		body["lastError"] = snap.LastError
	}
	if !snap.UpdatedAt.IsZero() {
		body["updatedAt"] = snap.UpdatedAt.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, body)
}
