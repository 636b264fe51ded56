package handler

import (
	"log/slog"
	"net/http"
)

// Refresher triggers a refresh cycle, superseding any cycle in flight.
type Refresher interface {
	Trigger()
}

// RefreshHandler exposes the manual refresh trigger.
type RefreshHandler struct {
	refresher Refresher
	logger    *slog.Logger
}

// NewRefreshHandler creates a RefreshHandler driving refresher.
func NewRefreshHandler(refresher Refresher, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{refresher: refresher, logger: logger}
}

// TriggerRefresh starts a refresh cycle and returns immediately; the result
// lands in the snapshot and is pushed over the WebSocket feed.
// POST /api/refresh
func (h *RefreshHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "manual refresh triggered",
		slog.String("remote_addr", r.RemoteAddr),
	)
	h.refresher.Trigger()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}
