package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/constellate/internal/projection"
)

// StarHandler serves the constellation projection of the current snapshot.
type StarHandler struct {
	source SnapshotSource
	logger *slog.Logger
}

// NewStarHandler creates a StarHandler reading from source.
func NewStarHandler(source SnapshotSource, logger *slog.Logger) *StarHandler {
	return &StarHandler{source: source, logger: logger}
}

type starsResponse struct {
	Stars     []projection.Star `json:"stars"`
	Total     int               `json:"total"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

// ListStars projects the current collection onto the constellation sphere.
// The projection is deterministic for a given snapshot, so clients may cache
// until updatedAt changes.
// GET /api/stars
func (h *StarHandler) ListStars(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Current()
	stars := projection.Stars(snap.Markets)

	resp := starsResponse{
		Stars: stars,
		Total: len(stars),
	}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt
		resp.UpdatedAt = &t
	}

	writeJSON(w, http.StatusOK, resp)
}
