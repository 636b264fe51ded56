// Package handler contains the HTTP handlers of the consumer API. Handlers
// declare the interfaces they need locally so they never depend on concrete
// pipeline types.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/constellate/internal/aggregate"
	"github.com/alanyoungcy/constellate/internal/domain"
)

// SnapshotSource is the read side of the aggregate store.
type SnapshotSource interface {
	Current() aggregate.Snapshot
	LastVenueErrors() []aggregate.VenueError
}

// MarketHandler serves the current market collection.
type MarketHandler struct {
	source SnapshotSource
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler reading from source.
func NewMarketHandler(source SnapshotSource, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{source: source, logger: logger}
}

// venueErrorView is the wire form of a per-venue failure.
type venueErrorView struct {
	Platform domain.Platform `json:"platform"`
	Message  string          `json:"message"`
}

// listMarketsResponse wraps the snapshot with its refresh metadata.
type listMarketsResponse struct {
	Markets     []domain.Market  `json:"markets"`
	Total       int              `json:"total"`
	Loading     bool             `json:"loading"`
	LastError   string           `json:"lastError,omitempty"`
	UpdatedAt   *time.Time       `json:"updatedAt,omitempty"`
	VenueErrors []venueErrorView `json:"venueErrors,omitempty"`
}

// ListMarkets returns the current normalized collection.
// GET /api/markets?platform=kalshi&limit=100
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var platform domain.Platform
	if v := q.Get("platform"); v != "" {
		platform = domain.Platform(v)
		if !platform.Valid() {
			writeError(w, http.StatusBadRequest, "unknown platform")
			return
		}
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	snap := h.source.Current()

	markets := snap.Markets
	if platform != "" {
		filtered := make([]domain.Market, 0, len(markets))
		for _, m := range markets {
			if m.Platform == platform {
				filtered = append(filtered, m)
			}
		}
		markets = filtered
	}
	total := len(markets)
	if limit > 0 && limit < len(markets) {
		markets = markets[:limit]
	}

	resp := listMarketsResponse{
		Markets:   markets,
		Total:     total,
		Loading:   snap.Loading,
		LastError: snap.LastError,
	}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt
		resp.UpdatedAt = &t
	}
	for _, ve := range h.source.LastVenueErrors() {
		resp.VenueErrors = append(resp.VenueErrors, venueErrorView{
			Platform: ve.Platform,
			Message:  ve.Message,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
