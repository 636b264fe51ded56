package kalshi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/constellate/internal/domain"
	"github.com/alanyoungcy/constellate/internal/venue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveEvents(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/kalshi", r.URL.Path)
		assert.Equal(t, "events", r.URL.Query().Get("endpoint"))
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Equal(t, "true", r.URL.Query().Get("with_nested_markets"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
}

func TestFetchPageBinaryEvent(t *testing.T) {
	payload := `{
		"events": [{
			"event_ticker": "FED-25DEC",
			"series_ticker": "FED",
			"title": "Fed decision",
			"sub_title": "December",
			"category": "Economics",
			"markets": [{
				"ticker": "FED-25DEC-T4.00",
				"status": "open",
				"yes_bid_dollars": "0.40",
				"yes_ask_dollars": "0.44",
				"volume": 1000,
				"volume_24h": 250,
				"liquidity_dollars": "5000.50",
				"close_time": "2026-12-10T20:00:00Z"
			}]
		}],
		"cursor": "abc123"
	}`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Markets, 1)

	m := page.Markets[0]
	assert.Equal(t, "FED-25DEC", m.ID)
	assert.Equal(t, domain.PlatformKalshi, m.Platform)
	assert.Equal(t, "Fed decision - December", m.Title)
	assert.Equal(t, "Economics", m.Category)
	assert.Equal(t, "https://kalshi.com/markets/FED-25DEC", m.URL)
	assert.Equal(t, 250.0, m.Volume24h)
	assert.InDelta(t, 5000.50, m.Liquidity, 1e-9)

	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, "Yes", m.Outcomes[0].Label)
	assert.InDelta(t, 0.42, m.Outcomes[0].Price, 1e-9)
	assert.Equal(t, "No", m.Outcomes[1].Label)
	assert.InDelta(t, 0.58, m.Outcomes[1].Price, 1e-9)

	require.NotNil(t, m.Extra.Kalshi)
	assert.Equal(t, "FED", m.Extra.Kalshi.SeriesTicker)

	require.NotNil(t, page.Next)
	assert.Equal(t, "abc123", page.Next.Cursor)
}

func TestFetchPageCentsFallback(t *testing.T) {
	payload := `{
		"events": [{
			"event_ticker": "CPI-26JAN",
			"title": "CPI print",
			"markets": [{
				"ticker": "CPI-26JAN-T3",
				"status": "open",
				"yes_bid": 30,
				"yes_ask": 34
			}]
		}]
	}`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Markets, 1)
	assert.InDelta(t, 0.32, page.Markets[0].Outcomes[0].Price, 1e-9)
	assert.Nil(t, page.Next)
}

func TestFetchPageGroupedEvent(t *testing.T) {
	payload := `{
		"events": [{
			"event_ticker": "PRES-28",
			"title": "Next president",
			"markets": [
				{"ticker": "PRES-28-A", "status": "open", "yes_sub_title": "Candidate A", "yes_bid_dollars": "0.50", "yes_ask_dollars": "0.54", "volume_24h": 10},
				{"ticker": "PRES-28-B", "status": "open", "subtitle": "Candidate B", "yes_ask_dollars": "0.20", "volume_24h": 5},
				{"ticker": "PRES-28-B2", "status": "open", "subtitle": "Candidate B", "yes_bid_dollars": "0.18", "volume_24h": 5},
				{"ticker": "PRES-28-C", "status": "settled", "subtitle": "Candidate C", "yes_bid_dollars": "0.90"}
			]
		}]
	}`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Markets, 1)

	m := page.Markets[0]
	// Settled C excluded, duplicate B collapsed, sorted by price.
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, "Candidate A", m.Outcomes[0].Label)
	assert.InDelta(t, 0.52, m.Outcomes[0].Price, 1e-9)
	assert.Equal(t, "Candidate B", m.Outcomes[1].Label)
	assert.InDelta(t, 0.20, m.Outcomes[1].Price, 1e-9)
	// Volume still sums over every nested market.
	assert.Equal(t, 20.0, m.Volume24h)
}

func TestFetchPageSkipsEventsWithoutOpenMarkets(t *testing.T) {
	payload := `{
		"events": [
			{"event_ticker": "EMPTY", "title": "No markets", "markets": []},
			{"event_ticker": "DONE", "title": "All settled", "markets": [
				{"ticker": "DONE-1", "status": "settled", "yes_bid_dollars": "0.99"}
			]}
		]
	}`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Markets)
}

func TestFetchPageCursorPropagation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "next-cursor", r.URL.Query().Get("cursor"))
		w.Write([]byte(`{"events": []}`))
	}))
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), &venue.PageToken{Cursor: "next-cursor"})
	require.NoError(t, err)
	assert.Empty(t, page.Markets)
	assert.Nil(t, page.Next)
}

func TestFetchPageTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"upstream error: 503"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	_, err := a.FetchPage(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue/kalshi")
}
