package polymarket

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

const binaryEvent = `{
	"id": 101,
	"title": "Will it happen?",
	"slug": "will-it-happen",
	"description": "A binary event",
	"image": "https://img.example/101.png",
	"volume": 120000,
	"volume24hr": 4500,
	"liquidity": 900,
	"startDate": "2026-01-02T00:00:00Z",
	"endDate": "2026-12-31T00:00:00Z",
	"markets": [{
		"question": "Will it happen?",
		"conditionId": "0xabc",
		"closed": false,
		"outcomes": "[\"Yes\",\"No\"]",
		"outcomePrices": "[\"0.37\",\"0.63\"]",
		"clobTokenIds": "[\"tok-yes\",\"tok-no\"]"
	}]
}`

func serveEvents(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/polymarket", r.URL.Path)
		assert.Equal(t, "events", r.URL.Query().Get("endpoint"))
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
}

func TestFetchPageBinaryEvent(t *testing.T) {
	srv := serveEvents(t, "["+binaryEvent+"]")
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Markets, 1)

	m := page.Markets[0]
	assert.Equal(t, "101", m.ID)
	assert.Equal(t, domain.PlatformPolymarket, m.Platform)
	assert.Equal(t, "https://polymarket.com/event/will-it-happen", m.URL)
	assert.Equal(t, domain.MarketStatusActive, m.Status)
	assert.Equal(t, 4500.0, m.Volume24h)
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, domain.Outcome{Label: "Yes", Price: 0.37, TokenID: "tok-yes"}, m.Outcomes[0])
	assert.Equal(t, domain.Outcome{Label: "No", Price: 0.63, TokenID: "tok-no"}, m.Outcomes[1])
	require.NotNil(t, m.Extra.Polymarket)
	assert.Equal(t, "0xabc", m.Extra.Polymarket.ConditionID)

	require.NotNil(t, page.Next)
	assert.Equal(t, 50, page.Next.Offset)
}

func TestFetchPageGroupedEvent(t *testing.T) {
	payload := `[{
		"id": "202",
		"title": "Who wins?",
		"slug": "who-wins",
		"volume": "5000",
		"volume24hr": "1000",
		"markets": [
			{
				"groupItemTitle": "Alice",
				"closed": false,
				"bestBid": 0.40,
				"bestAsk": 0.44,
				"clobTokenIds": "[\"tok-a\"]"
			},
			{
				"groupItemTitle": "Bob",
				"closed": false,
				"bestAsk": 0.97,
				"clobTokenIds": "[\"tok-b\"]"
			},
			{
				"groupItemTitle": "Alice",
				"closed": false,
				"outcomePrices": "[\"0.30\"]",
				"clobTokenIds": "[\"tok-a2\"]"
			},
			{
				"groupItemTitle": "Carol",
				"closed": true,
				"bestBid": 0.10,
				"bestAsk": 0.12
			}
		]
	}]`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Markets, 1)

	m := page.Markets[0]
	// Closed Carol excluded, duplicate Alice collapsed, sorted by price:
	// Alice midpoint 0.42 leads, illiquid Bob derives to 0.
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, "Alice", m.Outcomes[0].Label)
	assert.InDelta(t, 0.42, m.Outcomes[0].Price, 1e-9)
	assert.Equal(t, "Bob", m.Outcomes[1].Label)
	assert.Equal(t, 0.0, m.Outcomes[1].Price)
}

func TestFetchPageMalformedOutcomesFallBack(t *testing.T) {
	payload := `[{
		"id": 303,
		"title": "Broken encoding",
		"slug": "broken",
		"markets": [{
			"closed": false,
			"outcomes": "not json",
			"outcomePrices": "[\"0.40\",\"0.60\"]"
		}]
	}]`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, page.Markets, 1)

	m := page.Markets[0]
	require.Len(t, m.Outcomes, 2)
	assert.Equal(t, domain.Outcome{Label: "Yes", Price: 0.5}, m.Outcomes[0])
	assert.Equal(t, domain.Outcome{Label: "No", Price: 0.5}, m.Outcomes[1])
}

func TestFetchPageDropsRecordsWithoutPriceData(t *testing.T) {
	payload := `[{
		"id": 404,
		"title": "No prices anywhere",
		"slug": "no-prices",
		"markets": [{"closed": false, "outcomes": "not json"}]
	}]`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Markets)
}

func TestFetchPageSkipsFullyClosedEvents(t *testing.T) {
	payload := `[{
		"id": 505,
		"title": "Done deal",
		"slug": "done",
		"markets": [{"closed": true, "outcomePrices": "[\"1\"]"}]
	}]`
	srv := serveEvents(t, payload)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Markets)
}

func TestFetchPageEndOfPagination(t *testing.T) {
	srv := serveEvents(t, "[]")
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	page, err := a.FetchPage(context.Background(), &venue.PageToken{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, page.Markets)
	assert.Nil(t, page.Next)
}

func TestFetchPageTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"upstream error: 502"}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	_, err := a.FetchPage(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get events")
}

func TestFetchPageMalformedTopLevelJSON(t *testing.T) {
	srv := serveEvents(t, `{"not":"an array"}`)
	defer srv.Close()

	a := New(srv.URL, 50, 2, testLogger())
	_, err := a.FetchPage(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode events")
}
