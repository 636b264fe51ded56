// Package kalshi adapts the Kalshi events feed (with nested markets) into
// canonical markets. One Kalshi event becomes one market; its nested
// sub-markets become either a binary Yes/No pair or a grouped outcome list.
package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/constellate/internal/domain"
	"github.com/alanyoungcy/constellate/internal/venue"
)

const (
	defaultLimit = 50
	defaultPages = 2
	maxOutcomes  = 10
)

// Adapter fetches cursor-paginated Kalshi events through the gateway.
type Adapter struct {
	client *venue.Client
	limit  int
	pages  int
	logger *slog.Logger
}

// New creates a Kalshi adapter.
func New(gatewayURL string, limit, pages int, logger *slog.Logger) *Adapter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if pages <= 0 {
		pages = defaultPages
	}
	return &Adapter{
		client: venue.NewClient(gatewayURL, domain.PlatformKalshi),
		limit:  limit,
		pages:  pages,
		logger: logger.With(slog.String("venue", "kalshi")),
	}
}

// Platform implements venue.Adapter.
func (a *Adapter) Platform() domain.Platform { return domain.PlatformKalshi }

// PageBudget implements venue.Adapter.
func (a *Adapter) PageBudget() int { return a.pages }

// FetchPage fetches one cursor-paginated page of open events.
func (a *Adapter) FetchPage(ctx context.Context, token *venue.PageToken) (venue.Page, error) {
	params := url.Values{}
	params.Set("status", "open")
	params.Set("limit", strconv.Itoa(a.limit))
	params.Set("with_nested_markets", "true")
	if token != nil && token.Cursor != "" {
		params.Set("cursor", token.Cursor)
	}

	body, err := a.client.Get(ctx, "events", params)
	if err != nil {
		return venue.Page{}, fmt.Errorf("venue/kalshi: get events: %w", err)
	}

	var resp APIEventsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return venue.Page{}, fmt.Errorf("venue/kalshi: decode events: %w", err)
	}

	markets := make([]domain.Market, 0, len(resp.Events))
	for i := range resp.Events {
		if m, ok := toMarket(&resp.Events[i]); ok {
			markets = append(markets, m)
		}
	}

	var next *venue.PageToken
	if resp.Cursor != "" {
		next = &venue.PageToken{Cursor: resp.Cursor}
	}
	return venue.Page{Markets: markets, Next: next}, nil
}

// toMarket converts one event, reporting ok=false when the event has no open
// sub-markets.
func toMarket(e *APIEvent) (domain.Market, bool) {
	if len(e.Markets) == 0 {
		return domain.Market{}, false
	}

	open := make([]*APIMarket, 0, len(e.Markets))
	for i := range e.Markets {
		if e.Markets[i].open() {
			open = append(open, &e.Markets[i])
		}
	}
	if len(open) == 0 {
		return domain.Market{}, false
	}

	primary := open[0]

	var outcomes []domain.Outcome
	if len(open) == 1 {
		bid, ask := primary.yesQuote()
		yesPrice := midOrSide(bid, ask, 0.5)
		outcomes = []domain.Outcome{
			{Label: "Yes", Price: yesPrice, TokenID: primary.Ticker},
			{Label: "No", Price: 1 - yesPrice, TokenID: primary.Ticker},
		}
	} else {
		outcomes = groupedOutcomes(open)
	}

	title := e.Title
	if e.SubTitle != "" {
		title += " - " + e.SubTitle
	}

	var volume, volume24h, liquidity float64
	for i := range e.Markets {
		volume += e.Markets[i].Volume
		volume24h += e.Markets[i].Volume24h
		liquidity += parseDollars(e.Markets[i].LiquidityDollars)
	}

	m := domain.Market{
		ID:        e.EventTicker,
		Platform:  domain.PlatformKalshi,
		Title:     title,
		Category:  e.Category,
		URL:       "https://kalshi.com/markets/" + e.EventTicker,
		Outcomes:  outcomes,
		Volume:    volume,
		Volume24h: volume24h,
		Liquidity: liquidity,
		Status:    domain.MarketStatusActive,
		EndDate:   parseTime(primary.CloseTime),
		Slug:      e.EventTicker,
		Extra: domain.Extra{
			Kalshi: &domain.KalshiExtra{
				SeriesTicker:  e.SeriesTicker,
				PrimaryTicker: primary.Ticker,
			},
		},
	}
	return m, true
}

// groupedOutcomes maps up to maxOutcomes open sub-markets to outcomes, then
// deduplicates labels and sorts by price.
func groupedOutcomes(open []*APIMarket) []domain.Outcome {
	if len(open) > maxOutcomes {
		open = open[:maxOutcomes]
	}

	outcomes := make([]domain.Outcome, 0, len(open))
	for _, m := range open {
		bid, ask := m.yesQuote()

		label := m.YesSubTitle
		if label == "" {
			label = m.Subtitle
		}
		if label == "" {
			label = m.Title
		}
		if label == "" {
			label = "Option"
		}

		outcomes = append(outcomes, domain.Outcome{
			Label:   venue.TruncateLabel(label),
			Price:   midOrSide(bid, ask, 0),
			TokenID: m.Ticker,
		})
	}

	outcomes = venue.DedupeOutcomes(outcomes)
	venue.SortOutcomes(outcomes)
	return outcomes
}

// midOrSide returns the bid/ask midpoint when both sides are quoted, else
// whichever side exists, else the fallback. Kalshi never reports one-sided
// quotes as explicit nulls, only as zeros.
func midOrSide(bid, ask, fallback float64) float64 {
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2
	}
	if ask > 0 {
		return ask
	}
	if bid > 0 {
		return bid
	}
	return fallback
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
