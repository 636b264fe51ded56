// Package polymarket adapts the Polymarket Gamma events feed into canonical
// markets. Grouped events map each open sub-market to one outcome; binary
// events map the encoded outcome/price lists directly.
package polymarket

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
)

// Adapter fetches paginated Polymarket events through the gateway.
type Adapter struct {
	client *venue.Client
	limit  int
	pages  int
	logger *slog.Logger
}

// New creates a Polymarket adapter. limit and pages fall back to the venue
// defaults when non-positive.
func New(gatewayURL string, limit, pages int, logger *slog.Logger) *Adapter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if pages <= 0 {
		pages = defaultPages
	}
	return &Adapter{
		client: venue.NewClient(gatewayURL, domain.PlatformPolymarket),
		limit:  limit,
		pages:  pages,
		logger: logger.With(slog.String("venue", "polymarket")),
	}
}

// Platform implements venue.Adapter.
func (a *Adapter) Platform() domain.Platform { return domain.PlatformPolymarket }

// PageBudget implements venue.Adapter.
func (a *Adapter) PageBudget() int { return a.pages }

// FetchPage fetches one offset-paginated page of active events.
func (a *Adapter) FetchPage(ctx context.Context, token *venue.PageToken) (venue.Page, error) {
	offset := 0
	if token != nil {
		offset = token.Offset
	}

	params := url.Values{}
	params.Set("active", "true")
	params.Set("closed", "false")
	params.Set("limit", strconv.Itoa(a.limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("order", "volume24hr")
	params.Set("ascending", "false")

	body, err := a.client.Get(ctx, "events", params)
	if err != nil {
		return venue.Page{}, fmt.Errorf("venue/polymarket: get events: %w", err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return venue.Page{}, fmt.Errorf("venue/polymarket: decode events: %w", err)
	}

	markets := make([]domain.Market, 0, len(events))
	for i := range events {
		if m, ok := a.toMarket(&events[i]); ok {
			markets = append(markets, m)
		}
	}

	var next *venue.PageToken
	if len(events) > 0 {
		next = &venue.PageToken{Offset: offset + a.limit}
	}
	return venue.Page{Markets: markets, Next: next}, nil
}

// toMarket converts one event, reporting ok=false when the event has no open
// sub-markets or no derivable outcomes.
func (a *Adapter) toMarket(e *APIEvent) (domain.Market, bool) {
	if len(e.Markets) == 0 {
		return domain.Market{}, false
	}

	hasOpen := false
	for i := range e.Markets {
		if !e.Markets[i].Closed {
			hasOpen = true
			break
		}
	}
	if !hasOpen {
		return domain.Market{}, false
	}

	primary := &e.Markets[0]
	outcomes, ok := a.deriveOutcomes(e, primary)
	if !ok {
		return domain.Market{}, false
	}

	m := domain.Market{
		ID:          e.ID.String(),
		Platform:    domain.PlatformPolymarket,
		Title:       e.Title,
		Description: e.Description,
		ImageURL:    e.Image,
		URL:         "https://polymarket.com/event/" + e.Slug,
		Outcomes:    outcomes,
		Volume:      float64(e.Volume),
		Volume24h:   float64(e.Volume24hr),
		Liquidity:   float64(e.Liquidity),
		Status:      domain.MarketStatusActive,
		CreatedAt:   parseTime(e.StartDate),
		EndDate:     parseTime(e.EndDate),
		Slug:        e.Slug,
		Extra: domain.Extra{
			Polymarket: &domain.PolymarketExtra{
				ConditionID:  primary.ConditionID,
				ClobTokenIDs: primary.ClobTokenIDs,
			},
		},
	}
	return m, true
}

// deriveOutcomes builds the outcome list for an event. Grouped events take
// one outcome per open sub-market via the price heuristic; binary events zip
// the encoded label/price/token lists. A parse failure falls back to a
// synthetic 50/50 Yes/No pair unless the record has no price data at all.
func (a *Adapter) deriveOutcomes(e *APIEvent, primary *APIMarket) ([]domain.Outcome, bool) {
	if len(e.Markets) > 1 {
		return a.groupedOutcomes(e), true
	}

	labels, lerr := decodeStringList(primary.Outcomes)
	prices, perr := decodeStringList(primary.OutcomePrices)
	tokens, terr := decodeStringList(primary.ClobTokenIDs)

	if lerr != nil || perr != nil || terr != nil || len(labels) == 0 {
		if !primary.hasPriceData() {
			a.logger.Debug("dropping event with no price data", slog.String("event_id", e.ID.String()))
			return nil, false
		}
		return []domain.Outcome{
			{Label: "Yes", Price: 0.5},
			{Label: "No", Price: 0.5},
		}, true
	}

	outcomes := make([]domain.Outcome, 0, len(labels))
	for i, label := range labels {
		var price float64
		if i < len(prices) {
			price, _ = strconv.ParseFloat(prices[i], 64)
		}
		o := domain.Outcome{Label: label, Price: price}
		if i < len(tokens) {
			o.TokenID = tokens[i]
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, true
}

// groupedOutcomes maps each open sub-market of a grouped event to one
// outcome, then deduplicates labels and sorts by derived price.
func (a *Adapter) groupedOutcomes(e *APIEvent) []domain.Outcome {
	subs := make([]*APIMarket, 0, len(e.Markets))
	for i := range e.Markets {
		if !e.Markets[i].Closed {
			subs = append(subs, &e.Markets[i])
		}
	}
	if len(subs) == 0 {
		for i := range e.Markets {
			subs = append(subs, &e.Markets[i])
		}
	}

	outcomes := make([]domain.Outcome, 0, len(subs))
	for _, sub := range subs {
		label := sub.GroupItemTitle
		if label == "" {
			label = sub.Question
		}
		if label == "" {
			label = "Option"
		}

		price := venue.DerivePrice(venue.Quote{
			Bid:       sub.BestBid,
			Ask:       sub.BestAsk,
			LastTrade: lastTradePrice(sub.OutcomePrices),
		})

		var tokenID string
		if tokens, err := decodeStringList(sub.ClobTokenIDs); err == nil && len(tokens) > 0 {
			tokenID = tokens[0]
		}

		outcomes = append(outcomes, domain.Outcome{
			Label:   venue.TruncateLabel(label),
			Price:   price,
			TokenID: tokenID,
		})
	}

	outcomes = venue.DedupeOutcomes(outcomes)
	venue.SortOutcomes(outcomes)
	return outcomes
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
