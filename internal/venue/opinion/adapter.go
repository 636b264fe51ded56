// Package opinion adapts the Opinion topic feed into canonical markets.
// Topics are page-number paginated; the gateway injects the upstream API
// credential for the endpoints that require one.
package opinion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/constellate/internal/domain"
	"github.com/alanyoungcy/constellate/internal/venue"
)

const (
	defaultLimit = 20
	defaultPages = 3
	maxOutcomes  = 10
)

// Adapter fetches page-numbered Opinion topics through the gateway.
type Adapter struct {
	client *venue.Client
	limit  int
	pages  int
	logger *slog.Logger
}

// New creates an Opinion adapter.
func New(gatewayURL string, limit, pages int, logger *slog.Logger) *Adapter {
	if limit <= 0 {
		limit = defaultLimit
	}
	if pages <= 0 {
		pages = defaultPages
	}
	return &Adapter{
		client: venue.NewClient(gatewayURL, domain.PlatformOpinion),
		limit:  limit,
		pages:  pages,
		logger: logger.With(slog.String("venue", "opinion")),
	}
}

// Platform implements venue.Adapter.
func (a *Adapter) Platform() domain.Platform { return domain.PlatformOpinion }

// PageBudget implements venue.Adapter.
func (a *Adapter) PageBudget() int { return a.pages }

// FetchPage fetches one page of live topics. Pages are numbered from 1.
func (a *Adapter) FetchPage(ctx context.Context, token *venue.PageToken) (venue.Page, error) {
	page := 1
	if token != nil && token.Page > 0 {
		page = token.Page
	}

	params := url.Values{}
	params.Set("sortBy", "5")
	params.Set("chainId", "56")
	params.Set("limit", strconv.Itoa(a.limit))
	params.Set("status", "2")
	params.Set("isShow", "1")
	params.Set("topicType", "2")
	params.Set("page", strconv.Itoa(page))
	params.Set("indicatorType", "0")
	params.Set("excludePin", "1")

	body, err := a.client.Get(ctx, "topic", params)
	if err != nil {
		return venue.Page{}, fmt.Errorf("venue/opinion: get topics: %w", err)
	}

	var resp APITopicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return venue.Page{}, fmt.Errorf("venue/opinion: decode topics: %w", err)
	}
	if resp.Error != "" {
		return venue.Page{}, fmt.Errorf("venue/opinion: upstream: %w", errors.New(resp.Error))
	}

	markets := make([]domain.Market, 0, len(resp.Result.List))
	for i := range resp.Result.List {
		markets = append(markets, toMarket(&resp.Result.List[i]))
	}

	var next *venue.PageToken
	if len(resp.Result.List) > 0 {
		next = &venue.PageToken{Page: page + 1}
	}
	return venue.Page{Markets: markets, Next: next}, nil
}

func toMarket(t *APITopic) domain.Market {
	title := t.Title
	if title == "" {
		title = t.TitleShort
	}
	description := t.Abstract
	if description == "" {
		description = t.Content
	}

	var category string
	for _, l := range t.LabelName {
		if l != "" {
			category = l
			break
		}
	}

	var endDate *time.Time
	if t.CutoffTime > 0 {
		cutoff := time.Unix(t.CutoffTime, 0).UTC()
		endDate = &cutoff
	}

	return domain.Market{
		ID:          t.TopicID.String(),
		Platform:    domain.PlatformOpinion,
		Title:       title,
		Description: description,
		Category:    category,
		ImageURL:    t.ThumbnailURL,
		URL:         "https://app.opinion.trade/topic/" + t.TopicID.String(),
		Outcomes:    deriveOutcomes(t),
		Volume:      float64(t.Volume),
		Volume24h:   float64(t.Volume24h),
		Status:      domain.MarketStatusActive,
		EndDate:     endDate,
		Slug:        t.TopicID.String(),
		Extra: domain.Extra{
			Opinion: &domain.OpinionExtra{
				ChainID:   t.ChainID,
				TopicType: t.TopicType,
			},
		},
	}
}

// deriveOutcomes builds the outcome list for a topic: one outcome per child
// for grouped topics, a Yes/No pair otherwise. Quotes missing on both sides
// fall back to 0.5 for the binary shapes and 0.5 per child for grouped ones.
func deriveOutcomes(t *APITopic) []domain.Outcome {
	children := t.ChildList

	switch {
	case len(children) > 1:
		if len(children) > maxOutcomes {
			children = children[:maxOutcomes]
		}
		outcomes := make([]domain.Outcome, 0, len(children))
		for i := range children {
			c := &children[i]
			label := c.Title
			if label == "" {
				label = "Option"
			}
			outcomes = append(outcomes, domain.Outcome{
				Label:   label,
				Price:   yesPrice(c.YesBuyPrice, c.NoBuyPrice, 0.5),
				TokenID: c.YesPos,
			})
		}
		outcomes = venue.DedupeOutcomes(outcomes)
		venue.SortOutcomes(outcomes)
		return outcomes

	case len(children) == 1:
		c := &children[0]
		yes := yesPrice(c.YesBuyPrice, c.NoBuyPrice, 0.5)
		yesLabel, noLabel := c.YesLabel, c.NoLabel
		if yesLabel == "" {
			yesLabel = "Yes"
		}
		if noLabel == "" {
			noLabel = "No"
		}
		return []domain.Outcome{
			{Label: yesLabel, Price: yes, TokenID: c.YesPos},
			{Label: noLabel, Price: 1 - yes, TokenID: c.NoPos},
		}

	default:
		yes := yesPrice(t.YesBuyPrice, t.NoBuyPrice, 0.5)
		return []domain.Outcome{
			{Label: "Yes", Price: yes},
			{Label: "No", Price: 1 - yes},
		}
	}
}
