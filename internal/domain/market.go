// Package domain defines the venue-agnostic market model shared by the
// aggregation pipeline and its consumers. All venue-specific shapes live in
// the adapter packages and are converted to these types at the parse boundary.
package domain

import (
	"math"
	"time"
)

// Platform identifies one of the upstream prediction-market venues.
type Platform string

const (
	PlatformPolymarket Platform = "polymarket"
	PlatformKalshi     Platform = "kalshi"
	PlatformOpinion    Platform = "opinion"
)

// Platforms lists every supported venue in fetch order.
var Platforms = []Platform{PlatformPolymarket, PlatformKalshi, PlatformOpinion}

// Valid reports whether p is one of the supported venues.
func (p Platform) Valid() bool {
	switch p {
	case PlatformPolymarket, PlatformKalshi, PlatformOpinion:
		return true
	}
	return false
}

// Label returns the human-readable venue name.
func (p Platform) Label() string {
	switch p {
	case PlatformPolymarket:
		return "Polymarket"
	case PlatformKalshi:
		return "Kalshi"
	case PlatformOpinion:
		return "Opinion"
	}
	return string(p)
}

// MarketStatus is the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusClosed   MarketStatus = "closed"
	MarketStatusResolved MarketStatus = "resolved"
)

// Outcome is one possible resolution of a market. Price is the implied
// probability of this outcome in [0,1]. Prices across a market's outcome
// list are independent estimates and are not required to sum to 1; venues
// report them too inconsistently for that to be enforceable.
type Outcome struct {
	Label   string  `json:"label"`
	Price   float64 `json:"price"`
	TokenID string  `json:"tokenId,omitempty"` // opaque venue identifier, traceability only
}

// PolymarketExtra holds Polymarket identifiers kept for deep-link
// reconstruction.
type PolymarketExtra struct {
	ConditionID  string `json:"conditionId,omitempty"`
	ClobTokenIDs string `json:"clobTokenIds,omitempty"`
}

// KalshiExtra holds Kalshi identifiers kept for deep-link reconstruction.
type KalshiExtra struct {
	SeriesTicker  string `json:"seriesTicker,omitempty"`
	PrimaryTicker string `json:"primaryTicker,omitempty"`
}

// OpinionExtra holds Opinion identifiers kept for deep-link reconstruction.
type OpinionExtra struct {
	ChainID   int64 `json:"chainId,omitempty"`
	TopicType int   `json:"topicType,omitempty"`
}

// Extra is a closed set of per-venue identifier bags. At most the variant
// matching Market.Platform is populated; the pipeline never interprets these
// fields, it only carries them through for link reconstruction.
type Extra struct {
	Polymarket *PolymarketExtra `json:"polymarket,omitempty"`
	Kalshi     *KalshiExtra     `json:"kalshi,omitempty"`
	Opinion    *OpinionExtra    `json:"opinion,omitempty"`
}

// Market is a unified tradable event from any venue.
//
// Invariants maintained by the adapters and normalization stage:
//   - (Platform, ID) is a stable composite key across refreshes.
//   - Outcomes is never empty; grouped markets are sorted descending by
//     price so Outcomes[0] is always the current leading outcome.
//   - Every Outcome.Price is a finite number, never NaN.
type Market struct {
	ID          string       `json:"id"`
	Platform    Platform     `json:"platform"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	ImageURL    string       `json:"imageUrl,omitempty"`
	URL         string       `json:"url"`
	Outcomes    []Outcome    `json:"outcomes"`
	Volume      float64      `json:"volume"`
	Volume24h   float64      `json:"volume24h"`
	Liquidity   float64      `json:"liquidity,omitempty"`
	Status      MarketStatus `json:"status"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
	EndDate     *time.Time   `json:"endDate,omitempty"`
	Slug        string       `json:"slug,omitempty"`
	Extra       Extra        `json:"extra,omitempty"`
}

// Key returns the composite identity "platform:id". Consumers that need
// positional or visual stability across refresh cycles key off this, never
// off object identity; the pipeline rebuilds every Market wholesale each
// cycle.
func (m Market) Key() string {
	return string(m.Platform) + ":" + m.ID
}

// LeadingPrice returns the probability of the leading outcome, defaulting to
// 0.5 when no outcomes are present.
func (m Market) LeadingPrice() float64 {
	if len(m.Outcomes) == 0 {
		return 0.5
	}
	return m.Outcomes[0].Price
}

// Certainty is the distance of the leading price from 0.5, scaled to [0,1].
// 0 means a coin flip, 1 means effectively decided.
func (m Market) Certainty() float64 {
	return math.Abs(m.LeadingPrice()-0.5) * 2
}
