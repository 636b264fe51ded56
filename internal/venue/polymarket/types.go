package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexFloat unmarshals from a JSON number or a numeric string. The Gamma API
// is inconsistent about which one it sends for volume fields.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(n)
	return nil
}

// APIEvent represents an event as returned by the Gamma events endpoint. An
// event groups one or more sub-markets; a grouped event's sub-markets become
// the outcome list of a single canonical market.
type APIEvent struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Volume      flexFloat   `json:"volume"`
	Volume24hr  flexFloat   `json:"volume24hr"`
	Liquidity   flexFloat   `json:"liquidity"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	Markets     []APIMarket `json:"markets"`
}

// APIMarket is a sub-market inside a Gamma event. Outcomes, OutcomePrices and
// ClobTokenIDs are JSON-encoded arrays inside strings (e.g. "[\"Yes\",\"No\"]")
// and are decoded defensively at conversion time.
type APIMarket struct {
	Question       string   `json:"question"`
	GroupItemTitle string   `json:"groupItemTitle"`
	ConditionID    string   `json:"conditionId"`
	Closed         bool     `json:"closed"`
	Outcomes       string   `json:"outcomes"`
	OutcomePrices  string   `json:"outcomePrices"`
	ClobTokenIDs   string   `json:"clobTokenIds"`
	BestBid        *float64 `json:"bestBid"`
	BestAsk        *float64 `json:"bestAsk"`
}

// decodeStringList decodes one of the JSON-encoded array-in-a-string fields.
func decodeStringList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// lastTradePrice extracts the first entry of the encoded outcomePrices field
// as the venue-supplied last traded price, or nil when absent or unparseable.
func lastTradePrice(raw string) *float64 {
	if raw == "" || raw == "[]" {
		return nil
	}
	prices, err := decodeStringList(raw)
	if err != nil || len(prices) == 0 {
		return nil
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return nil
	}
	return &p
}

// hasPriceData reports whether the sub-market carries any price signal at
// all. Records without one are dropped rather than emitted at a synthetic
// 50/50.
func (m *APIMarket) hasPriceData() bool {
	return m.BestBid != nil || m.BestAsk != nil ||
		(m.OutcomePrices != "" && m.OutcomePrices != "[]")
}
