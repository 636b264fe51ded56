package kalshi

import "strconv"

// APIEventsResponse is the envelope of the Kalshi events endpoint when
// queried with nested markets.
type APIEventsResponse struct {
	Events []APIEvent `json:"events"`
	Cursor string     `json:"cursor"`
}

// APIEvent groups the sub-markets of one Kalshi event ticker.
type APIEvent struct {
	EventTicker  string      `json:"event_ticker"`
	SeriesTicker string      `json:"series_ticker"`
	Title        string      `json:"title"`
	SubTitle     string      `json:"sub_title"`
	Category     string      `json:"category"`
	Markets      []APIMarket `json:"markets"`
}

// APIMarket is one nested market inside an event. Kalshi quotes prices both
// as integer cents (yes_bid) and as decimal dollar strings
// (yes_bid_dollars); the dollar field wins when present.
type APIMarket struct {
	Ticker           string  `json:"ticker"`
	Status           string  `json:"status"`
	Title            string  `json:"title"`
	Subtitle         string  `json:"subtitle"`
	YesSubTitle      string  `json:"yes_sub_title"`
	YesBid           float64 `json:"yes_bid"`
	YesAsk           float64 `json:"yes_ask"`
	YesBidDollars    string  `json:"yes_bid_dollars"`
	YesAskDollars    string  `json:"yes_ask_dollars"`
	Volume           float64 `json:"volume"`
	Volume24h        float64 `json:"volume_24h"`
	LiquidityDollars string  `json:"liquidity_dollars"`
	CloseTime        string  `json:"close_time"`
}

// yesQuote returns the yes-side bid and ask in probability units.
func (m *APIMarket) yesQuote() (bid, ask float64) {
	bid = dollarsOrCents(m.YesBidDollars, m.YesBid)
	ask = dollarsOrCents(m.YesAskDollars, m.YesAsk)
	return bid, ask
}

// open reports whether the market is still tradable. Kalshi statuses are
// "open"/"active" while live; an empty status is treated as open because
// the nested-markets responses omit it for live markets.
func (m *APIMarket) open() bool {
	switch m.Status {
	case "", "open", "active":
		return true
	}
	return false
}

func dollarsOrCents(dollars string, cents float64) float64 {
	if dollars != "" {
		if v, err := strconv.ParseFloat(dollars, 64); err == nil {
			return v
		}
	}
	return cents / 100
}

func parseDollars(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
