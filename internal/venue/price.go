package venue

// Price-derivation thresholds, in probability units.
const (
	// MaxReasonableSpread is the widest bid/ask spread for which the
	// midpoint is still a meaningful estimate.
	MaxReasonableSpread = 0.5
	// IlliquidAskThreshold marks a lone ask as a no-liquidity artifact
	// rather than a real quote.
	IlliquidAskThreshold = 0.95
	// LowPriceAskCeiling bounds the final ask-only fallback.
	LowPriceAskCeiling = 0.5
	// ValidPriceMin and ValidPriceMax bound an acceptable last-traded price.
	ValidPriceMin = 0.001
	ValidPriceMax = 0.999
)

// Quote carries whatever price signals a venue exposed for one outcome.
// Nil fields mean the venue did not report that signal at all.
type Quote struct {
	Bid       *float64
	Ask       *float64
	LastTrade *float64
}

// rule identifies which ladder step produced a price. Used by tests to probe
// reachability of the lower steps.
type rule int

const (
	ruleMidpoint rule = iota
	ruleBid
	ruleAsk
	ruleIlliquidAsk
	ruleLastTrade
	ruleResolvedNo
	ruleLowAsk
	ruleDefault
)

// DerivePrice reconciles a venue's partial quote data into one probability.
//
// Venues report liquidity asymmetrically: a resolved-but-not-yet-closed market
// often shows a one-sided quote, and naively averaging or defaulting to 0.5
// would misrepresent a near-certain outcome as uncertain. The fallback order
// below is deliberate; callers take the first matching step.
func DerivePrice(q Quote) float64 {
	price, _ := derivePrice(q)
	return price
}

func derivePrice(q Quote) (float64, rule) {
	bid, ask := q.Bid, q.Ask

	// Tight two-sided quote: use the midpoint.
	if bid != nil && ask != nil && *ask-*bid < MaxReasonableSpread {
		return (*bid + *ask) / 2, ruleMidpoint
	}
	// Usable bid.
	if bid != nil && *bid > 0 && *bid < 1 {
		return *bid, ruleBid
	}
	// Usable ask below the illiquidity cutoff.
	if ask != nil && *ask > 0 && *ask < IlliquidAskThreshold {
		return *ask, ruleAsk
	}
	// Lone ask pinned at/above the cutoff with no real bid: worthless.
	if ask != nil && *ask >= IlliquidAskThreshold && (bid == nil || *bid == 0) {
		return 0, ruleIlliquidAsk
	}
	// Last traded price, if plausible.
	if q.LastTrade != nil && *q.LastTrade > ValidPriceMin && *q.LastTrade < ValidPriceMax {
		return *q.LastTrade, ruleLastTrade
	}
	// Degenerate 0/1 book: the market already resolved No.
	if bid != nil && ask != nil && *bid == 0 && *ask == 1 {
		return 0, ruleResolvedNo
	}
	// Whether this step is reachable given the ask step above is an open
	// question inherited from the heuristic's origin; kept in order, probed
	// by TestLowAskRuleUnreachable.
	if ask != nil && *ask > 0 && *ask < LowPriceAskCeiling {
		return *ask, ruleLowAsk
	}
	return 0, ruleDefault
}
