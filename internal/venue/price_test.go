package venue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestDerivePrice(t *testing.T) {
	cases := []struct {
		name string
		q    Quote
		want float64
	}{
		{"tight spread uses midpoint", Quote{Bid: fp(0.40), Ask: fp(0.44)}, 0.42},
		{"wide spread falls back to bid", Quote{Bid: fp(0.10), Ask: fp(0.90)}, 0.10},
		{"bid only", Quote{Bid: fp(0.33)}, 0.33},
		{"ask only below illiquid cutoff", Quote{Ask: fp(0.80)}, 0.80},
		{"lone illiquid ask is worthless", Quote{Ask: fp(0.97)}, 0},
		{"illiquid ask with zero bid is worthless", Quote{Bid: fp(0), Ask: fp(0.99)}, 0},
		{"last trade accepted inside band", Quote{LastTrade: fp(0.37)}, 0.37},
		{"last trade at band edge rejected", Quote{LastTrade: fp(0.001)}, 0},
		{"last trade near one rejected", Quote{LastTrade: fp(0.9995)}, 0},
		{"resolved no book", Quote{Bid: fp(0), Ask: fp(1)}, 0},
		{"no signals at all", Quote{}, 0},
		{"bid at one rejected, last trade used", Quote{Bid: fp(1), LastTrade: fp(0.98)}, 0.98},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, DerivePrice(tc.q), 1e-9)
		})
	}
}

func TestMidpointExactness(t *testing.T) {
	// Spread just under the cutoff still takes the midpoint; at the cutoff
	// the bid wins.
	assert.InDelta(t, 0.45, DerivePrice(Quote{Bid: fp(0.21), Ask: fp(0.69)}), 1e-9)
	assert.InDelta(t, 0.20, DerivePrice(Quote{Bid: fp(0.20), Ask: fp(0.70)}), 1e-9)
}

// TestLowAskRuleUnreachable sweeps the quote space to confirm the low-ask
// fallback never fires: every ask it would accept is already taken by the
// midpoint or plain-ask steps above it.
func TestLowAskRuleUnreachable(t *testing.T) {
	grid := []*float64{nil, fp(-0.1), fp(0), fp(0.001), fp(0.1), fp(0.25), fp(0.49),
		fp(0.5), fp(0.7), fp(0.94), fp(0.95), fp(0.97), fp(0.999), fp(1), fp(1.2)}

	for _, bid := range grid {
		for _, ask := range grid {
			for _, last := range grid {
				_, r := derivePrice(Quote{Bid: bid, Ask: ask, LastTrade: last})
				assert.NotEqual(t, ruleLowAsk, r,
					"low-ask rule fired for bid=%v ask=%v last=%v", bid, ask, last)
			}
		}
	}
}
