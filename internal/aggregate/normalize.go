package aggregate

import (
	"sort"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// Leading-price band outside which a market carries no signal value: below
// the floor it is effectively impossible, above the ceiling effectively
// decided. Either way it is not worth ranking.
const (
	minLeadingPrice = 0.05
	maxLeadingPrice = 0.95
)

// Normalize filters the combined cycle output down to active markets with a
// leading price inside the interesting band and ranks them by trailing 24h
// volume. It is a pure function with a stable sort, so it is idempotent and
// deterministic regardless of venue completion order. Identity stays
// venue-scoped: the same real-world event listed on two venues appears twice
// on purpose.
func Normalize(markets []domain.Market) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if m.Status != domain.MarketStatusActive {
			continue
		}
		lead := m.LeadingPrice()
		if lead < minLeadingPrice || lead > maxLeadingPrice {
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Volume24h > out[j].Volume24h
	})
	return out
}
