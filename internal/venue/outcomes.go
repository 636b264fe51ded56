package venue

import (
	"sort"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// maxLabelLen is the display cutoff for outcome labels on grouped markets.
const maxLabelLen = 60

// DedupeOutcomes removes outcomes with repeated labels, keeping first
// occurrence order. When duplicates disagree, a candidate with a nonzero
// derived price replaces an earlier zero-priced one; venues list the same
// sub-instrument twice with only one side quoted.
func DedupeOutcomes(outcomes []domain.Outcome) []domain.Outcome {
	seen := make(map[string]int, len(outcomes))
	out := outcomes[:0]
	for _, o := range outcomes {
		if idx, ok := seen[o.Label]; ok {
			if out[idx].Price == 0 && o.Price > 0 {
				out[idx] = o
			}
			continue
		}
		seen[o.Label] = len(out)
		out = append(out, o)
	}
	return out
}

// SortOutcomes orders outcomes descending by price so index 0 is the leading
// outcome. The sort is stable: equally priced outcomes keep venue order.
func SortOutcomes(outcomes []domain.Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Price > outcomes[j].Price
	})
}

// TruncateLabel shortens long grouped-outcome labels for display. It counts
// runes, not bytes; labels are frequently non-ASCII.
func TruncateLabel(label string) string {
	runes := []rune(label)
	if len(runes) > maxLabelLen {
		return string(runes[:maxLabelLen-3]) + "..."
	}
	return label
}
