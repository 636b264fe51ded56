package venue

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/constellate/internal/domain"
)

func TestDedupeOutcomes(t *testing.T) {
	t.Run("keeps first occurrence order", func(t *testing.T) {
		in := []domain.Outcome{
			{Label: "A", Price: 0.4},
			{Label: "B", Price: 0.3},
			{Label: "A", Price: 0.2},
		}
		out := DedupeOutcomes(in)
		assert.Equal(t, []domain.Outcome{{Label: "A", Price: 0.4}, {Label: "B", Price: 0.3}}, out)
	})

	t.Run("nonzero price replaces zero duplicate", func(t *testing.T) {
		in := []domain.Outcome{
			{Label: "A", Price: 0, TokenID: "t1"},
			{Label: "A", Price: 0.6, TokenID: "t2"},
		}
		out := DedupeOutcomes(in)
		assert.Len(t, out, 1)
		assert.Equal(t, 0.6, out[0].Price)
		assert.Equal(t, "t2", out[0].TokenID)
	})

	t.Run("nonzero original never replaced", func(t *testing.T) {
		in := []domain.Outcome{
			{Label: "A", Price: 0.2},
			{Label: "A", Price: 0.9},
		}
		out := DedupeOutcomes(in)
		assert.Equal(t, 0.2, out[0].Price)
	})
}

func TestSortOutcomes(t *testing.T) {
	outcomes := []domain.Outcome{
		{Label: "longshot", Price: 0.05},
		{Label: "favorite", Price: 0.7},
		{Label: "second", Price: 0.2},
	}
	SortOutcomes(outcomes)
	assert.Equal(t, "favorite", outcomes[0].Label)
	assert.Equal(t, "second", outcomes[1].Label)
	assert.Equal(t, "longshot", outcomes[2].Label)
}

func TestTruncateLabel(t *testing.T) {
	short := "Will it rain tomorrow?"
	assert.Equal(t, short, TruncateLabel(short))

	long := strings.Repeat("x", 80)
	got := TruncateLabel(long)
	assert.Len(t, got, 60)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncateLabelMultiByte(t *testing.T) {
	long := strings.Repeat("比", 80)
	got := TruncateLabel(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 60, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	// A 60-rune label fits untouched regardless of byte length.
	exact := strings.Repeat("é", 60)
	assert.Equal(t, exact, TruncateLabel(exact))
}
