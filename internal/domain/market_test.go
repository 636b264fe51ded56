package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketKey(t *testing.T) {
	m := Market{ID: "FED-25DEC", Platform: PlatformKalshi}
	assert.Equal(t, "kalshi:FED-25DEC", m.Key())
}

func TestLeadingPrice(t *testing.T) {
	t.Run("leading outcome wins", func(t *testing.T) {
		m := Market{Outcomes: []Outcome{{Label: "Yes", Price: 0.72}, {Label: "No", Price: 0.28}}}
		assert.Equal(t, 0.72, m.LeadingPrice())
	})

	t.Run("empty outcomes default to coin flip", func(t *testing.T) {
		m := Market{}
		assert.Equal(t, 0.5, m.LeadingPrice())
	})
}

func TestCertainty(t *testing.T) {
	cases := []struct {
		name  string
		price float64
		want  float64
	}{
		{"coin flip", 0.5, 0},
		{"decided yes", 1.0, 1},
		{"decided no", 0.0, 1},
		{"leaning", 0.75, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Market{Outcomes: []Outcome{{Label: "Yes", Price: tc.price}}}
			assert.InDelta(t, tc.want, m.Certainty(), 1e-9)
		})
	}
}

func TestPlatformValid(t *testing.T) {
	assert.True(t, PlatformPolymarket.Valid())
	assert.True(t, PlatformKalshi.Valid())
	assert.True(t, PlatformOpinion.Valid())
	assert.False(t, Platform("manifold").Valid())
}
