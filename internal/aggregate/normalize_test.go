package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/constellate/internal/domain"
)

func mk(id string, platform domain.Platform, status domain.MarketStatus, lead, vol24 float64) domain.Market {
	return domain.Market{
		ID:       id,
		Platform: platform,
		Status:   status,
		Outcomes: []domain.Outcome{
			{Label: "Yes", Price: lead},
			{Label: "No", Price: 1 - lead},
		},
		Volume24h: vol24,
	}
}

func TestNormalizeFilters(t *testing.T) {
	in := []domain.Market{
		mk("keep", domain.PlatformPolymarket, domain.MarketStatusActive, 0.60, 100),
		mk("closed", domain.PlatformPolymarket, domain.MarketStatusClosed, 0.60, 900),
		mk("resolved", domain.PlatformKalshi, domain.MarketStatusResolved, 0.60, 900),
		mk("near-certain", domain.PlatformKalshi, domain.MarketStatusActive, 0.97, 900),
		mk("near-impossible", domain.PlatformOpinion, domain.MarketStatusActive, 0.02, 900),
		mk("floor", domain.PlatformOpinion, domain.MarketStatusActive, 0.05, 50),
		mk("ceiling", domain.PlatformOpinion, domain.MarketStatusActive, 0.95, 25),
	}

	out := Normalize(in)
	require.Len(t, out, 3)
	assert.Equal(t, "keep", out[0].ID)
	assert.Equal(t, "floor", out[1].ID)
	assert.Equal(t, "ceiling", out[2].ID)
}

func TestNormalizeSortsByVolume24hDescending(t *testing.T) {
	in := []domain.Market{
		mk("small", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 10),
		mk("big", domain.PlatformKalshi, domain.MarketStatusActive, 0.5, 5000),
		mk("zero", domain.PlatformOpinion, domain.MarketStatusActive, 0.5, 0),
		mk("mid", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 700),
	}

	out := Normalize(in)
	ids := []string{out[0].ID, out[1].ID, out[2].ID, out[3].ID}
	assert.Equal(t, []string{"big", "mid", "small", "zero"}, ids)
}

func TestNormalizeStableForEqualVolumes(t *testing.T) {
	in := []domain.Market{
		mk("first", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 100),
		mk("second", domain.PlatformKalshi, domain.MarketStatusActive, 0.5, 100),
		mk("third", domain.PlatformOpinion, domain.MarketStatusActive, 0.5, 100),
	}

	out := Normalize(in)
	assert.Equal(t, "first", out[0].ID)
	assert.Equal(t, "second", out[1].ID)
	assert.Equal(t, "third", out[2].ID)
}

func TestNormalizeIdempotent(t *testing.T) {
	in := []domain.Market{
		mk("a", domain.PlatformPolymarket, domain.MarketStatusActive, 0.4, 10),
		mk("b", domain.PlatformKalshi, domain.MarketStatusActive, 0.6, 500),
		mk("c", domain.PlatformOpinion, domain.MarketStatusClosed, 0.6, 900),
	}

	once := Normalize(in)
	twice := Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeKeepsCrossVenueDuplicates(t *testing.T) {
	in := []domain.Market{
		mk("same-event", domain.PlatformPolymarket, domain.MarketStatusActive, 0.5, 10),
		mk("same-event", domain.PlatformKalshi, domain.MarketStatusActive, 0.5, 20),
	}

	out := Normalize(in)
	assert.Len(t, out, 2)
}
