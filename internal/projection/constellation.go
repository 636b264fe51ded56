// Package projection turns the normalized market collection into the 3D
// constellation view consumed by clients: deterministic star placement on a
// flattened sphere, with visual weight derived from volume and certainty.
package projection

import (
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// Star is one market rendered as a point in the constellation. Position and
// the visual attributes are fully determined by the market list and its
// ordering, so the same snapshot always projects to the same sky.
type Star struct {
	Market        domain.Market `json:"market"`
	Position      [3]float64    `json:"position"`
	OrbitRadius   float64       `json:"orbitRadius"`
	OrbitSpeed    float64       `json:"orbitSpeed"`
	Size          float64       `json:"size"`
	Color         string        `json:"color"`
	Brightness    float64       `json:"brightness"`
	ParticleCount int           `json:"particleCount"`
	Category      string        `json:"category"`
}

var platformColors = map[domain.Platform]string{
	domain.PlatformPolymarket: "#3B82F6",
	domain.PlatformKalshi:     "#A855F7",
	domain.PlatformOpinion:    "#FACC15",
}

// CategoryOrbitColors maps category buckets to their orbit ring colors.
var CategoryOrbitColors = map[string]string{
	"politics":      "#4488ff",
	"crypto":        "#ffaa00",
	"sports":        "#44ff88",
	"science":       "#ff44aa",
	"economics":     "#ff4444",
	"entertainment": "#aa44ff",
	"default":       "#6688cc",
}

// goldenAngle spreads star indices evenly around the sphere.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

// Stars projects markets onto the constellation sphere. Uncertain markets
// (leading price near 0.5) orbit on the outer shells; near-certain ones sit
// close to the center, orbit faster, and shine brighter. Size and particle
// count scale with the market's share of the collection's peak 24h volume.
func Stars(markets []domain.Market) []Star {
	maxVolume := 1.0
	for _, m := range markets {
		if m.Volume24h > maxVolume {
			maxVolume = m.Volume24h
		}
	}

	n := len(markets)
	if n == 0 {
		n = 1
	}

	stars := make([]Star, 0, len(markets))
	for i, m := range markets {
		volumeNorm := math.Min(m.Volume24h/maxVolume, 1)
		certainty := m.Certainty()

		// Uncertain markets sit on the outer shells (radius 8..26).
		orbitRadius := 8 + (1-certainty)*18

		theta := goldenAngle * float64(i)
		phi := math.Acos(1 - 2*(float64(i)+0.5)/float64(n))

		x := orbitRadius * math.Sin(phi) * math.Cos(theta)
		// Flatten the sphere into an ellipsoid.
		y := orbitRadius * math.Sin(phi) * math.Sin(theta) * 0.6
		z := orbitRadius * math.Cos(phi)

		stars = append(stars, Star{
			Market:        m,
			Position:      [3]float64{x, y, z},
			OrbitRadius:   orbitRadius,
			OrbitSpeed:    0.002 + certainty*0.008,
			Size:          0.15 + volumeNorm*0.6,
			Color:         platformColors[m.Platform],
			Brightness:    0.3 + certainty*0.7,
			ParticleCount: int(math.Floor(3 + volumeNorm*15)),
			Category:      categoryBucket(m.Category),
		})
	}
	return stars
}

// categoryBucket collapses the venues' free-form category strings into the
// fixed orbit color groups.
func categoryBucket(category string) string {
	cat := strings.ToLower(category)
	switch {
	case containsAny(cat, "politic", "election", "government"):
		return "politics"
	case containsAny(cat, "crypto", "bitcoin", "token"):
		return "crypto"
	case containsAny(cat, "sport", "nba", "nfl"):
		return "sports"
	case containsAny(cat, "science", "climate", "tech"):
		return "science"
	case containsAny(cat, "econ", "finance", "fed", "gdp"):
		return "economics"
	case containsAny(cat, "entertain", "movie", "music"):
		return "entertainment"
	default:
		return "default"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// FormatProbability renders a price as a whole percentage, "42%".
func FormatProbability(price float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(price*100)))
}

// FormatVolume renders a dollar volume compactly: "$1.2M", "$450K", "$87".
func FormatVolume(vol float64) string {
	switch {
	case vol >= 1_000_000:
		return fmt.Sprintf("$%.1fM", vol/1_000_000)
	case vol >= 1_000:
		return fmt.Sprintf("$%.0fK", vol/1_000)
	default:
		return fmt.Sprintf("$%.0f", vol)
	}
}
