package world

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
)

// Starting ranges for seeded realms.
const (
	MinSeedResources  = 30
	MaxSeedResources  = 80
	MinSeedPopulation = 100_000
	MaxSeedPopulation = 2_000_000
	MaxSeedAlignment  = 30.0
)

// RealmSeed holds the parameters for one realm of a new board.
type RealmSeed struct {
	Coord      HexCoord
	Timeline   int // index into the board's timelines
	Name       string
	Resources  int
	Population int
	Alignment  float64
	Focus      string
	Score      float64 // desirability
}

// TimelineSeed names one timeline of a new board.
type TimelineSeed struct {
	Name string
}

var timelineNames = []string{
	"Prime", "Meridian", "Umbra", "Aurora", "Solace", "Vesper", "Ember", "Zenith", "Tidal", "Hollow",
}

// PlaceRealms picks cells for the board's realms and derives their starting
// values from the noise layers. Realms are grown as one connected blob from
// the most desirable cell, so every realm has at least one neighbor; each run
// of RealmsPerTimeline realms in growth order forms one timeline.
func PlaceRealms(b *Board, cfg GenConfig) ([]TimelineSeed, []RealmSeed) {
	rng := rand.New(rand.NewSource(cfg.Seed + 200))

	want := min(cfg.Timelines*cfg.RealmsPerTimeline, b.Count())
	if want <= 0 || cfg.RealmsPerTimeline <= 0 {
		return nil, nil
	}

	cells := make([]*Cell, 0, b.Count())
	for _, c := range b.Cells {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, func(x, y *Cell) int {
		if c := cmp.Compare(realmScore(y), realmScore(x)); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Coord.Q, y.Coord.Q); c != 0 {
			return c
		}
		return cmp.Compare(x.Coord.R, y.Coord.R)
	})

	taken := map[HexCoord]bool{cells[0].Coord: true}
	chosen := []*Cell{cells[0]}
	for len(chosen) < want {
		next := -1
		for i, c := range cells {
			if taken[c.Coord] || !touchesAny(c.Coord, chosen) {
				continue
			}
			next = i
			break
		}
		if next < 0 {
			break
		}
		taken[cells[next].Coord] = true
		chosen = append(chosen, cells[next])
	}

	names := generateNames(rng, len(chosen))
	seeds := make([]RealmSeed, len(chosen))
	for i, c := range chosen {
		seeds[i] = RealmSeed{
			Coord:      c.Coord,
			Timeline:   i / cfg.RealmsPerTimeline,
			Name:       names[i],
			Resources:  lerpInt(MinSeedResources, MaxSeedResources, c.Fertility),
			Population: lerpInt(MinSeedPopulation, MaxSeedPopulation, c.Fertility),
			Alignment:  math.Round((c.Harmony*2-1)*MaxSeedAlignment*10) / 10,
			Focus:      pickFocus(cfg.Focuses, c.Ferment),
			Score:      realmScore(c),
		}
	}

	n := (len(seeds) + cfg.RealmsPerTimeline - 1) / cfg.RealmsPerTimeline
	timelines := make([]TimelineSeed, n)
	for i := range timelines {
		name := timelineNames[i%len(timelineNames)]
		if i >= len(timelineNames) {
			name += " " + romanSuffix(i/len(timelineNames)+1)
		}
		timelines[i] = TimelineSeed{Name: name}
	}
	return timelines, seeds
}

// realmScore prefers fertile cells with balanced harmony.
func realmScore(c *Cell) float64 {
	return c.Fertility*2 + (1 - math.Abs(c.Harmony-0.5))
}

func touchesAny(coord HexCoord, chosen []*Cell) bool {
	for _, c := range chosen {
		if Adjacent(coord, c.Coord) {
			return true
		}
	}
	return false
}

func lerpInt(lo, hi int, t float64) int {
	t = math.Max(0, math.Min(1, t))
	return lo + int(math.Round(float64(hi-lo)*t))
}

func pickFocus(focuses []string, v float64) string {
	if len(focuses) == 0 {
		return ""
	}
	i := int(v * float64(len(focuses)))
	return focuses[min(max(i, 0), len(focuses)-1)]
}

func romanSuffix(n int) string {
	numerals := []string{"", "I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}
	if n < len(numerals) {
		return numerals[n]
	}
	return "X+"
}

// generateNames produces procedural realm names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Aether", "Chrono", "Verd", "Ash", "Lumin", "Obsid", "Sol",
		"Astra", "Cinder", "Mire", "Glass", "Iron", "Thorn", "Vell",
		"Quill", "Hallow", "Drift", "Ember", "Frost", "Tide",
	}
	suffixes := []string{
		"ance", "reach", "hold", "mere", "spire", "fall", "gate",
		"vale", "crest", "haven", "moor", "deep", "ward", "march",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if used[name] && len(used) < len(prefixes)*len(suffixes) {
			continue
		}
		used[name] = true
		names = append(names, name)
	}
	return names
}
