package world

import (
	"slices"
	"testing"
)

func TestSpiralCoversRadius(t *testing.T) {
	for radius := 0; radius <= 4; radius++ {
		cells := Spiral(HexCoord{}, radius)
		if want := 1 + 3*radius*(radius+1); len(cells) != want {
			t.Fatalf("radius %d: %d cells, want %d", radius, len(cells), want)
		}
		seen := map[HexCoord]bool{}
		for _, c := range cells {
			if seen[c] {
				t.Fatalf("radius %d: duplicate %v", radius, c)
			}
			seen[c] = true
			if d := Distance(c, HexCoord{}); d > radius {
				t.Fatalf("radius %d: %v at distance %d", radius, c, d)
			}
		}
	}
}

func TestNeighborsAreAdjacent(t *testing.T) {
	h := HexCoord{Q: 2, R: -1}
	for _, n := range h.Neighbors() {
		if !Adjacent(h, n) {
			t.Fatalf("%v not adjacent to neighbor %v", h, n)
		}
	}
	if Adjacent(h, h) {
		t.Fatal("a hex is not adjacent to itself")
	}
	if d := Distance(HexCoord{}, HexCoord{Q: 3, R: -3}); d != 3 {
		t.Fatalf("distance = %d, want 3", d)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(DefaultGenConfig(99))
	b := Generate(DefaultGenConfig(99))
	if a.Count() != 37 {
		t.Fatalf("cells = %d, want 37", a.Count())
	}
	for coord, c := range a.Cells {
		o := b.Get(coord)
		if o == nil || *o != *c {
			t.Fatalf("cell %v differs between runs", coord)
		}
		for _, v := range []float64{c.Fertility, c.Harmony, c.Ferment} {
			if v < 0 || v > 1 {
				t.Fatalf("cell %v layer %f outside [0, 1]", coord, v)
			}
		}
		if !a.InBounds(coord) {
			t.Fatalf("cell %v out of bounds", coord)
		}
	}
}

// TestPlaceRealms ensures the opening board has the configured shape, stays
// connected and derives starting values inside their ranges.
func TestPlaceRealms(t *testing.T) {
	cfg := DefaultGenConfig(7)
	cfg.Focuses = []string{"Balanced", "Military", "Scientific"}
	timelines, realms := PlaceRealms(Generate(cfg), cfg)

	if len(timelines) != 3 || len(realms) != 9 {
		t.Fatalf("timelines=%d realms=%d, want 3 and 9", len(timelines), len(realms))
	}
	perTimeline := map[int]int{}
	coords := map[HexCoord]bool{}
	names := map[string]bool{}
	for i, r := range realms {
		perTimeline[r.Timeline]++
		if coords[r.Coord] {
			t.Fatalf("two realms on %v", r.Coord)
		}
		coords[r.Coord] = true
		if names[r.Name] {
			t.Fatalf("duplicate realm name %q", r.Name)
		}
		names[r.Name] = true
		if r.Resources < MinSeedResources || r.Resources > MaxSeedResources {
			t.Fatalf("resources %d out of range", r.Resources)
		}
		if r.Population < MinSeedPopulation || r.Population > MaxSeedPopulation {
			t.Fatalf("population %d out of range", r.Population)
		}
		if r.Alignment < -MaxSeedAlignment || r.Alignment > MaxSeedAlignment {
			t.Fatalf("alignment %f out of range", r.Alignment)
		}
		if !slices.Contains(cfg.Focuses, r.Focus) {
			t.Fatalf("focus %q not offered", r.Focus)
		}
		if i > 0 {
			linked := false
			for _, o := range realms[:i] {
				if Adjacent(o.Coord, r.Coord) {
					linked = true
				}
			}
			if !linked {
				t.Fatalf("realm %d at %v not adjacent to an earlier realm", i, r.Coord)
			}
		}
	}
	for i := 0; i < 3; i++ {
		if perTimeline[i] != 3 {
			t.Fatalf("timeline %d has %d realms, want 3", i, perTimeline[i])
		}
	}
}

func TestPlaceRealmsCapsAtBoardSize(t *testing.T) {
	cfg := GenConfig{Radius: 1, Seed: 3, Timelines: 4, RealmsPerTimeline: 3}
	timelines, realms := PlaceRealms(Generate(cfg), cfg)
	if len(realms) != 7 || len(timelines) != 3 {
		t.Fatalf("realms=%d timelines=%d, want 7 and 3", len(realms), len(timelines))
	}
	if realms[0].Focus != "" {
		t.Fatalf("focus = %q with no focuses configured", realms[0].Focus)
	}
}
