package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds board generation parameters.
type GenConfig struct {
	Radius            int      // Hex grid radius
	Seed              int64    // Noise and placement seed
	Timelines         int      // Number of timelines
	RealmsPerTimeline int      // Realms seeded into each timeline
	Focuses           []string // Focus names, indexed by the ferment layer
}

// DefaultGenConfig returns the standard three-by-three opening board.
func DefaultGenConfig(seed int64) GenConfig {
	return GenConfig{
		Radius:            3,
		Seed:              seed,
		Timelines:         3,
		RealmsPerTimeline: 3,
	}
}

// Generate samples the noise layers for every cell of the board.
func Generate(cfg GenConfig) *Board {
	// Three noise generators for independent layers.
	fertNoise := opensimplex.NewNormalized(cfg.Seed)
	harmNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	fermNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	b := NewBoard(cfg.Radius)
	for _, coord := range Spiral(HexCoord{}, cfg.Radius) {
		// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
		x := float64(coord.Q) + float64(coord.R)*0.5
		y := float64(coord.R) * math.Sqrt(3.0) / 2.0

		b.Set(&Cell{
			Coord:     coord,
			Fertility: octaveNoise(fertNoise, x, y, 3, 0.35, 0.5),
			Harmony:   octaveNoise(harmNoise, x, y, 2, 0.25, 0.5),
			Ferment:   octaveNoise(fermNoise, x, y, 2, 0.3, 0.5),
		})
	}
	return b
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
