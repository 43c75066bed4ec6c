// Package world provides the hex board that realms sit on and the noise-driven
// generator that lays out a new game.
// Uses axial coordinates (q, r) for the hex grid.
package world

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Adjacent reports whether two coordinates share an edge.
func Adjacent(a, b HexCoord) bool {
	return Distance(a, b) == 1
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S()-b.S()))
}

// Spiral returns every coordinate within radius of center, ordered ring by
// ring starting at the center.
func Spiral(center HexCoord, radius int) []HexCoord {
	out := []HexCoord{center}
	for k := 1; k <= radius; k++ {
		// Start k steps out along direction 4, then walk each side of the ring.
		h := HexCoord{Q: center.Q + HexNeighborDirections[4].Q*k, R: center.R + HexNeighborDirections[4].R*k}
		for side := 0; side < 6; side++ {
			for step := 0; step < k; step++ {
				out = append(out, h)
				d := HexNeighborDirections[side]
				h = HexCoord{Q: h.Q + d.Q, R: h.R + d.R}
			}
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
