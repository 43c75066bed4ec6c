package world

import "fmt"

// Cell is one hex of the board with its sampled noise layers, each in [0, 1].
type Cell struct {
	Coord     HexCoord `json:"coord"`
	Fertility float64  `json:"fertility"` // drives resources and population
	Harmony   float64  `json:"harmony"`   // drives starting ethical alignment
	Ferment   float64  `json:"ferment"`   // picks the technology focus
}

// Board holds every cell within Radius of the origin.
type Board struct {
	Cells  map[HexCoord]*Cell `json:"-"`
	Radius int                `json:"radius"`
}

// NewBoard creates an empty board with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewBoard(radius int) *Board {
	return &Board{
		Cells:  make(map[HexCoord]*Cell),
		Radius: radius,
	}
}

// Get returns the cell at the given coordinate, or nil if out of bounds.
func (b *Board) Get(coord HexCoord) *Cell {
	return b.Cells[coord]
}

// Set places a cell at its coordinate.
func (b *Board) Set(c *Cell) {
	b.Cells[c.Coord] = c
}

// InBounds returns true if the coordinate is within the board radius.
func (b *Board) InBounds(coord HexCoord) bool {
	return Distance(coord, HexCoord{}) <= b.Radius
}

// Count returns the number of cells on the board.
func (b *Board) Count() int {
	return len(b.Cells)
}

func (b *Board) String() string {
	return fmt.Sprintf("Board(radius=%d, cells=%d)", b.Radius, b.Count())
}
