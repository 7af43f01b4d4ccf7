package core

import "math"

// Coord identifies a cell by line (y-axis) and column (x-axis).
type Coord struct {
	Lin int
	Col int
}

// Add returns the coordinate shifted by mod.
func (a Coord) Add(mod Coord) Coord {
	return Coord{Lin: a.Lin + mod.Lin, Col: a.Col + mod.Col}
}

// Sub returns the component-wise difference a - b.
func (a Coord) Sub(b Coord) Coord {
	return Coord{Lin: a.Lin - b.Lin, Col: a.Col - b.Col}
}

// Distance returns the Euclidean distance between two coordinates.
func Distance(a, b Coord) float64 {
	return math.Hypot(float64(a.Lin-b.Lin), float64(a.Col-b.Col))
}

// AxialOffsets lists the Von Neumann neighborhood, scan order top to bottom.
var AxialOffsets = [4]Coord{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}

// MooreOffsets lists the full 8-cell neighborhood.
var MooreOffsets = [8]Coord{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}
