package gridastar

import (
	"fmt"
	"math"
)

// Heuristic estimates the remaining cost from a cell to the target.
type Heuristic func(from, to Point) float64

// Euclidean is the straight-line distance. It never overestimates the
// 8-connected step cost, so paths stay optimal.
func Euclidean(from, to Point) float64 {
	dx := float64(from.X - to.X)
	dy := float64(from.Y - to.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Octile is the exact cost of the cheapest 8-connected route on an open grid.
// It is tighter than Euclidean and expands fewer cells.
func Octile(from, to Point) float64 {
	dx := math.Abs(float64(from.X - to.X))
	dy := math.Abs(float64(from.Y - to.Y))
	return math.Max(dx, dy) + (math.Sqrt2-1)*math.Min(dx, dy)
}

// ParseHeuristic resolves a heuristic by name. An empty name is Euclidean.
func ParseHeuristic(name string) (Heuristic, error) {
	switch name {
	case "", "euclidean":
		return Euclidean, nil
	case "octile":
		return Octile, nil
	}
	return nil, fmt.Errorf("unknown heuristic %q", name)
}

// Offset is one move of the 8-connected neighbourhood.
type Offset struct {
	DX, DY int
	Cost   float64
}

// Offsets lists the moves in expansion order: orthogonal first, then
// diagonal. The order decides which of several equal-f cells enters the
// open set first and therefore shapes tie-breaking.
var Offsets = [8]Offset{
	{-1, 0, 1}, {1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{-1, 1, math.Sqrt2}, {1, -1, math.Sqrt2}, {-1, -1, math.Sqrt2}, {1, 1, math.Sqrt2},
}

func (o Offset) from(p Point) Point { return Point{p.X + o.DX, p.Y + o.DY} }
