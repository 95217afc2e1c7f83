package gridastar

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// DefaultWallProbability is the share of cells Randomize turns into walls by default.
const DefaultWallProbability = 0.25

// Point addresses one grid cell.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Membership is the search state of a cell within the current run.
type Membership uint8

const (
	Unvisited Membership = iota
	Open
	Closed
)

func (m Membership) String() string {
	switch m {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unvisited"
	}
}

// Cell is the per-position record. F is +Inf until the cell is first relaxed.
type Cell struct {
	Wall       bool
	G, H, F    float64
	Parent     Point
	HasParent  bool
	Membership Membership
}

func newCell() Cell {
	return Cell{F: math.Inf(1)}
}

func (c *Cell) clearSearch() {
	c.G, c.H, c.F = 0, 0, math.Inf(1)
	c.Parent, c.HasParent = Point{}, false
	c.Membership = Unvisited
}

// CellChange records one cell whose wall flag, or role as start or target,
// was changed by a mutator.
type CellChange struct {
	Point
	Wall bool `json:"wall"`
}

// CellsChanged carries every cell touched by one mutator call. It is also an
// Event, so observers can forward it alongside search events.
type CellsChanged struct {
	Cells []CellChange `json:"cells"`
}

// Grid is a fixed-size cell array with a distinguished start and target.
// All methods are safe for concurrent use. A running search holds the write
// lock for one iteration at a time, so edits land between iterations.
type Grid struct {
	mu        sync.RWMutex
	width     int
	height    int
	cells     []Cell
	start     Point
	target    Point
	busy      bool
	restart   bool
	observers []func(CellsChanged)
}

// NewGrid creates an obstacle-free grid.
func NewGrid(width, height int, start, target Point) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	g := &Grid{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
		start:  start,
		target: target,
	}
	if !g.inBounds(start) {
		return nil, fmt.Errorf("start: %w", g.coordinateError(start))
	}
	if !g.inBounds(target) {
		return nil, fmt.Errorf("target: %w", g.coordinateError(target))
	}
	for i := range g.cells {
		g.cells[i] = newCell()
	}
	return g, nil
}

// Size returns the grid dimensions.
func (g *Grid) Size() (width, height int) { return g.width, g.height }

// InBounds reports whether (x, y) addresses a cell.
func (g *Grid) InBounds(x, y int) bool { return g.inBounds(Point{x, y}) }

func (g *Grid) Start() Point {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.start
}

func (g *Grid) Target() Point {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.target
}

// Cell returns a copy of the cell at (x, y).
func (g *Grid) Cell(x, y int) (Cell, error) {
	p := Point{x, y}
	if !g.inBounds(p) {
		return Cell{}, g.coordinateError(p)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return *g.at(p), nil
}

// Observe registers fn to be called once per mutator call that changed at
// least one cell. fn runs outside the grid lock and may read the grid.
func (g *Grid) Observe(fn func(CellsChanged)) {
	g.mu.Lock()
	g.observers = append(g.observers, fn)
	g.mu.Unlock()
}

// SetWall sets or clears the wall flag at (x, y). Start and target never
// become walls; the call is then a no-op. A cell walled during a running
// search leaves the run: an open cell is evicted, and a closed cell makes the
// run restart from the start on its next step.
func (g *Grid) SetWall(x, y int, wall bool) error {
	p := Point{x, y}
	if !g.inBounds(p) {
		return g.coordinateError(p)
	}
	g.mu.Lock()
	if p == g.start || p == g.target {
		g.mu.Unlock()
		return nil
	}
	c := g.at(p)
	if c.Wall == wall {
		g.mu.Unlock()
		return nil
	}
	g.setWallLocked(c, wall)
	observers := g.observers
	g.mu.Unlock()

	notify(observers, CellChange{Point: p, Wall: wall})
	return nil
}

// MoveStart relocates the start to (x, y). Rejected while a search runs.
func (g *Grid) MoveStart(x, y int) error {
	return g.move(&g.start, Point{x, y})
}

// MoveTarget relocates the target to (x, y). Rejected while a search runs.
func (g *Grid) MoveTarget(x, y int) error {
	return g.move(&g.target, Point{x, y})
}

func (g *Grid) move(which *Point, to Point) error {
	if !g.inBounds(to) {
		return g.coordinateError(to)
	}
	g.mu.Lock()
	if g.busy {
		g.mu.Unlock()
		return ErrSearchRunning
	}
	from := *which
	// The vacated cell stays clear even when the other distinguished point
	// still sits on it.
	g.at(from).Wall = false
	*which = to
	g.at(to).Wall = false
	observers := g.observers
	g.mu.Unlock()

	notify(observers, CellChange{Point: from}, CellChange{Point: to})
	return nil
}

// Randomize clears every wall, then turns each cell other than start and
// target into a wall with the given probability. A nil rng is seeded from
// the clock.
func (g *Grid) Randomize(probability float64, rng *rand.Rand) error {
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidProbability, probability)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	g.mu.Lock()
	var changes []CellChange
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			p := Point{x, y}
			if p == g.start || p == g.target {
				continue
			}
			wall := rng.Float64() < probability
			c := g.at(p)
			if c.Wall != wall {
				g.setWallLocked(c, wall)
				changes = append(changes, CellChange{Point: p, Wall: wall})
			}
		}
	}
	observers := g.observers
	g.mu.Unlock()

	notify(observers, changes...)
	return nil
}

// ClearSearch resets every cell's search fields, leaving walls, start and
// target untouched. Rejected while a search runs.
func (g *Grid) ClearSearch() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return ErrSearchRunning
	}
	g.clearSearchLocked()
	return nil
}

// GridSnapshot is a consistent copy of the grid for renderers.
type GridSnapshot struct {
	Width  int
	Height int
	Start  Point
	Target Point
	Cells  []Cell
}

// At returns the snapshot cell at p. p must be in bounds.
func (s GridSnapshot) At(p Point) Cell { return s.Cells[p.Y*s.Width+p.X] }

// Snapshot copies the whole grid under the read lock.
func (g *Grid) Snapshot() GridSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return GridSnapshot{
		Width:  g.width,
		Height: g.height,
		Start:  g.start,
		Target: g.target,
		Cells:  cells,
	}
}

// The helpers below expect g.mu to be held.

func (g *Grid) inBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) at(p Point) *Cell { return &g.cells[p.Y*g.width+p.X] }

func (g *Grid) setWallLocked(c *Cell, wall bool) {
	c.Wall = wall
	if !wall {
		return
	}
	switch c.Membership {
	case Open:
		c.Membership = Unvisited
		c.F = math.Inf(1)
	case Closed:
		// Later cells may hold parents through this one. The cell stays
		// Closed until the run restarts so it can never be relaxed again.
		if g.busy {
			g.restart = true
		}
	}
}

func (g *Grid) clearSearchLocked() {
	for i := range g.cells {
		g.cells[i].clearSearch()
	}
	g.restart = false
}

func (g *Grid) coordinateError(p Point) error {
	return &CoordinateError{X: p.X, Y: p.Y, Width: g.width, Height: g.height}
}

func notify(observers []func(CellsChanged), changes ...CellChange) {
	if len(changes) == 0 {
		return
	}
	for _, fn := range observers {
		fn(CellsChanged{Cells: append([]CellChange(nil), changes...)})
	}
}
