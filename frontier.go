package gridastar

import "fmt"

// FrontierKind selects the open-set implementation. Both select the same cell
// on every iteration; they differ only in cost per selection.
type FrontierKind string

const (
	// FrontierScan keeps an append-only list and scans it for the minimum f,
	// allowing duplicate entries per cell.
	FrontierScan FrontierKind = "scan"

	// FrontierHeap keeps an indexed heap keyed on (f, first insertion).
	FrontierHeap FrontierKind = "heap"
)

// ParseFrontierKind validates a frontier name.
func ParseFrontierKind(s string) (FrontierKind, error) {
	switch FrontierKind(s) {
	case FrontierScan, FrontierHeap:
		return FrontierKind(s), nil
	case "":
		return FrontierScan, nil
	}
	return "", fmt.Errorf("unknown frontier %q", s)
}

// frontier is the open set of one run. Callers hold the grid write lock.
// Cells whose membership is no longer Open are stale and never returned.
type frontier interface {
	push(p Point, f float64)
	pop() (Point, bool)
	len() int
}

func newFrontier(kind FrontierKind, grid *Grid) frontier {
	if kind == FrontierHeap {
		return newHeapFrontier(grid)
	}
	return &scanFrontier{grid: grid}
}

type scanFrontier struct {
	grid    *Grid
	entries []Point
}

func (f *scanFrontier) push(p Point, _ float64) {
	f.entries = append(f.entries, p)
}

// pop returns the first entry holding the minimum f. Stale entries are
// dropped while scanning; the survivors keep their relative order.
func (f *scanFrontier) pop() (Point, bool) {
	kept := f.entries[:0]
	best := -1
	var bestF float64
	for _, p := range f.entries {
		c := f.grid.at(p)
		if c.Membership != Open {
			continue
		}
		if best == -1 || c.F < bestF {
			best, bestF = len(kept), c.F
		}
		kept = append(kept, p)
	}
	f.entries = kept
	if best == -1 {
		return Point{}, false
	}
	p := f.entries[best]
	f.entries = append(f.entries[:best], f.entries[best+1:]...)
	return p, true
}

func (f *scanFrontier) len() int { return len(f.entries) }
