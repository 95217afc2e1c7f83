package gridastar

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pdrpinto/gridastar/internal"
)

// StepSnapshot exposes the state of a run after one iteration.
type StepSnapshot struct {
	Current   Point
	StepIndex int
	OpenLen   int
	State     State
	Done      bool
	Path      []Point
	Cost      float64
}

// Stepper is one search run over a grid, advanced one expansion at a time.
// While it is running the grid refuses to move its start or target.
type Stepper struct {
	grid      *Grid
	start     Point
	target    Point
	heuristic Heuristic
	metrics   *Metrics
	emit      func(Event)

	frontierKind FrontierKind
	open         frontier
	pool         *workerPool

	runID     uuid.UUID
	startedAt time.Time
	current   Point
	stepCount int
	state     State
	path      []Point
	cost      float64
	elapsed   time.Duration
}

// NewStepper clears the grid's search fields and seeds a run from the grid's
// current start. It fails with ErrAlreadyAtTarget when start equals target
// and with ErrAlreadyRunning when another run holds the grid.
func NewStepper(grid *Grid, options ...Option) (*Stepper, error) {
	opts := buildOptions(options)

	grid.mu.Lock()
	if grid.start == grid.target {
		grid.mu.Unlock()
		return nil, fmt.Errorf("%w: start and target are both %v", ErrAlreadyAtTarget, grid.start)
	}
	if grid.busy {
		grid.mu.Unlock()
		return nil, ErrAlreadyRunning
	}

	s := &Stepper{
		grid:      grid,
		start:     grid.start,
		target:    grid.target,
		heuristic: opts.Heuristic,
		metrics:   opts.Metrics,
		emit:         opts.OnEvent,
		frontierKind: opts.Frontier,
		runID:        uuid.New(),
		startedAt:    time.Now(),
		state:        Running,
	}
	if opts.NumberOfWorkers > 0 {
		s.pool = startWorkerPool(opts.NumberOfWorkers)
	}

	s.seedLocked()
	grid.busy = true
	grid.mu.Unlock()

	s.publish(SearchStarted{RunID: s.runID, Start: s.start, Target: s.target})
	return s, nil
}

// seedLocked clears the grid's search fields and opens the start cell.
func (s *Stepper) seedLocked() {
	s.grid.clearSearchLocked()
	s.open = newFrontier(s.frontierKind, s.grid)
	origin := s.grid.at(s.start)
	origin.G, origin.H, origin.F = 0, 0, 0
	origin.Parent, origin.HasParent = s.start, true
	origin.Membership = Open
	s.open.push(s.start, 0)
	s.current = s.start
}

// RunID identifies this run in events and results.
func (s *Stepper) RunID() uuid.UUID { return s.runID }

// Step advances the search by one expansion and returns a snapshot. Once the
// run is done further calls return the final snapshot unchanged.
func (s *Stepper) Step() (StepSnapshot, error) {
	s.grid.mu.Lock()
	if s.state != Running {
		snap := s.snapshotLocked()
		s.grid.mu.Unlock()
		return snap, nil
	}
	events, err := s.stepLocked()
	snap := s.snapshotLocked()
	s.grid.mu.Unlock()

	s.publish(events...)
	return snap, err
}

func (s *Stepper) stepLocked() ([]Event, error) {
	grid := s.grid
	var events []Event
	if grid.restart {
		s.seedLocked()
		s.metrics.observeRestart()
		events = append(events, SearchRestarted{RunID: s.runID, Steps: s.stepCount})
	}

	currentPoint, ok := s.open.pop()
	if !ok {
		s.finishLocked(Exhausted)
		return append(events, SearchExhausted{RunID: s.runID, Steps: s.stepCount}), nil
	}

	s.stepCount++
	s.metrics.observeStep()
	s.current = currentPoint
	current := grid.at(currentPoint)
	current.Membership = Closed
	events = append(events, CellVisited{Point: currentPoint, Step: s.stepCount})

	// Neighbours before the target in expansion order are still relaxed.
	tasks := make([]ExpandTask, 0, len(Offsets))
	reached := false
	var finalStep float64
	for _, offset := range Offsets {
		neighbor := offset.from(currentPoint)
		if !grid.inBounds(neighbor) {
			continue
		}
		if neighbor == s.target {
			reached, finalStep = true, offset.Cost
			break
		}
		cell := grid.at(neighbor)
		if cell.Wall || cell.Membership == Closed {
			continue
		}
		tasks = append(tasks, ExpandTask{
			Index:     len(tasks),
			Neighbor:  neighbor,
			StepCost:  offset.Cost,
			CurrentG:  current.G,
			Target:    s.target,
			Heuristic: s.heuristic,
		})
	}

	proposals, err := s.evaluate(tasks)
	if err != nil {
		return events, err
	}
	for _, proposal := range proposals {
		events = append(events, CellEvaluated{Point: proposal.Neighbor})
		if relaxed, ok := s.relaxLocked(currentPoint, proposal); ok {
			events = append(events, relaxed)
		}
	}

	if !reached {
		return events, nil
	}

	goal := grid.at(s.target)
	goal.Parent, goal.HasParent = currentPoint, true
	path, ok := internal.ReconstructPath(func(p Point) (Point, bool) {
		c := grid.at(p)
		return c.Parent, c.HasParent
	}, s.target, s.start, len(grid.cells))
	if !ok {
		s.finishLocked(Exhausted)
		events = append(events, SearchExhausted{RunID: s.runID, Steps: s.stepCount})
		return events, fmt.Errorf("%w: from %v", ErrNoPathParent, s.target)
	}
	s.path = path
	s.cost = current.G + finalStep
	s.finishLocked(Found)
	events = append(events, PathFound{RunID: s.runID, Path: clonePath(path), Cost: s.cost, Steps: s.stepCount})
	return events, nil
}

// relaxLocked applies a priced neighbour. Only a never-relaxed cell or a
// strictly lower f updates it; the cell is pushed again even if it is already
// in the open set.
func (s *Stepper) relaxLocked(from Point, proposal RelaxProposal) (CellRelaxed, bool) {
	cell := s.grid.at(proposal.Neighbor)
	if !math.IsInf(cell.F, 1) && !(proposal.F < cell.F) {
		return CellRelaxed{}, false
	}
	cell.G, cell.H, cell.F = proposal.G, proposal.H, proposal.F
	cell.Parent, cell.HasParent = from, true
	cell.Membership = Open
	s.open.push(proposal.Neighbor, proposal.F)
	return CellRelaxed{
		Point:  proposal.Neighbor,
		Parent: from,
		G:      proposal.G,
		H:      proposal.H,
		F:      proposal.F,
	}, true
}

func (s *Stepper) evaluate(tasks []ExpandTask) ([]RelaxProposal, error) {
	if s.pool != nil && len(tasks) > 0 {
		return s.pool.evaluate(tasks)
	}
	proposals := make([]RelaxProposal, len(tasks))
	for i, task := range tasks {
		proposals[i] = task.evaluate()
	}
	return proposals, nil
}

// Cancel stops a running search and discards its partial state.
func (s *Stepper) Cancel() {
	s.grid.mu.Lock()
	if s.state != Running {
		s.grid.mu.Unlock()
		return
	}
	s.grid.clearSearchLocked()
	s.finishLocked(Cancelled)
	s.grid.mu.Unlock()

	s.publish(SearchCancelled{RunID: s.runID, Steps: s.stepCount})
}

// Close cancels the run if it is still going and stops the workers.
func (s *Stepper) Close() {
	s.Cancel()
	if s.pool != nil {
		s.pool.stop()
	}
}

// Result summarises the run. It is final once the state is terminal.
func (s *Stepper) Result() Result {
	s.grid.mu.RLock()
	defer s.grid.mu.RUnlock()
	elapsed := s.elapsed
	if s.state == Running {
		elapsed = time.Since(s.startedAt)
	}
	return Result{
		RunID:         s.runID,
		State:         s.state,
		Path:          clonePath(s.path),
		TotalCost:     s.cost,
		ExpandedNodes: s.stepCount,
		Found:         s.state == Found,
		Elapsed:       elapsed,
	}
}

func (s *Stepper) finishLocked(state State) {
	s.state = state
	s.elapsed = time.Since(s.startedAt)
	s.grid.busy = false
	if s.pool != nil {
		s.pool.stop()
	}
	s.metrics.observeRun(state, s.stepCount, s.elapsed)
}

func (s *Stepper) snapshotLocked() StepSnapshot {
	return StepSnapshot{
		Current:   s.current,
		StepIndex: s.stepCount,
		OpenLen:   s.open.len(),
		State:     s.state,
		Done:      s.state != Running,
		Path:      clonePath(s.path),
		Cost:      s.cost,
	}
}

func (s *Stepper) publish(events ...Event) {
	if s.emit == nil {
		return
	}
	for _, event := range events {
		s.emit(event)
	}
}

func clonePath(path []Point) []Point {
	if path == nil {
		return nil
	}
	return append([]Point(nil), path...)
}
