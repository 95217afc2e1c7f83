package gridastar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStepDelay is the pause an Engine takes after each iteration so
// renderers can keep up.
const DefaultStepDelay = 10 * time.Millisecond

// State is the lifecycle of a search.
type State uint8

const (
	Idle State = iota
	Running
	Found
	Exhausted
	Cancelled
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == Found || s == Exhausted || s == Cancelled }

// Result contains the outcome of a search.
type Result struct {
	RunID         uuid.UUID
	State         State
	Path          []Point
	TotalCost     float64
	ExpandedNodes int
	Found         bool
	Elapsed       time.Duration
}

// Options defines parameters for the search.
type Options struct {
	NumberOfWorkers int
	Frontier        FrontierKind
	StepDelay       time.Duration
	Heuristic       Heuristic
	Logger          *slog.Logger
	Metrics         *Metrics
	OnEvent         func(Event)
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithWorkers prices neighbours on numberOfWorkers goroutines. Zero prices
// them inline on the search goroutine.
func WithWorkers(numberOfWorkers int) Option {
	return func(options *Options) { options.NumberOfWorkers = numberOfWorkers }
}

// WithFrontier selects the open-set implementation.
func WithFrontier(kind FrontierKind) Option {
	return func(options *Options) { options.Frontier = kind }
}

// WithStepDelay sets the Engine's pause between iterations.
func WithStepDelay(delay time.Duration) Option {
	return func(options *Options) { options.StepDelay = delay }
}

// WithHeuristic replaces Euclidean. It must not overestimate the 8-connected
// step cost or paths stop being optimal.
func WithHeuristic(heuristic Heuristic) Option {
	return func(options *Options) { options.Heuristic = heuristic }
}

func WithLogger(logger *slog.Logger) Option {
	return func(options *Options) { options.Logger = logger }
}

func WithMetrics(metrics *Metrics) Option {
	return func(options *Options) { options.Metrics = metrics }
}

// WithEventHandler receives every event of a run on the search goroutine.
// It must not block.
func WithEventHandler(handler func(Event)) Option {
	return func(options *Options) { options.OnEvent = handler }
}

func buildOptions(options []Option) Options {
	searchOptions := Options{
		Frontier:  FrontierScan,
		StepDelay: DefaultStepDelay,
		Heuristic: Euclidean,
	}
	for _, option := range options {
		option(&searchOptions)
	}
	if searchOptions.Heuristic == nil {
		searchOptions.Heuristic = Euclidean
	}
	if searchOptions.Logger == nil {
		searchOptions.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return searchOptions
}

// Search runs a search to completion on the calling goroutine. An exhausted
// search is not an error; check Result.Found. If ctx ends first the run is
// cancelled and ctx.Err() is returned with the partial result.
func Search(ctx context.Context, grid *Grid, options ...Option) (Result, error) {
	searchOptions := buildOptions(options)
	stepper, err := NewStepper(grid, options...)
	if err != nil {
		return Result{}, err
	}
	defer stepper.Close()

	for {
		if ctx.Err() != nil {
			stepper.Cancel()
			return stepper.Result(), ctx.Err()
		}
		snapshot, err := stepper.Step()
		if err != nil {
			searchOptions.Logger.Error("search step failed", "run_id", stepper.RunID(), "error", err)
			return stepper.Result(), err
		}
		if snapshot.Done {
			return stepper.Result(), nil
		}
	}
}

// Engine runs searches over one grid in the background. Between iterations
// it pauses for the step delay and checks for cancellation; the grid may be
// edited freely meanwhile, except for moving start or target.
type Engine struct {
	grid    *Grid
	options Options
	events  *EventQueue
	logger  *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// NewEngine creates an idle engine. Events of every run are pushed to the
// queue returned by Events, then to any WithEventHandler handler.
func NewEngine(grid *Grid, options ...Option) *Engine {
	engine := &Engine{
		grid:    grid,
		options: buildOptions(options),
		events:  NewEventQueue(),
	}
	engine.logger = engine.options.Logger
	handler := engine.options.OnEvent
	engine.options.OnEvent = func(event Event) {
		engine.events.Push(event)
		if handler != nil {
			handler(event)
		}
	}
	return engine
}

// Events returns the queue carrying the events of every run.
func (e *Engine) Events() *EventQueue { return e.events }

// Grid returns the grid the engine searches.
func (e *Engine) Grid() *Grid { return e.grid }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Result returns the outcome of the last finished run.
func (e *Engine) Result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Start launches a run and returns immediately. Starting from a terminal
// state clears the previous run first.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running {
		e.logger.Debug("start rejected", "reason", "running")
		return ErrAlreadyRunning
	}

	stepper, err := NewStepper(e.grid, e.stepperOptions()...)
	if err != nil {
		e.logger.Debug("start rejected", "error", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.state = Running
	e.cancel = cancel
	e.done = done
	e.result = Result{}

	e.logger.Info("search started",
		"run_id", stepper.RunID(),
		"start", stepper.start,
		"target", stepper.target,
		"frontier", e.options.Frontier,
		"workers", e.options.NumberOfWorkers)

	go e.run(ctx, stepper, done)
	return nil
}

func (e *Engine) stepperOptions() []Option {
	opts := e.options
	return []Option{func(options *Options) { *options = opts }}
}

func (e *Engine) run(ctx context.Context, stepper *Stepper, done chan struct{}) {
	defer close(done)
	defer stepper.Close()

	for {
		if ctx.Err() != nil {
			stepper.Cancel()
			break
		}
		snapshot, err := stepper.Step()
		if err != nil {
			e.logger.Error("search step failed", "run_id", stepper.RunID(), "error", err)
		}
		if snapshot.Done {
			break
		}
		if e.options.StepDelay > 0 {
			timer := time.NewTimer(e.options.StepDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
	}

	result := stepper.Result()
	e.mu.Lock()
	e.state = result.State
	e.result = result
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.mu.Unlock()

	e.logger.Info("search finished",
		"run_id", result.RunID,
		"outcome", result.State,
		"expanded", result.ExpandedNodes,
		"cost", result.TotalCost,
		"elapsed", result.Elapsed)
}

// Cancel requests cancellation of the running search. The run stops at its
// next checkpoint; use Wait to observe it. No-op when nothing runs.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Wait blocks until the current run, if any, has finished.
func (e *Engine) Wait(ctx context.Context) error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset returns a finished engine to Idle and clears all search fields of
// the grid. Walls, start and target are kept.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Running {
		return ErrAlreadyRunning
	}
	if err := e.grid.ClearSearch(); err != nil {
		if errors.Is(err, ErrSearchRunning) {
			return ErrAlreadyRunning
		}
		return err
	}
	e.state = Idle
	e.result = Result{}
	return nil
}

// Close cancels any run, waits for it and closes the event queue.
func (e *Engine) Close() {
	e.Cancel()
	_ = e.Wait(context.Background())
	e.events.Close()
}
