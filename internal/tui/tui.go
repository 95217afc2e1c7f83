// Package tui is an interactive terminal front end for the search engine.
//
// Each grid cell is drawn two columns wide. Left click toggles a wall, left
// drag from the start cell moves the start, right click moves the target.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pdrpinto/gridastar"
)

const (
	frameInterval = 16 * time.Millisecond // ~60 FPS
	cellWidth     = 2
)

const helpText = "s start  r reset/cancel  g random walls  c cancel  q quit  " +
	"| left: wall, drag start  right: target"

var (
	styleEmpty   = tcell.StyleDefault.Background(tcell.NewRGBColor(88, 89, 90))
	styleWall    = tcell.StyleDefault.Background(tcell.NewRGBColor(37, 37, 37))
	styleStart   = tcell.StyleDefault.Background(tcell.NewRGBColor(0, 255, 0))
	styleTarget  = tcell.StyleDefault.Background(tcell.NewRGBColor(0, 0, 255))
	styleOpen    = tcell.StyleDefault.Background(tcell.NewRGBColor(255, 242, 82))
	styleClosed  = tcell.StyleDefault.Background(tcell.ColorOrange)
	stylePath    = tcell.StyleDefault.Background(tcell.ColorCrimson)
	styleCurrent = tcell.StyleDefault.Background(tcell.ColorOrange).Foreground(tcell.ColorBlack)
	styleText    = tcell.StyleDefault
)

// Options configures an App.
type Options struct {
	// WallProbability is used by the randomize key.
	WallProbability float64
	Rand            *rand.Rand
	Logger          *slog.Logger
}

// App binds a screen to an engine.
type App struct {
	screen tcell.Screen
	engine *gridastar.Engine
	grid   *gridastar.Grid
	opts   Options
	logger *slog.Logger

	status     string
	current    gridastar.Point
	hasCurrent bool
	path       map[gridastar.Point]bool

	buttons  tcell.ButtonMask
	dragging bool
}

// New creates an App. The screen must already be initialised; the caller
// owns it and calls Fini after Run returns.
func New(screen tcell.Screen, engine *gridastar.Engine, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.WallProbability == 0 {
		opts.WallProbability = gridastar.DefaultWallProbability
	}
	return &App{
		screen: screen,
		engine: engine,
		grid:   engine.Grid(),
		opts:   opts,
		logger: opts.Logger,
		status: "idle",
		path:   map[gridastar.Point]bool{},
	}
}

// Run processes input and redraws until the user quits or ctx ends. A
// running search is cancelled on the way out.
func (a *App) Run(ctx context.Context) error {
	a.screen.EnableMouse(tcell.MouseDragEvents)
	defer a.engine.Cancel()

	quit := make(chan struct{})
	defer close(quit)

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-quit:
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	a.draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-eventChan:
			if !a.handleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			a.consumeEngineEvents()
			a.draw()
		}
	}
}

// handleEvent applies one terminal event. It returns false on quit.
func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
		return false
	}
	if ev.Key() != tcell.KeyRune {
		return true
	}

	switch ev.Rune() {
	case 'q':
		return false
	case 's':
		if a.engine.State() == gridastar.Running {
			return true
		}
		a.clearOverlay()
		if err := a.engine.Start(); err != nil {
			a.report("start", err)
		}
	case 'r':
		if a.engine.State() == gridastar.Running {
			a.engine.Cancel()
			return true
		}
		if err := a.engine.Reset(); err != nil {
			a.report("reset", err)
			return true
		}
		a.clearOverlay()
		a.status = "idle"
	case 'c':
		a.engine.Cancel()
	case 'g':
		if a.engine.State() == gridastar.Running {
			return true
		}
		if err := a.engine.Reset(); err != nil {
			a.report("randomize", err)
			return true
		}
		a.clearOverlay()
		if err := a.grid.Randomize(a.opts.WallProbability, a.opts.Rand); err != nil {
			a.report("randomize", err)
		}
	}
	return true
}

func (a *App) handleMouse(ev *tcell.EventMouse) {
	mx, my := ev.Position()
	p, onGrid := a.cellAt(mx, my)

	buttons := ev.Buttons()
	pressed := buttons &^ a.buttons
	a.buttons = buttons

	switch {
	case pressed&tcell.Button1 != 0:
		if !onGrid {
			return
		}
		if p == a.grid.Start() {
			a.dragging = true
			return
		}
		if p == a.grid.Target() {
			return
		}
		cell, err := a.grid.Cell(p.X, p.Y)
		if err != nil {
			return
		}
		if err := a.grid.SetWall(p.X, p.Y, !cell.Wall); err != nil {
			a.report("wall", err)
		}
	case buttons&tcell.Button1 != 0 && a.dragging:
		if onGrid && p != a.grid.Start() {
			if err := a.grid.MoveStart(p.X, p.Y); err != nil {
				a.report("move start", err)
			}
		}
	case buttons&tcell.Button1 == 0:
		a.dragging = false
	}

	if pressed&tcell.Button2 != 0 && onGrid {
		if err := a.grid.MoveTarget(p.X, p.Y); err != nil {
			a.report("move target", err)
		}
	}
}

func (a *App) cellAt(mx, my int) (gridastar.Point, bool) {
	p := gridastar.Point{X: mx / cellWidth, Y: my}
	return p, mx >= 0 && a.grid.InBounds(p.X, p.Y)
}

func (a *App) report(action string, err error) {
	switch {
	case errors.Is(err, gridastar.ErrSearchRunning), errors.Is(err, gridastar.ErrAlreadyRunning):
		a.status = "search running"
	case errors.Is(err, gridastar.ErrAlreadyAtTarget):
		a.status = "start is already the target"
	default:
		a.status = fmt.Sprintf("%s: %v", action, err)
	}
	a.logger.Debug("action rejected", "action", action, "error", err)
}

func (a *App) clearOverlay() {
	a.hasCurrent = false
	clear(a.path)
}

// consumeEngineEvents folds queued search events into the status line and
// path overlay. Cell colours come from grid snapshots.
func (a *App) consumeEngineEvents() {
	for _, event := range a.engine.Events().Drain() {
		switch event := event.(type) {
		case gridastar.SearchStarted:
			a.clearOverlay()
			a.status = "running"
		case gridastar.CellVisited:
			a.current, a.hasCurrent = event.Point, true
			a.status = fmt.Sprintf("running: step %d", event.Step)
		case gridastar.PathFound:
			a.hasCurrent = false
			for _, p := range event.Path {
				a.path[p] = true
			}
			a.status = fmt.Sprintf("found: cost %.2f, %d cells, %d steps", event.Cost, len(event.Path), event.Steps)
		case gridastar.SearchRestarted:
			a.clearOverlay()
			a.status = fmt.Sprintf("restarted after %d steps: wall on an explored cell", event.Steps)
		case gridastar.SearchExhausted:
			a.hasCurrent = false
			a.status = fmt.Sprintf("no path after %d steps", event.Steps)
		case gridastar.SearchCancelled:
			a.hasCurrent = false
			a.status = "cancelled"
		}
	}
}

func (a *App) draw() {
	a.screen.Clear()

	snap := a.grid.Snapshot()
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			p := gridastar.Point{X: x, Y: y}
			style := a.styleFor(p, snap)
			for dx := 0; dx < cellWidth; dx++ {
				a.screen.SetContent(x*cellWidth+dx, y, ' ', nil, style)
			}
		}
	}

	a.drawText(0, snap.Height, a.status)
	a.drawText(0, snap.Height+1, helpText)
	a.screen.Show()
}

func (a *App) styleFor(p gridastar.Point, snap gridastar.GridSnapshot) tcell.Style {
	cell := snap.At(p)
	switch {
	case p == snap.Start:
		return styleStart
	case p == snap.Target:
		return styleTarget
	case a.path[p]:
		return stylePath
	case cell.Wall:
		return styleWall
	case a.hasCurrent && p == a.current:
		return styleCurrent
	case cell.Membership == gridastar.Closed:
		return styleClosed
	case cell.Membership == gridastar.Open:
		return styleOpen
	default:
		return styleEmpty
	}
}

func (a *App) drawText(x, y int, text string) {
	for i, r := range text {
		a.screen.SetContent(x+i, y, r, nil, styleText)
	}
}
