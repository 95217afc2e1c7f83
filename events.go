package gridastar

import (
	"sync"

	"github.com/google/uuid"
)

// Event is emitted by a search run. Renderers consume these instead of
// reading search state out of the grid.
type Event interface {
	Kind() string
}

// SearchStarted opens every run.
type SearchStarted struct {
	RunID  uuid.UUID `json:"run_id"`
	Start  Point     `json:"start"`
	Target Point     `json:"target"`
}

// CellVisited reports the cell moved to the closed set on a step.
type CellVisited struct {
	Point
	Step int `json:"step"`
}

// CellEvaluated reports a neighbour that was priced; it may or may not have
// improved.
type CellEvaluated struct {
	Point
}

// CellRelaxed reports a neighbour whose cost improved and that entered the
// open set.
type CellRelaxed struct {
	Point
	Parent Point   `json:"parent"`
	G      float64 `json:"g"`
	H      float64 `json:"h"`
	F      float64 `json:"f"`
}

// PathFound is terminal. Path runs from start to target inclusive.
type PathFound struct {
	RunID uuid.UUID `json:"run_id"`
	Path  []Point   `json:"path"`
	Cost  float64   `json:"cost"`
	Steps int       `json:"steps"`
}

// SearchRestarted reports that a wall landed on an expanded cell, so the run
// dropped its search state and began again from the start. Steps counts the
// expansions made before the restart.
type SearchRestarted struct {
	RunID uuid.UUID `json:"run_id"`
	Steps int       `json:"steps"`
}

// SearchExhausted is terminal: the open set ran dry.
type SearchExhausted struct {
	RunID uuid.UUID `json:"run_id"`
	Steps int       `json:"steps"`
}

// SearchCancelled is terminal: the run was interrupted.
type SearchCancelled struct {
	RunID uuid.UUID `json:"run_id"`
	Steps int       `json:"steps"`
}

func (SearchStarted) Kind() string   { return "search_started" }
func (CellVisited) Kind() string     { return "cell_visited" }
func (CellEvaluated) Kind() string   { return "cell_evaluated" }
func (CellRelaxed) Kind() string     { return "cell_relaxed" }
func (PathFound) Kind() string       { return "path_found" }
func (SearchRestarted) Kind() string { return "search_restarted" }
func (SearchExhausted) Kind() string { return "search_exhausted" }
func (SearchCancelled) Kind() string { return "search_cancelled" }
func (CellsChanged) Kind() string    { return "cells_changed" }

// EventQueue is a threadsafe, unbounded FIFO of events. Pushing never blocks,
// so the search loop is never held up by a slow consumer.
type EventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
	events []Event
}

// NewEventQueue constructs an empty EventQueue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an event. Pushes after Close are dropped.
func (q *EventQueue) Push(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.events = append(q.events, event)
	q.cond.Signal()
}

// Wait removes and returns the next event, blocking while the queue is empty.
// The second return value is false when the queue has been closed and drained.
func (q *EventQueue) Wait() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.events) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.events) == 0 {
		return nil, false
	}
	event := q.events[0]
	q.events[0] = nil
	q.events = q.events[1:]
	return event, true
}

// Drain removes and returns all queued events without blocking.
func (q *EventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	events := append([]Event(nil), q.events...)
	q.events = q.events[:0]
	return events
}

// Close marks the queue as closed and wakes any waiters.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
