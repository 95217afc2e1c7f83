package gridastar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCoordinate indicates a coordinate outside the grid.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInvalidDimensions indicates a grid with a non-positive width or height.
	ErrInvalidDimensions = errors.New("invalid grid dimensions")

	// ErrInvalidProbability indicates a wall probability outside [0, 1].
	ErrInvalidProbability = errors.New("invalid wall probability")

	// ErrAlreadyAtTarget indicates a search was requested with start == target.
	ErrAlreadyAtTarget = errors.New("already at target")

	// ErrAlreadyRunning indicates a lifecycle call that is not allowed while a search runs.
	ErrAlreadyRunning = errors.New("search already running")

	// ErrSearchRunning indicates a grid mutation rejected while a search runs.
	ErrSearchRunning = errors.New("grid is in use by a running search")

	// ErrNoPathParent indicates a broken parent chain during path reconstruction.
	ErrNoPathParent = errors.New("no parent chain from target to start")
)

// CoordinateError reports the offending coordinate of an out-of-bounds access.
type CoordinateError struct {
	X, Y          int
	Width, Height int
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s: (%d, %d) outside %dx%d grid", ErrInvalidCoordinate, e.X, e.Y, e.Width, e.Height)
}

func (e *CoordinateError) Unwrap() error { return ErrInvalidCoordinate }
