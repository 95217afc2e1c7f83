// Package gridastar provides an A* shortest-path engine over a mutable 2D grid.
//
// The grid is 8-connected: orthogonal steps cost 1 and diagonal steps cost √2,
// guided by the Euclidean distance to the target. It exposes three entry points:
//
//   - Search: run the algorithm to completion and get a Result.
//   - Stepper: iterate the search one expansion at a time to drive UIs or tests.
//   - Engine: run a search in the background with cooperative cancellation while
//     the grid keeps being edited, and observe it through an event stream.
//
// Selection among equal-f frontier cells favours the cell that entered the open
// set first, so two runs over the same grid emit identical event sequences.
package gridastar
