package gridastar

import "container/heap"

type priorityQueueItem struct {
	Point        Point
	FCost        float64
	Sequence     uint64
	IndexInQueue int
}

// priorityQueue orders by f, then by the sequence of first insertion, which
// is the order a left-to-right scan of an append-only open list would see.
type priorityQueue []*priorityQueueItem

func (queue priorityQueue) Len() int { return len(queue) }
func (queue priorityQueue) Less(i, j int) bool {
	if queue[i].FCost != queue[j].FCost {
		return queue[i].FCost < queue[j].FCost
	}
	return queue[i].Sequence < queue[j].Sequence
}
func (queue priorityQueue) Swap(i, j int) {
	queue[i], queue[j] = queue[j], queue[i]
	queue[i].IndexInQueue = i
	queue[j].IndexInQueue = j
}

func (queue *priorityQueue) Push(x any) {
	item := x.(*priorityQueueItem)
	item.IndexInQueue = len(*queue)
	*queue = append(*queue, item)
}

func (queue *priorityQueue) Pop() any {
	oldQueue := *queue
	n := len(oldQueue)
	item := oldQueue[n-1]
	oldQueue[n-1] = nil
	*queue = oldQueue[:n-1]
	item.IndexInQueue = -1
	return item
}

// heapFrontier is an indexed binary heap with decrease-key. Re-pushing a cell
// that is already queued updates its key in place and keeps its sequence.
type heapFrontier struct {
	grid     *Grid
	queue    priorityQueue
	items    map[Point]*priorityQueueItem
	sequence uint64
}

func newHeapFrontier(grid *Grid) *heapFrontier {
	f := &heapFrontier{
		grid:  grid,
		queue: make(priorityQueue, 0),
		items: make(map[Point]*priorityQueueItem),
	}
	heap.Init(&f.queue)
	return f
}

func (f *heapFrontier) push(p Point, fCost float64) {
	if item, ok := f.items[p]; ok {
		item.FCost = fCost
		heap.Fix(&f.queue, item.IndexInQueue)
		return
	}
	f.sequence++
	item := &priorityQueueItem{Point: p, FCost: fCost, Sequence: f.sequence}
	heap.Push(&f.queue, item)
	f.items[p] = item
}

func (f *heapFrontier) pop() (Point, bool) {
	for f.queue.Len() > 0 {
		item := heap.Pop(&f.queue).(*priorityQueueItem)
		delete(f.items, item.Point)
		if f.grid.at(item.Point).Membership == Open {
			return item.Point, true
		}
	}
	return Point{}, false
}

func (f *heapFrontier) len() int { return f.queue.Len() }
