package gridastar

import "context"

// ExpandTask asks a worker to price one neighbour of the cell being expanded.
type ExpandTask struct {
	Index     int
	Neighbor  Point
	StepCost  float64
	CurrentG  float64
	Target    Point
	Heuristic Heuristic
}

// RelaxProposal is the worker's priced candidate. Index is the neighbour's
// position in the expansion order.
type RelaxProposal struct {
	Index    int
	Neighbor Point
	G, H, F  float64
}

func (task ExpandTask) evaluate() RelaxProposal {
	g := task.CurrentG + task.StepCost
	h := task.Heuristic(task.Neighbor, task.Target)
	return RelaxProposal{Index: task.Index, Neighbor: task.Neighbor, G: g, H: h, F: g + h}
}

// workerPool prices neighbours concurrently. Results are returned indexed by
// expansion order, so applying them is independent of completion order.
type workerPool struct {
	ctx       context.Context
	cancel    context.CancelFunc
	tasks     chan ExpandTask
	proposals chan RelaxProposal
}

func startWorkerPool(numberOfWorkers int) *workerPool {
	ctx, cancel := context.WithCancel(context.Background())
	pool := &workerPool{
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(chan ExpandTask, len(Offsets)),
		proposals: make(chan RelaxProposal, len(Offsets)),
	}
	for i := 0; i < numberOfWorkers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-pool.tasks:
					pool.proposals <- task.evaluate()
				}
			}
		}()
	}
	return pool
}

// evaluate fans tasks out and gathers one proposal per task. At most
// len(Offsets) tasks are in flight, which fits both channel buffers.
func (pool *workerPool) evaluate(tasks []ExpandTask) ([]RelaxProposal, error) {
	for _, task := range tasks {
		pool.tasks <- task
	}
	results := make([]RelaxProposal, len(tasks))
	for range tasks {
		select {
		case <-pool.ctx.Done():
			return nil, pool.ctx.Err()
		case proposal := <-pool.proposals:
			results[proposal.Index] = proposal
		}
	}
	return results, nil
}

func (pool *workerPool) stop() { pool.cancel() }
