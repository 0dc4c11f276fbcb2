package sim

import (
	"time"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"github.com/avelis/commodex/internal/engine"
)

// priceTask is one pure equilibrium computation. Inputs are copied
// values, never live state.
type priceTask struct {
	goodID     string
	basePrice  int64
	elasticity float64
	supply     int64
	demand     int64
	out        chan<- priceResult
}

type priceResult struct {
	goodID      string
	equilibrium int64
}

func (t priceTask) compute() priceResult {
	return priceResult{
		goodID:      t.goodID,
		equilibrium: engine.EquilibriumPrice(t.basePrice, t.supply, t.demand, t.elasticity),
	}
}

// WorkerPool offloads per-good price math from the tick thread. Workers
// only run pure functions on copied inputs; a pool stall can therefore
// never corrupt state, and the caller falls back to computing serially
// when results don't arrive in time.
type WorkerPool struct {
	size    int
	timeout time.Duration
	tasks   chan priceTask
	t       *tomb.Tomb
	log     zerolog.Logger
}

// NewWorkerPool creates a pool of size workers. timeout bounds how long
// a single batch waits for results before falling back.
func NewWorkerPool(size int, timeout time.Duration, log zerolog.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		timeout: timeout,
		tasks:   make(chan priceTask, 256),
		t:       &tomb.Tomb{},
		log:     log,
	}
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.size; i++ {
		p.t.Go(p.worker)
	}
}

func (p *WorkerPool) worker() error {
	for {
		select {
		case <-p.t.Dying():
			return nil
		case task, ok := <-p.tasks:
			if !ok {
				return nil
			}
			task.out <- task.compute()
		}
	}
}

// Stop shuts the pool down and waits for the workers to exit.
func (p *WorkerPool) Stop() error {
	p.t.Kill(nil)
	return p.t.Wait()
}

// computeEquilibria runs a batch of tasks across the pool and returns
// equilibrium prices keyed by good ID. Tasks the pool fails to deliver
// within the timeout are computed serially on the calling goroutine, so
// the batch always completes.
func (p *WorkerPool) computeEquilibria(tasks []priceTask) map[string]int64 {
	results := make(map[string]int64, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	// Buffered to batch size so a worker delivering after the deadline
	// never blocks on a channel nobody reads.
	out := make(chan priceResult, len(tasks))
	submitted := 0
	for i := range tasks {
		tasks[i].out = out
		select {
		case p.tasks <- tasks[i]:
			submitted++
		default:
			// Queue full; compute inline instead of waiting.
			r := tasks[i].compute()
			results[r.goodID] = r.equilibrium
		}
	}

	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()
	for i := 0; i < submitted; i++ {
		select {
		case r := <-out:
			results[r.goodID] = r.equilibrium
		case <-deadline.C:
			p.log.Warn().
				Int("pending", submitted-i).
				Dur("timeout", p.timeout).
				Msg("price worker batch timed out, computing remainder serially")
			for _, task := range tasks {
				if _, ok := results[task.goodID]; !ok {
					r := task.compute()
					results[r.goodID] = r.equilibrium
				}
			}
			return results
		}
	}
	return results
}
