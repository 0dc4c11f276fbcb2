package sim

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelis/commodex/internal/engine"
)

func makeTasks(n int) []priceTask {
	tasks := make([]priceTask, n)
	for i := range tasks {
		tasks[i] = priceTask{
			goodID:     fmt.Sprintf("good%d", i),
			basePrice:  int64(100 + i),
			elasticity: 0.1,
			supply:     int64(1000 + i*10),
			demand:     int64(500 + i*50),
		}
	}
	return tasks
}

func serialEquilibria(tasks []priceTask) map[string]int64 {
	out := make(map[string]int64, len(tasks))
	for _, task := range tasks {
		out[task.goodID] = engine.EquilibriumPrice(task.basePrice, task.supply, task.demand, task.elasticity)
	}
	return out
}

func TestWorkerPool_MatchesSerialComputation(t *testing.T) {
	pool := NewWorkerPool(4, time.Second, zerolog.Nop())
	pool.Start()
	defer pool.Stop()

	tasks := makeTasks(50)
	got := pool.computeEquilibria(tasks)
	require.Len(t, got, 50)
	assert.Equal(t, serialEquilibria(tasks), got)
}

func TestWorkerPool_TimeoutFallsBackToSerial(t *testing.T) {
	// Never started: no workers drain the queue, so the batch must
	// complete through the serial fallback.
	pool := NewWorkerPool(2, 10*time.Millisecond, zerolog.Nop())

	tasks := makeTasks(10)
	got := pool.computeEquilibria(tasks)
	assert.Equal(t, serialEquilibria(tasks), got)
}

func TestWorkerPool_EmptyBatch(t *testing.T) {
	pool := NewWorkerPool(2, time.Second, zerolog.Nop())
	pool.Start()
	defer pool.Stop()

	assert.Empty(t, pool.computeEquilibria(nil))
}

func TestWorkerPool_StopTerminatesWorkers(t *testing.T) {
	pool := NewWorkerPool(3, time.Second, zerolog.Nop())
	pool.Start()
	require.NoError(t, pool.Stop())
}
