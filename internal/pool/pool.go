// Package pool implements the fixed-size worker pool that dispatches TCP
// connection handlers (spec.md section 4.5: C5). Grounded on the channel-
// backed SharedQueueThreadPool in
// _examples/original_source/src/thread_pool/shared_pool.rs: a single
// unbuffered task channel shared by a fixed set of goroutines, with a
// recover-and-respawn guard so one panicking task doesn't shrink the pool.
package pool

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"kvs/internal/telemetry"
)

// Task is a unit of work submitted to the pool.
type Task func()

// Pool is a fixed-size FIFO worker pool. Tasks are dispatched in submission
// order to whichever worker goroutine is next free.
type Pool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics
	active  int64
}

// New starts size worker goroutines reading from one shared unbuffered task
// channel; there is no queue holding tasks that no worker has taken yet. A
// nil logger becomes a no-op logger; a nil metrics disables instrumentation.
func New(size int, log *zap.SugaredLogger, metrics *telemetry.Metrics) *Pool {
	if log == nil {
		log = telemetry.NewNop()
	}
	p := &Pool{
		tasks:   make(chan Task),
		log:     log,
		metrics: metrics,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues task for execution by the next free worker. It blocks if
// every worker is busy, providing natural backpressure on the accept loop.
func (p *Pool) Submit(task Task) {
	p.tasks <- task
}

// Shutdown closes the task queue and waits for every worker (including any
// respawned after a panic) to drain and exit.
func (p *Pool) Shutdown() {
	close(p.tasks)
	p.wg.Wait()
}

// worker runs the pool's main loop for one goroutine slot. On a panic from
// task, it logs the recovery, counts a replacement, and restarts its own
// loop in a fresh goroutine rather than letting the slot disappear - the
// same recover-and-respawn shape as the Rust pool's WorkerGuard.
func (p *Pool) worker(slot int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("worker panicked, respawning", "slot", slot, "panic", r)
			// The panicking task never reached the decrement below.
			atomic.AddInt64(&p.active, -1)
			if p.metrics != nil {
				p.metrics.PoolActive.Set(float64(atomic.LoadInt64(&p.active)))
				p.metrics.PoolReplaced.Inc()
			}
			p.wg.Add(1)
			go p.worker(slot)
		}
	}()

	for task := range p.tasks {
		atomic.AddInt64(&p.active, 1)
		if p.metrics != nil {
			p.metrics.PoolActive.Set(float64(atomic.LoadInt64(&p.active)))
		}
		task()
		atomic.AddInt64(&p.active, -1)
		if p.metrics != nil {
			p.metrics.PoolActive.Set(float64(atomic.LoadInt64(&p.active)))
		}
	}
}
