// Package workerpool runs CPU-bound jobs on a fixed set of workers.
// Jobs are grouped into rooms; a room waits for its own jobs only, so
// several callers can share one pool without seeing each other's results.
package workerpool

import (
	"errors"
	"runtime"
	"sync"
)

// Config sizes the pool. Zero values pick defaults.
type Config struct {
	// WorkerCount is the number of worker goroutines. Defaults to three
	// per CPU.
	WorkerCount int
	// GlobalBuffer is the capacity of the shared task queue.
	GlobalBuffer int
}

// Pool owns the workers and the shared task queue.
type Pool struct {
	config Config
	tasks  chan task
	done   sync.WaitGroup
}

type task struct {
	run  func() error
	room *Room
}

// Room collects the outcomes of one batch of jobs.
type Room struct {
	pool *Pool
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// New starts the workers and returns the pool. Call Close when done.
func New(config Config) *Pool {
	if config.WorkerCount < 1 {
		config.WorkerCount = runtime.NumCPU() * 3
	}
	if config.GlobalBuffer < 1 {
		config.GlobalBuffer = 1024
	}

	p := &Pool{
		config: config,
		tasks:  make(chan task, config.GlobalBuffer),
	}
	for i := 0; i < config.WorkerCount; i++ {
		p.done.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.done.Done()
	for t := range p.tasks {
		if err := t.run(); err != nil {
			t.room.mu.Lock()
			t.room.errs = append(t.room.errs, err)
			t.room.mu.Unlock()
		}
		t.room.wg.Done()
	}
}

// NewRoom returns an empty room on this pool.
func (p *Pool) NewRoom() *Room {
	return &Room{pool: p}
}

// Close stops the workers after the queued tasks drain. Submitting after
// Close panics.
func (p *Pool) Close() {
	close(p.tasks)
	p.done.Wait()
}

// Submit queues one job. Blocks when the global buffer is full.
func (r *Room) Submit(job func() error) {
	r.wg.Add(1)
	r.pool.tasks <- task{run: job, room: r}
}

// Wait blocks until every job submitted to this room has finished and
// returns their joined errors, if any. The room may be reused afterwards.
func (r *Room) Wait() error {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	err := errors.Join(r.errs...)
	r.errs = nil
	return err
}
