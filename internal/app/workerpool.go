package app

import (
	"context"
	"errors"
	"sync"
)

// Job is a unit of work submitted to the WorkerPool.
type Job func(ctx context.Context) error

var (
	// ErrPoolClosed is returned if a submit is attempted after Close.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrPoolFull is returned when the queue has no free slot.
	ErrPoolFull = errors.New("worker pool queue full")
)

// WorkerPool runs tracking writes on a fixed number of goroutines so callers
// never wait on the store.
type WorkerPool struct {
	jobs    chan Job
	wg      sync.WaitGroup
	workers int
	closeMu sync.Mutex
	closed  bool

	// OnError receives every error returned by a job.
	OnError func(error)
}

// NewWorkerPool creates a pool with the given worker count and queue capacity.
func NewWorkerPool(workers, queue int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers * 2
	}
	return &WorkerPool{
		jobs:    make(chan Job, queue),
		workers: workers,
	}
}

// Start launches the workers. Jobs run with ctx; workers stop when ctx is done
// or after Close drains the queue.
func (p *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					if err := job(ctx); err != nil && p.OnError != nil {
						p.OnError(err)
					}
				}
			}
		}()
	}
}

// TrySubmit enqueues a job without blocking.
func (p *WorkerPool) TrySubmit(job Job) error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *WorkerPool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
}
