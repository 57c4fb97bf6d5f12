package infrastructure

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned when work is submitted after shutdown.
var ErrPoolClosed = errors.New("worker pool is shut down")

// WorkerPool runs blocking extractor work on a fixed number of goroutines so
// it cannot stall the callers. It is the only serialization point shared
// across concurrent requests.
type WorkerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
	mu    sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	p := &WorkerPool{tasks: make(chan func())}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Do runs fn on a pool worker and waits for it to finish. It returns early
// with the context error if the context expires while the task is queued or
// running; a running task is expected to honor the same context itself.
func (p *WorkerPool) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn()
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting new work and waits for in-flight tasks to drain.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
