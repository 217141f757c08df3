// Package executor is the background cooperative executor the memory
// subsystem runs everything that isn't on the foreground turn loop on
// (spec §5): the embedding worker, Prefetch refreshes, and Budget sweeps.
// Consolidator passes do not run here; they run on the goroutine that
// calls memoryservice.Service.RunConsolidation. Tasks submitted to the
// executor run one at a time, in
// submission order, on a single dedicated goroutine — "cooperative" in
// the sense that a task runs to completion before the next starts,
// mirroring the single-threaded background executor the spec describes.
package executor

import (
	"context"
	"sync"
)

// Task is a unit of background work. It receives the executor's lifetime
// context, which is canceled on Executor.Stop.
type Task func(ctx context.Context)

// Executor serializes submitted tasks onto one background goroutine.
type Executor struct {
	tasks  chan Task
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// New starts the executor's worker goroutine. queueDepth bounds how many
// pending tasks Submit will buffer before blocking the caller.
func New(queueDepth int) *Executor {
	if queueDepth < 1 {
		queueDepth = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		tasks:  make(chan Task, queueDepth),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Executor) run() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case task, ok := <-e.tasks:
			if !ok {
				return
			}
			task(e.ctx)
		}
	}
}

// Submit enqueues a task. It does not block on the task's completion —
// only on queue space, matching the spec's "schedules refresh() on the
// background executor without blocking the caller" contract for Prefetch.
// Submit is a no-op after Stop.
func (e *Executor) Submit(task Task) {
	select {
	case <-e.ctx.Done():
		return
	default:
	}
	select {
	case e.tasks <- task:
	case <-e.ctx.Done():
	}
}

// Stop cancels the executor's context and waits for the in-flight task
// (if any) to return before the worker goroutine exits.
func (e *Executor) Stop() {
	e.closeOnce.Do(func() {
		e.cancel()
		<-e.done
	})
}
