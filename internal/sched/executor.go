package sched

import "github.com/AshTS/qor/internal/ksync"

// Executor is a minimal single-threaded FIFO task queue, standing in
// for the Rust original's async executor with a no-op waker
// (original_source/qor-os/src/process/scheduler.rs's
// add_global_executor_task / clean_up_pid). Since this kernel core has
// no async/await, a queued task here is just a plain closure run to
// completion the next time RunPending is called, rather than a
// suspendable future; the Dead-process cleanup task this package
// enqueues never actually needs to yield mid-task, so the
// simplification is exact for this use (spec.md §4.7).
type Executor struct {
	mu *ksync.Mutex[[]func()]
}

// NewExecutor constructs an empty Executor.
func NewExecutor() *Executor {
	return &Executor{mu: ksync.NewMutex([]func(){})}
}

// Enqueue appends task to the FIFO queue.
func (e *Executor) Enqueue(task func()) {
	g := e.mu.SpinLock()
	defer g.Unlock()
	*g.Get() = append(*g.Get(), task)
}

// RunPending drains and runs every task currently queued, in FIFO
// order. Tasks enqueued by a running task are not run until the next
// call, avoiding unbounded recursion on a single tick.
func (e *Executor) RunPending() {
	g := e.mu.SpinLock()
	pending := *g.Get()
	*g.Get() = nil
	g.Unlock()

	for _, task := range pending {
		task()
	}
}
