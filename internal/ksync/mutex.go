// Package ksync provides the kernel's own synchronization primitives
// (spec.md §5): a spinlock Mutex, a reader/writer SyncCell that biases
// towards pending writers, zero-sized witness tokens for privileged
// global-state mutation, and a latching signal semaphore pair.
//
// These are translated directly from original_source/libutils/src/sync
// (mutex.rs, synccell.rs, no_interrupt.rs, semaphore/signal.rs), kept in
// the teacher's style of embedding a raw atomic flag rather than
// reaching for sync.Mutex, since the kernel runs below anything that
// could schedule a goroutine blocked on the standard library's lock.
package ksync

import "sync/atomic"

// Mutex is a spinlock guarding a single value of type T. Unlike
// sync.Mutex it exposes spin, non-blocking, and poll-style acquisition,
// matching spec.md §5's "spin_lock / attempt_lock / async_lock".
type Mutex[T any] struct {
	locked atomic.Bool
	inner  T
}

// NewMutex constructs a Mutex wrapping the given initial value.
func NewMutex[T any](inner T) *Mutex[T] {
	return &Mutex[T]{inner: inner}
}

// MutexGuard grants access to the value guarded by a Mutex. The lock is
// released when Unlock is called; there is no finalizer-based release,
// matching the teacher's explicit-drop discipline.
type MutexGuard[T any] struct {
	m *Mutex[T]
}

// Get returns a pointer to the guarded value for reading or mutation.
func (g *MutexGuard[T]) Get() *T {
	return &g.m.inner
}

// Unlock releases the lock. Calling Unlock on an already-released guard
// is a programming error and corrupts locking state, exactly as
// double-release would with the teacher's MutexGuard::drop.
func (g *MutexGuard[T]) Unlock() {
	g.m.locked.Store(false)
}

func (m *Mutex[T]) acquire() bool {
	return !m.locked.Swap(true)
}

// SpinLock busy-waits until the lock is acquired.
func (m *Mutex[T]) SpinLock() *MutexGuard[T] {
	for !m.acquire() {
	}
	return &MutexGuard[T]{m: m}
}

// AttemptLock tries once to acquire the lock, returning nil if it is
// already held. Used by the scheduler tick, which must skip a process
// whose state mutex is contended rather than block (spec.md §4.7).
func (m *Mutex[T]) AttemptLock() *MutexGuard[T] {
	if m.acquire() {
		return &MutexGuard[T]{m: m}
	}
	return nil
}

// AsyncLock returns a poll function suitable for a single-threaded FIFO
// executor (spec.md §5, "Async control flow"): each call attempts the
// lock once and reports whether it succeeded.
func (m *Mutex[T]) AsyncLock() func() (*MutexGuard[T], bool) {
	return func() (*MutexGuard[T], bool) {
		if g := m.AttemptLock(); g != nil {
			return g, true
		}
		return nil, false
	}
}
