package ksync

import "sync/atomic"

// SyncCell is a reader/writer cell biased towards pending writers: a
// reader that arrives while a writer is waiting yields instead of
// starving it. Readers do not hold the cell concurrently with each
// other: Read takes the same lock flag as Write, so the cell has at
// most one holder at a time, reader or writer. Translated from
// original_source/libutils/src/sync/synccell.rs; the teacher's sync
// primitives (biscuit/src/vm/as.go's Vm_t.lock) use a plain mutex, but
// the process table needs the read-mostly/occasional-writer shape this
// type gives (spec.md §5, "SyncCell[T]").
type SyncCell[T any] struct {
	locked     atomic.Bool
	writer     atomic.Bool
	strongWait atomic.Int64
	inner      T
}

// NewSyncCell constructs a SyncCell wrapping the given initial value.
func NewSyncCell[T any](inner T) *SyncCell[T] {
	return &SyncCell[T]{inner: inner}
}

// ReadGuard grants read-only access to a SyncCell's value.
type ReadGuard[T any] struct {
	c *SyncCell[T]
}

// Get returns a pointer to the value for reading. Callers must not
// mutate through a ReadGuard; the type does not enforce this at
// compile time, matching the teacher's convention of trusting callers
// within the kernel crate.
func (g *ReadGuard[T]) Get() *T {
	return &g.c.inner
}

// Release ends the read critical section.
func (g *ReadGuard[T]) Release() {
	g.c.locked.Store(false)
}

// WriteGuard grants exclusive access to a SyncCell's value.
type WriteGuard[T any] struct {
	c *SyncCell[T]
}

// Get returns a pointer to the value for mutation.
func (g *WriteGuard[T]) Get() *T {
	return &g.c.inner
}

// Release ends the write critical section.
func (g *WriteGuard[T]) Release() {
	g.c.writer.Store(false)
	g.c.locked.Store(false)
}

// Read acquires the cell for reading, spinning while a writer is
// waiting for the lock (the writer-preference bias) or while any other
// reader or writer holds it.
func (c *SyncCell[T]) Read() *ReadGuard[T] {
	for {
		if c.strongWait.Load() > 0 {
			continue
		}
		if !c.locked.Swap(true) {
			if c.writer.Load() {
				c.locked.Store(false)
				continue
			}
			return &ReadGuard[T]{c: c}
		}
	}
}

// Write acquires the cell exclusively, registering as a pending writer
// first so concurrent Read calls back off (spec.md §5's starvation
// note).
func (c *SyncCell[T]) Write() *WriteGuard[T] {
	c.strongWait.Add(1)
	defer c.strongWait.Add(-1)
	for {
		if c.locked.Swap(true) {
			continue
		}
		c.writer.Store(true)
		return &WriteGuard[T]{c: c}
	}
}
