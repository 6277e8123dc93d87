package ksync

import "sync/atomic"

// NoInterruptMarker is a zero-sized witness value proving the caller
// has masked interrupts on the current hart, matching
// original_source/libutils/src/sync/no_interrupt.rs. No function in
// this module takes one as a parameter; Go cannot enforce the
// invariant itself, so construction is the only guard.
type NoInterruptMarker struct{}

// NewNoInterruptMarker must only be called with interrupts already
// disabled on the current hart (spec.md §5).
func NewNoInterruptMarker() NoInterruptMarker {
	return NoInterruptMarker{}
}

// InitThreadMarker is a zero-sized witness proving the caller is
// running on the primary hart during single-threaded boot, before any
// secondary hart has been released from the barrier (spec.md §4.6).
// No function in this module takes one as a parameter; bump.Update
// and vm.NewManager, for instance, accept no marker.
type InitThreadMarker struct{}

// NewInitThreadMarker must only be called from the primary hart before
// ReleaseSecondaries has been invoked.
func NewInitThreadMarker() InitThreadMarker {
	return InitThreadMarker{}
}

// Signal is a latching wakeup flag: Send reports whether a wakeup was
// already pending (a "collision"), and Wait atomically consumes a
// pending wakeup. Grounded on
// original_source/libutils/src/sync/semaphore/signal.rs; used both for
// child-exit notification and the generic per-process wakeup (spec.md
// §4.7).
type Signal struct {
	pending atomic.Bool
}

// Send marks the signal pending and reports whether it was already
// pending (the sender can use this to detect it raced a previous,
// not-yet-consumed wakeup).
func (s *Signal) Send() (alreadyPending bool) {
	return s.pending.Swap(true)
}

// Wait atomically consumes a pending signal, reporting whether one was
// present.
func (s *Signal) Wait() (wasPending bool) {
	return s.pending.Swap(false)
}
