// Package hart implements multi-hart bring-up: the primary-hart-only
// release of secondary harts, each secondary's stack-slot claim, and
// the N-way rendezvous barrier used to keep all harts in lockstep
// during boot (spec.md §4.6). Grounded on
// original_source/qor-os/src/harts.rs, translated from free-standing
// statics plus riscv::register::mhartid reads to a struct the caller
// constructs once (at whatever address the global trap/boot code
// chooses) and a HartID parameter passed explicitly, since Go has no
// equivalent of reading a CSR to learn the current hart.
package hart

import "sync/atomic"

// StackSlotSize is the per-hart carve-out subtracted from the stack
// counter each time a secondary hart claims a slot (spec.md §4.6).
const StackSlotSize = 0x10000

// Coordinator owns the cross-hart bring-up and barrier state for one
// boot. Construct it with NewCoordinator, which sets the core count and
// the initial barrier flag; the zero value has a core count of zero.
// It must be constructed before any hart other than the primary
// observes it.
type Coordinator struct {
	waitingFlag  atomic.Uint64
	stackCounter atomic.Uint64

	syncFlag  atomic.Bool
	syncCount atomic.Uint64

	coreCount uint64
}

// NewCoordinator constructs a Coordinator for a boot with coreCount
// harts in total (including the primary). syncFlag starts true so
// secondary harts spin until the primary calls Rendezvous for the
// first time, matching the original's SYNC_FLAG initial value.
func NewCoordinator(coreCount uint64) *Coordinator {
	c := &Coordinator{coreCount: coreCount}
	c.syncFlag.Store(true)
	return c
}

// ReleaseSecondaries sets the shared kernel-stack top and flips the
// waiting flag, letting spinning secondary harts proceed to claim
// their own stack slots. Must only be called once, by the primary
// hart, holding an InitThreadMarker.
func (c *Coordinator) ReleaseSecondaries(kernelStackEnd uint64) {
	c.stackCounter.Store(kernelStackEnd - StackSlotSize)
	c.waitingFlag.Store(1)
}

// AwaitRelease spins until ReleaseSecondaries has been called. Called
// by every secondary hart immediately after entering machine mode.
func (c *Coordinator) AwaitRelease() {
	for c.waitingFlag.Load() == 0 {
	}
}

// ClaimStackSlot atomically decrements the shared stack counter by one
// slot and returns the counter's value before the decrement: the top
// of the slot this hart now owns.
func (c *Coordinator) ClaimStackSlot() uint64 {
	return c.stackCounter.Add(^uint64(StackSlotSize-1)) + StackSlotSize
}

// IsPrimary reports whether hartID names the primary hart (spec.md
// §4.6, "primary-hart-exclusive init"). Hart 0 is primary by
// convention on QEMU virt.
func IsPrimary(hartID uint64) bool {
	return hartID == 0
}

// Rendezvous blocks every hart until all coreCount harts have called
// it, then releases them together. The primary hart drives the
// barrier's two required edges (false->true, true->false); secondary
// harts only observe them, exactly as
// original_source/qor-os/src/harts.rs's machine_mode_sync splits the
// two roles.
func (c *Coordinator) Rendezvous(hartID uint64) {
	if IsPrimary(hartID) {
		c.syncCount.Store(0)
		c.syncFlag.Store(false)

		for c.syncCount.Load()+1 < c.coreCount {
		}

		c.syncFlag.Store(true)
		return
	}

	for c.syncFlag.Load() {
	}
	c.syncCount.Add(1)
	for !c.syncFlag.Load() {
	}
}
