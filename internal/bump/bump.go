// Package bump implements the monotonic bump page allocator (spec.md
// §4.1): pages are handed out by walking a pointer forward through a
// fixed region and are never individually freed. Grounded on
// original_source/qor-os/src/mem/page/bump.rs, translated to Go's
// generic sync/atomic (Go 1.19+) in place of Rust's AtomicUsize, and on
// the teacher's atomic-fetch style in biscuit/src/mem/mem.go's
// Physmem_t.Refpg_new.
package bump

import (
	"fmt"
	"sync/atomic"

	"github.com/AshTS/qor/internal/page"
)

// OutOfMemoryError reports a failed allocation: how many pages were
// requested, how many remained in the region, and the region's total
// capacity. It is the only error this allocator ever produces (spec.md
// §4.1, "Never panics").
type OutOfMemoryError struct {
	Requested uint64
	Remaining uint64
	Total     uint64
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("bump: out of memory: requested %d pages, %d remaining of %d total",
		e.Requested, e.Remaining, e.Total)
}

// Allocator is a bump allocator over a fixed page-aligned range. The
// zero value is not usable; construct one with New or Update.
type Allocator struct {
	start   page.Addr
	end     page.Addr
	current atomic.Uint64
}

// New constructs an Allocator bound to rng. rng must be page-aligned
// (spec.md §3, "Heap region").
func New(rng page.Range) *Allocator {
	a := &Allocator{}
	a.Update(rng)
	return a
}

// Update rebinds the allocator to a new range, resetting the walking
// pointer to the start of the range. Used during boot when the final
// heap bounds are only known after the bitmap allocator has claimed
// its own bookkeeping pages from an initial bump region (spec.md §4.1).
func (a *Allocator) Update(rng page.Range) {
	a.start = rng.Start
	a.end = rng.End
	a.current.Store(uint64(rng.Start))
}

// Total reports the total page capacity of the bound region.
func (a *Allocator) Total() uint64 {
	return (uint64(a.end) - uint64(a.start)) / page.Size
}

// Remaining reports how many pages are left, based on the current
// walking pointer. This is a snapshot; under concurrent allocation it
// may be stale by the time the caller observes it.
func (a *Allocator) Remaining() uint64 {
	cur := a.current.Load()
	if cur >= uint64(a.end) {
		return 0
	}
	return (uint64(a.end) - cur) / page.Size
}

// AllocPages atomically claims count contiguous pages and returns the
// physical address of the first one. On failure it restores the
// walking pointer via a compensating fetch-sub so a later, smaller
// request can still succeed (spec.md §4.1's "release-ordered fetch-add
// with rollback on overflow").
func (a *Allocator) AllocPages(count uint64) (page.Addr, error) {
	if count == 0 {
		return page.Addr(a.current.Load()), nil
	}
	size := count * page.Size
	claimed := a.current.Add(size)
	start := claimed - size

	if claimed > uint64(a.end) {
		a.current.Add(^(size - 1)) // compensating subtract
		return 0, &OutOfMemoryError{
			Requested: count,
			Remaining: a.Remaining(),
			Total:     a.Total(),
		}
	}
	return page.Addr(start), nil
}

// Free is a no-op: the bump allocator never reclaims pages (spec.md
// §4.1). Its signature differs from bitmap.Allocator.FreePages, which
// returns an error, so the two types share no common free interface.
func (a *Allocator) Free(page.Addr, uint64) {}
