// Package page defines the physical-page primitive that every allocator
// in this kernel deals in, and the linker-provided heap region bounds
// (spec.md §3, "Heap region", and §6 "Memory layout").
package page

import "github.com/AshTS/qor/internal/memunit"

// Size is the byte size of a single page. Re-exported from memunit so
// callers that only care about pages need not import memunit directly.
const Size = memunit.PageSize

// Page is a single 4 KiB physical page of memory. It carries no identity
// beyond its physical address (spec.md §3); the allocators hand out
// page addresses (Addr) into a backing arena rather than *Page values.
type Page [Size]byte

// Addr is a physical address. Kept distinct from uintptr at the type
// level so physical and virtual addresses cannot be silently mixed up,
// matching the teacher's Pa_t (biscuit/src/mem/mem.go).
type Addr uintptr

// Range describes a half-open, page-aligned span [Start, End) of
// physical addresses, e.g. the heap region handed to the allocators.
type Range struct {
	Start Addr
	End   Addr
}

// PageCount reports how many whole pages fit in the range.
func (r Range) PageCount() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return uint64(r.End-r.Start) / Size
}

// Aligned reports whether both bounds of the range are page-aligned.
func (r Range) Aligned() bool {
	return uint64(r.Start)%Size == 0 && uint64(r.End)%Size == 0
}

// Heap describes the kernel-owned heap region the linker script
// provides via HEAP_START/HEAP_END (spec.md §6). Production boot code
// sets this once, before any allocator initializes. The tests in this
// module do not use it: they pass the page.Range returned by
// internal/harness.NewArena to the allocators directly.
type Heap struct {
	Start Addr
	End   Addr
}

// Range returns the heap bounds as a Range.
func (h Heap) Range() Range {
	return Range{Start: h.Start, End: h.End}
}
