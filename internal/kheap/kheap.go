// Package kheap implements the kernel's byte-grain heap allocator
// (spec.md §4.3): callers request an arbitrary byte size at an
// arbitrary alignment, not whole pages, the same contract
// Box/Vec/the global allocator need. Grounded on
// original_source/qor-os/src/mem/allocator.rs's AllocationChunk/
// Allocator/check_layout/split/attempt_combine, kept faithful to its
// fixed-capacity metadata table, carved from the front of the
// delegated range (one page holds every chunkSlot this heap will
// ever need) so the table's writes never perturb the byte pool it
// describes (spec.md §4.3, "Chunks live in a separate table").
package kheap

import (
	"fmt"
	"unsafe"

	"github.com/AshTS/qor/internal/page"
)

// chunkSlot is one entry in the metadata table: the byte range
// [ptr, ptr+size) it describes, whether that range is free, and the
// index of its successor in address order (noChunk if none).
type chunkSlot struct {
	inUse bool
	ptr   uintptr
	size  uint64
	free  bool
	next  int32
}

const noChunk = int32(-1)

func slotsAt(addr page.Addr, n uint64) []chunkSlot {
	return unsafe.Slice((*chunkSlot)(unsafe.Pointer(uintptr(addr))), n)
}

// OutOfHeapError reports that no free chunk could fit size bytes at
// the requested alignment.
type OutOfHeapError struct {
	Size  uint64
	Align uint64
}

func (e *OutOfHeapError) Error() string {
	return fmt.Sprintf("kheap: no chunk fits %d bytes at %d-byte alignment", e.Size, e.Align)
}

// OutOfChunksError reports that the metadata table has no free slot
// left to record a split, independent of whether the byte pool itself
// still has room.
type OutOfChunksError struct{}

func (e *OutOfChunksError) Error() string {
	return "kheap: chunk metadata table exhausted"
}

// NotAllocatedError reports a Free call whose pointer matches no
// currently-allocated chunk.
type NotAllocatedError struct {
	Ptr uintptr
}

func (e *NotAllocatedError) Error() string {
	return fmt.Sprintf("kheap: %#x is not an allocated pointer", e.Ptr)
}

// Heap is a byte-grain, alignment-aware free-list allocator over a
// fixed region. The zero value is not usable; construct one with
// Initialize.
type Heap struct {
	slots []chunkSlot
	root  int32
}

// Initialize carves one page off the front of rng for the chunk
// metadata table and installs a single free chunk spanning the rest
// of rng as the byte pool.
func Initialize(rng page.Range) *Heap {
	slotSize := uint64(unsafe.Sizeof(chunkSlot{}))
	maxChunks := uint64(page.Size) / slotSize
	poolStart := rng.Start + page.Addr(page.Size)

	slots := slotsAt(rng.Start, maxChunks)
	for i := range slots {
		slots[i] = chunkSlot{next: noChunk}
	}
	slots[0] = chunkSlot{
		inUse: true,
		ptr:   uintptr(poolStart),
		size:  uint64(rng.End - poolStart),
		free:  true,
		next:  noChunk,
	}

	return &Heap{slots: slots, root: 0}
}

// checkLayout reports the total byte span (including any alignment
// padding before the user pointer) a request needs out of c, and
// whether c is large enough to hold it.
func checkLayout(c *chunkSlot, size, align uint64) (uint64, bool) {
	overlap := uint64(c.ptr) & (align - 1)
	extra := (align - overlap) % align
	total := size + extra
	return total, total <= c.size
}

// Alloc walks the chunk list for the first free chunk whose ptr can be
// aligned to align and which has room for size bytes once aligned,
// splits off the unused tail into a fresh metadata slot if any remains,
// and returns the aligned pointer.
func (h *Heap) Alloc(size, align uint64) (uintptr, error) {
	if align == 0 {
		align = 1
	}

	idx := h.root
	for idx != noChunk {
		c := &h.slots[idx]
		if c.free {
			if total, ok := checkLayout(c, size, align); ok {
				overlap := uint64(c.ptr) & (align - 1)
				extra := (align - overlap) % align
				ptr := c.ptr + uintptr(extra)

				if err := h.split(idx, total); err != nil {
					return 0, err
				}
				return ptr, nil
			}
		}
		idx = c.next
	}
	return 0, &OutOfHeapError{Size: size, Align: align}
}

// split carves the first size bytes off the chunk at idx, marking that
// portion allocated. If any bytes remain, they become a new free chunk
// immediately following idx in the list.
func (h *Heap) split(idx int32, size uint64) error {
	c := &h.slots[idx]
	if size >= c.size {
		c.free = false
		return nil
	}

	tailIdx, err := h.allocSlot()
	if err != nil {
		return err
	}
	h.slots[tailIdx] = chunkSlot{
		inUse: true,
		free:  true,
		size:  c.size - size,
		ptr:   c.ptr + uintptr(size),
		next:  c.next,
	}
	c.size = size
	c.free = false
	c.next = tailIdx
	return nil
}

func (h *Heap) allocSlot() (int32, error) {
	for i := range h.slots {
		if !h.slots[i].inUse {
			return int32(i), nil
		}
	}
	return 0, &OutOfChunksError{}
}

// Free locates the allocated chunk containing ptr, marks it free, and
// opportunistically combines it with its immediate successor if that
// is also free. It does not chase further merges past one step, nor
// re-examine chunks already walked in this call; use CleanUp to force
// a fuller sweep. Grounded on allocator.rs's free_memory, which has the
// same one-step-per-call limitation.
func (h *Heap) Free(ptr uintptr) error {
	idx := h.root
	for idx != noChunk {
		c := &h.slots[idx]
		if !c.free && c.ptr <= ptr && ptr < c.ptr+uintptr(c.size) {
			c.free = true
			h.combine(idx)
			return nil
		}
		if c.free {
			h.combine(idx)
		}
		idx = c.next
	}
	return &NotAllocatedError{Ptr: ptr}
}

// combine merges the chunk at idx with its immediate successor if both
// are free, freeing the successor's metadata slot.
func (h *Heap) combine(idx int32) {
	c := &h.slots[idx]
	if !c.free || c.next == noChunk {
		return
	}
	next := &h.slots[c.next]
	if !next.free {
		return
	}
	absorbed := c.next
	c.size += next.size
	c.next = next.next
	h.slots[absorbed] = chunkSlot{next: noChunk}
}

// CleanUp walks the whole chunk list once, attempting to combine every
// free chunk with its immediate successor. A single call may leave
// runs of more than two adjacent free chunks only partially merged
// (each chunk combines with its successor once, not transitively);
// callers wanting a fully coalesced pool call CleanUp repeatedly until
// ChunkCount stops shrinking. Grounded on allocator.rs's clean_up.
func (h *Heap) CleanUp() {
	idx := h.root
	for idx != noChunk {
		c := &h.slots[idx]
		if c.free {
			h.combine(idx)
		}
		idx = c.next
	}
}

// FreeByteCount sums the size of every free chunk. Intended for tests
// and diagnostics.
func (h *Heap) FreeByteCount() uint64 {
	total := uint64(0)
	idx := h.root
	for idx != noChunk {
		c := &h.slots[idx]
		if c.free {
			total += c.size
		}
		idx = c.next
	}
	return total
}

// ChunkCount reports how many chunks (free or allocated) the metadata
// table currently describes.
func (h *Heap) ChunkCount() int {
	n := 0
	idx := h.root
	for idx != noChunk {
		n++
		idx = h.slots[idx].next
	}
	return n
}
