// Package vm implements the Sv39 three-level virtual memory manager
// (spec.md §4.4): page table walking, mapping/unmapping at any of the
// three leaf granularities, virtual-to-physical translation, and
// address-space duplication and teardown. Grounded on
// original_source/qor-os/src/mem/{pagetable.rs,mmu.rs}, translated from
// raw pointer arithmetic over `*mut Entry` to Go's unsafe.Pointer over
// a PageSource-backed arena, in the same carved-out-page style
// internal/kheap uses for its chunk metadata table.
package vm

import (
	"unsafe"
)

// Flags are the low PTE bits a caller sets when mapping a page. Layout
// matches the Sv39 PTE exactly (Valid is managed internally and need
// not be passed in).
type Flags uint64

const (
	FlagValid    Flags = 1 << 0
	FlagRead     Flags = 1 << 1
	FlagWrite    Flags = 1 << 2
	FlagExecute  Flags = 1 << 3
	FlagUser     Flags = 1 << 4
	FlagGlobal   Flags = 1 << 5
	FlagAccessed Flags = 1 << 6
	FlagDirty    Flags = 1 << 7
)

// rwx is the mask of bits whose presence distinguishes a leaf entry
// from a branch entry (spec.md §4.4, "leaf iff any of R/W/X set").
const rwx = FlagRead | FlagWrite | FlagExecute

// Entry is a single Sv39 page table entry.
type Entry struct {
	data uint64
}

// GetBit reports whether the given flag bit is set.
func (e *Entry) GetBit(f Flags) bool {
	return e.data&uint64(f) != 0
}

// SetBit sets or clears the given flag bit, leaving the rest of the
// entry untouched.
func (e *Entry) SetBit(f Flags, val bool) {
	if val {
		e.data |= uint64(f)
	} else {
		e.data &^= uint64(f)
	}
}

// Valid reports whether the entry's Valid bit is set.
func (e *Entry) Valid() bool {
	return e.GetBit(FlagValid)
}

// Leaf reports whether the entry is a leaf (points at a mapped page)
// rather than a branch (points at the next-level table).
func (e *Entry) Leaf() bool {
	return e.data&uint64(rwx) != 0
}

// PPN extracts the 44-bit physical page number field.
func (e *Entry) PPN() uint64 {
	return (e.data >> 10) & ((1 << 44) - 1)
}

// SetPPN overwrites the PPN field, leaving the low 10 flag bits alone.
func (e *Entry) SetPPN(ppn uint64) {
	e.data = (e.data & 0x3ff) | ((ppn & ((1 << 44) - 1)) << 10)
}

// Data returns the raw PTE value.
func (e *Entry) Data() uint64 { return e.data }

// SetData overwrites the raw PTE value wholesale.
func (e *Entry) SetData(v uint64) { e.data = v }

// Table is a 512-entry Sv39 page table, exactly one physical page in
// size.
type Table struct {
	entries [512]Entry
}

func tableAt(addr uintptr) *Table {
	return (*Table)(unsafe.Pointer(addr))
}

// invalidateAll clears the Valid bit on every entry, used when a fresh
// physical page is claimed as a new table.
func (t *Table) invalidateAll() {
	for i := range t.entries {
		t.entries[i].SetBit(FlagValid, false)
	}
}
