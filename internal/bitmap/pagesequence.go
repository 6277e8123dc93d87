package bitmap

import (
	"fmt"

	"github.com/AshTS/qor/internal/page"
)

// PageSequence owns a contiguous run of pages allocated from an
// Allocator and frees them exactly once, whichever happens first: an
// explicit call to Free, or never, if the caller instead calls Leak to
// hand ownership to something outside this type's tracking (spec.md
// §4.2). Translated from
// original_source/qor-os/src/mem/page/pagebox.rs, where the Rust Drop
// impl does unconditionally what Go cannot do implicitly; callers here
// must call Free themselves, and a PageSequence that is neither freed
// nor leaked by the time it goes out of scope is a bug the same way a
// forgotten mutex unlock would be.
type PageSequence struct {
	a      *Allocator
	start  page.Addr
	count  uint64
	leaked bool
	freed  bool
}

// Acquire allocates count contiguous pages from a and wraps them in a
// PageSequence.
func Acquire(a *Allocator, count uint64) (*PageSequence, error) {
	start, err := a.AllocatePages(count)
	if err != nil {
		return nil, err
	}
	return &PageSequence{a: a, start: start, count: count}, nil
}

// Start reports the address of the first page in the sequence.
func (p *PageSequence) Start() page.Addr {
	return p.start
}

// Count reports how many pages the sequence spans.
func (p *PageSequence) Count() uint64 {
	return p.count
}

// Free releases the pages back to the allocator they came from. Free
// on an already-freed or leaked PageSequence panics: that is always a
// caller bug, matching the Rust original's double-drop abort.
func (p *PageSequence) Free() error {
	if p.freed || p.leaked {
		panic("bitmap: Free on an already-freed or leaked PageSequence")
	}
	p.freed = true
	return p.a.FreePages(p.start, p.count)
}

// Leak hands the underlying pages to the caller permanently: the
// PageSequence will never free them. Used when ownership transfers to
// a structure this package does not track, e.g. a page table's own
// frames (spec.md §4.2, "Leak").
func (p *PageSequence) Leak() page.Addr {
	if p.freed || p.leaked {
		panic("bitmap: Leak on an already-freed or leaked PageSequence")
	}
	p.leaked = true
	return p.start
}

// String implements fmt.Stringer for diagnostic logging.
func (p *PageSequence) String() string {
	return fmt.Sprintf("PageSequence{start=%#x, count=%d}", uint64(p.start), p.count)
}
