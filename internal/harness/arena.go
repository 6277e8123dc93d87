// Package harness provides a hosted stand-in for the linker-provided
// physical heap region so the allocator, heap, and VM packages can be
// exercised with golang.org/x/sys/unix-backed real memory under `go
// test` instead of a bare-metal linker script. Production boot code
// never imports this package; it is reference infrastructure for tests
// only, grounded on the teacher's willingness to depend on
// golang.org/x/sys elsewhere in the module (see SPEC_FULL.md, "Test
// tooling").
package harness

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/AshTS/qor/internal/page"
)

// Arena is an anonymous mmap region standing in for a slice of
// physical RAM. Close must be called to munmap it.
type Arena struct {
	mem []byte
}

// NewArena mmaps a fresh, zeroed region of the given number of pages
// and returns it alongside the page.Range an allocator should be
// initialized with. The range's addresses are only valid while the
// Arena is open, and only within the current process: it is not a real
// physical address, just a large enough flat byte region for testing
// address arithmetic and read/write round-trips.
func NewArena(pages uint64) (*Arena, page.Range, error) {
	size := int(pages * page.Size)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, page.Range{}, fmt.Errorf("harness: mmap %d pages: %w", pages, err)
	}
	a := &Arena{mem: mem}
	start := page.Addr(uintptrOf(mem))
	rng := page.Range{Start: start, End: start + page.Addr(size)}
	return a, rng, nil
}

// Close releases the mmap'd region.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}

// Bytes exposes the arena's backing storage, for tests that want to
// assert on raw content written through a page.Addr derived from this
// arena's range.
func (a *Arena) Bytes() []byte {
	return a.mem
}
