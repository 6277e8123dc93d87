package vm

import (
	"testing"
	"unsafe"

	"github.com/AshTS/qor/internal/bitmap"
	"github.com/AshTS/qor/internal/harness"
	"github.com/AshTS/qor/internal/page"
)

func readByte(addr uintptr) byte {
	return *(*byte)(unsafe.Pointer(addr))
}

func writeByte(addr uintptr, v byte) {
	*(*byte)(unsafe.Pointer(addr)) = v
}

func newTestManager(t *testing.T, pages uint64) (*Manager, *harness.Arena, BitmapSource) {
	t.Helper()
	arena, rng, err := harness.NewArena(pages)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	alloc := bitmap.Initialize(rng)
	src := BitmapSource{Alloc: alloc}
	m, err := NewManager(src)
	if err != nil {
		arena.Close()
		t.Fatalf("NewManager: %v", err)
	}
	return m, arena, src
}

func TestMapAndTranslate4KiB(t *testing.T) {
	m, arena, src := newTestManager(t, 64)
	defer arena.Close()

	phys, err := src.Alloc.AllocatePages(1)
	if err != nil {
		t.Fatalf("AllocatePages: %v", err)
	}

	virt := uintptr(0x1000_0000)
	if err := m.Map(virt, uintptr(phys), FlagRead|FlagWrite, Level4KiB); err != nil {
		t.Fatalf("Map: %v", err)
	}

	got, ok := m.VirtToPhys(virt)
	if !ok {
		t.Fatal("VirtToPhys reported unmapped after Map")
	}
	if got != uintptr(phys) {
		t.Fatalf("VirtToPhys = %#x, want %#x", got, phys)
	}
}

func TestMapRejectsNoPermissionBits(t *testing.T) {
	m, arena, src := newTestManager(t, 16)
	defer arena.Close()

	phys, _ := src.Alloc.AllocatePages(1)
	err := m.Map(0x2000, uintptr(phys), FlagAccessed, Level4KiB)
	if err == nil {
		t.Fatal("expected BadFlagsError for a mapping with no R/W/X bits")
	}
}

func TestUnmapThenTranslateFails(t *testing.T) {
	m, arena, src := newTestManager(t, 32)
	defer arena.Close()

	phys, _ := src.Alloc.AllocatePages(1)
	virt := uintptr(0x4000)
	if err := m.Map(virt, uintptr(phys), FlagRead, Level4KiB); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if err := m.Unmap(virt); err != nil {
		t.Fatalf("Unmap: %v", err)
	}
	if _, ok := m.VirtToPhys(virt); ok {
		t.Fatal("VirtToPhys succeeded after Unmap")
	}
}

func TestTranslateUnmappedAddress(t *testing.T) {
	m, arena, _ := newTestManager(t, 16)
	defer arena.Close()

	if _, ok := m.VirtToPhys(0xdead_0000); ok {
		t.Fatal("VirtToPhys succeeded for never-mapped address")
	}
}

func TestIdentityMapRangeIsPointwiseEqual(t *testing.T) {
	m, arena, _ := newTestManager(t, 64)
	defer arena.Close()

	rng := page.Range{Start: page.Addr(0x8000_0000), End: page.Addr(0x8000_0000 + 4*page.Size)}
	if err := m.IdentityMap(rng, FlagRead|FlagWrite|FlagExecute); err != nil {
		t.Fatalf("IdentityMap: %v", err)
	}
	for addr := rng.Start; addr < rng.End; addr += page.Size {
		got, ok := m.VirtToPhys(uintptr(addr))
		if !ok {
			t.Fatalf("address %#x not mapped after IdentityMap", addr)
		}
		if got != uintptr(addr) {
			t.Fatalf("identity map mismatch: %#x -> %#x", addr, got)
		}
	}
}

func TestDuplicateDeepCopiesLeafPages(t *testing.T) {
	m, arena, src := newTestManager(t, 64)
	defer arena.Close()

	phys, _ := src.Alloc.AllocatePages(1)
	writeByte(uintptr(phys), 0x42)

	virt := uintptr(0x3000_0000)
	if err := m.Map(virt, uintptr(phys), FlagRead|FlagWrite, Level4KiB); err != nil {
		t.Fatalf("Map: %v", err)
	}

	dup, err := m.Duplicate()
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}

	dupPhys, ok := dup.VirtToPhys(virt)
	if !ok {
		t.Fatal("duplicated manager lost the mapping")
	}
	if dupPhys == uintptr(phys) {
		t.Fatal("duplicated mapping aliases the original leaf page; Duplicate must deep-copy")
	}
	if got := readByte(dupPhys); got != 0x42 {
		t.Fatalf("duplicated page content = %#x, want 0x42", got)
	}

	writeByte(dupPhys, 0x99)
	if got := readByte(uintptr(phys)); got != 0x42 {
		t.Fatalf("write through duplicate leaked into original: got %#x, want 0x42", got)
	}
}

func TestDropFreesTableNodes(t *testing.T) {
	m, arena, src := newTestManager(t, 64)
	defer arena.Close()

	phys, _ := src.Alloc.AllocatePages(1)
	if err := m.Map(0x9000_0000, uintptr(phys), FlagRead, Level4KiB); err != nil {
		t.Fatalf("Map: %v", err)
	}

	before := src.Alloc.CountFree()
	if err := m.Drop(); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	after := src.Alloc.CountFree()
	if after <= before {
		t.Fatalf("CountFree did not increase after Drop: before=%d after=%d", before, after)
	}
}
