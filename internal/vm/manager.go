package vm

import (
	"fmt"
	"unsafe"

	"github.com/AshTS/qor/internal/page"
)

// Level names the three Sv39 leaf granularities a mapping can be made
// at (spec.md §4.4). Level4KiB is the ordinary 4 KiB page; Level2MiB
// and Level1GiB are the "megapage"/"gigapage" superpage sizes.
// IdentityMap maps at Level4KiB only.
type Level int

const (
	Level4KiB Level = 0
	Level2MiB Level = 1
	Level1GiB Level = 2
)

// PageSource supplies and reclaims the physical pages a Manager uses
// for its own table nodes. internal/bitmap.Allocator satisfies this
// shape directly (via BitmapSource); internal/kheap.Heap is a
// byte-grain allocator and is not a PageSource.
type PageSource interface {
	AllocPage() (page.Addr, error)
	FreePage(page.Addr) error
}

// NotMappedError reports an unmap or translate against an address with
// no valid mapping.
type NotMappedError struct {
	Virt uintptr
}

func (e *NotMappedError) Error() string {
	return fmt.Sprintf("vm: address %#x is not mapped", e.Virt)
}

// BadFlagsError reports a Map call whose flags have none of R/W/X set,
// which would silently produce a branch entry instead of a leaf
// (spec.md §4.4, mirroring original_source/qor-os/src/mem/mmu.rs's
// "Cannot map with none of RWX set" panic, demoted here to a returned
// error since this layer never panics on caller-supplied input).
type BadFlagsError struct {
	Virt, Phys uintptr
}

func (e *BadFlagsError) Error() string {
	return fmt.Sprintf("vm: cannot map %#x -> %#x with none of R/W/X set", e.Virt, e.Phys)
}

// Manager owns one Sv39 page table tree rooted at a single physical
// page, plus the PageSource it draws new table nodes from.
type Manager struct {
	root  page.Addr
	pages PageSource
}

// NewManager allocates a fresh, all-invalid root table from src and
// returns a Manager owning it.
func NewManager(src PageSource) (*Manager, error) {
	root, err := src.AllocPage()
	if err != nil {
		return nil, err
	}
	tableAt(uintptr(root)).invalidateAll()
	return &Manager{root: root, pages: src}, nil
}

// Root returns the physical address of the root table, the value to
// program into satp (shifted and tagged by the caller per the trap
// layer's needs).
func (m *Manager) Root() page.Addr {
	return m.root
}

func vpns(virt uintptr) [3]uint64 {
	return [3]uint64{
		(uint64(virt) >> 12) & 0x1ff,
		(uint64(virt) >> 21) & 0x1ff,
		(uint64(virt) >> 30) & 0x1ff,
	}
}

func ppns(phys uintptr) [3]uint64 {
	return [3]uint64{
		(uint64(phys) >> 12) & 0x1ff,
		(uint64(phys) >> 21) & 0x1ff,
		(uint64(phys) >> 30) & ((1 << 26) - 1),
	}
}

// Map installs a mapping from virt to phys at the given leaf level,
// allocating any intermediate tables that do not yet exist.
func (m *Manager) Map(virt, phys uintptr, flags Flags, level Level) error {
	if flags&rwx == 0 {
		return &BadFlagsError{Virt: virt, Phys: phys}
	}

	vpn := vpns(virt)
	ppn := ppns(phys)

	walking := &tableAt(uintptr(m.root)).entries[vpn[2]]

	for cur := 2; cur > int(level); cur-- {
		if !walking.Valid() {
			next, err := m.pages.AllocPage()
			if err != nil {
				return err
			}
			tableAt(uintptr(next)).invalidateAll()
			walking.SetPPN(uint64(next) >> 12)
			walking.SetBit(FlagValid, true)
		}
		next := tableAt(uintptr(walking.PPN() << 12))
		walking = &next.entries[vpn[cur-1]]
	}

	walking.SetData(ppn[2]<<28 | ppn[1]<<19 | ppn[0]<<10 | uint64(flags) | uint64(FlagValid))
	return nil
}

// IdentityMap maps every page in rng to itself with the given flags,
// at 4 KiB granularity. Used for the kernel's TEXT/RODATA/DATA/BSS/
// STACK/HEAP and MMIO windows (spec.md §6).
func (m *Manager) IdentityMap(rng page.Range, flags Flags) error {
	for addr := rng.Start; addr < rng.End; addr += page.Size {
		if err := m.Map(uintptr(addr), uintptr(addr), flags, Level4KiB); err != nil {
			return err
		}
	}
	return nil
}

// Unmap removes the mapping covering virt, freeing any table nodes
// that become fully invalid is left to the caller via Drop; Unmap only
// clears the leaf's Valid bit, matching
// original_source/qor-os/src/mem/mmu.rs's inner_unmap.
func (m *Manager) Unmap(virt uintptr) error {
	vpn := vpns(virt)
	ptr := &tableAt(uintptr(m.root)).entries[vpn[2]]

	for i := 2; i >= 0; i-- {
		if !ptr.Valid() {
			return &NotMappedError{Virt: virt}
		}
		if ptr.Leaf() {
			ptr.SetBit(FlagValid, false)
			return nil
		}
		next := tableAt(uintptr(ptr.PPN() << 12))
		if i == 0 {
			return &NotMappedError{Virt: virt}
		}
		ptr = &next.entries[vpn[i-1]]
	}
	return &NotMappedError{Virt: virt}
}

// VirtToPhys translates virt through the table tree, returning the
// physical address and true, or false if no valid mapping covers it.
func (m *Manager) VirtToPhys(virt uintptr) (uintptr, bool) {
	vpn := vpns(virt)
	ptr := &tableAt(uintptr(m.root)).entries[vpn[2]]

	for i := 2; i >= 0; i-- {
		if !ptr.Valid() {
			return 0, false
		}
		if ptr.Leaf() {
			offsetMask := uint64(1)<<(12+9*uint(i)) - 1
			physMask := ^(uint64(1)<<(9*uint(i)) - 1)
			offset := uint64(virt) & offsetMask
			physOffset := ptr.PPN() & physMask
			return uintptr(offset | physOffset<<12), true
		}
		if i == 0 {
			return 0, false
		}
		next := tableAt(uintptr(ptr.PPN() << 12))
		ptr = &next.entries[vpn[i-1]]
	}
	return 0, false
}

// Drop recursively frees every table node owned by this Manager,
// including the root, returning them all to its PageSource. It does
// not free leaf pages: those are owned by whatever mapped them, not by
// the Manager, matching the distinction
// original_source/qor-os/src/mem/mmu.rs draws between unmap_table
// (frees branch nodes only) and the mapper's callers (own the leaves).
func (m *Manager) Drop() error {
	if err := m.dropTable(uintptr(m.root)); err != nil {
		return err
	}
	m.root = 0
	return nil
}

func (m *Manager) dropTable(addr uintptr) error {
	t := tableAt(addr)
	for i := range t.entries {
		e := &t.entries[i]
		if e.Valid() && !e.Leaf() {
			if err := m.dropTable(uintptr(e.PPN() << 12)); err != nil {
				return err
			}
		}
	}
	return m.pages.FreePage(page.Addr(addr))
}

// pageAt views the page.Size bytes at addr as a *page.Page, the same
// intrusive-pointer trick internal/bitmap and internal/kheap use for
// their own carved-out metadata.
func pageAt(addr uintptr) *page.Page {
	return (*page.Page)(unsafe.Pointer(addr))
}

// Duplicate creates a new Manager with a freshly allocated table tree
// that mirrors this one's branch structure. Every leaf mapping is
// deep-copied: a fresh physical page is allocated from the PageSource,
// the source page's bytes are copied into it, and the duplicate's PTE
// points at the copy rather than at the original page (spec.md §4.4).
// Callers get two address spaces that read the same content today but
// never alias: a write through one can never be observed through the
// other.
func (m *Manager) Duplicate() (*Manager, error) {
	dst, err := NewManager(m.pages)
	if err != nil {
		return nil, err
	}
	if err := m.duplicateTable(uintptr(m.root), uintptr(dst.root)); err != nil {
		dst.Drop()
		return nil, err
	}
	return dst, nil
}

func (m *Manager) duplicateTable(srcAddr, dstAddr uintptr) error {
	src := tableAt(srcAddr)
	dst := tableAt(dstAddr)

	for i := range src.entries {
		se := &src.entries[i]
		if !se.Valid() {
			continue
		}
		de := &dst.entries[i]
		if se.Leaf() {
			leafSrc := uintptr(se.PPN()) << 12
			leafDst, err := m.pages.AllocPage()
			if err != nil {
				return err
			}
			*pageAt(uintptr(leafDst)) = *pageAt(leafSrc)
			de.SetData(se.Data())
			de.SetPPN(uint64(leafDst) >> 12)
			continue
		}
		childDst, err := m.pages.AllocPage()
		if err != nil {
			return err
		}
		tableAt(uintptr(childDst)).invalidateAll()
		de.SetPPN(uint64(childDst) >> 12)
		de.SetBit(FlagValid, true)
		if err := m.duplicateTable(uintptr(se.PPN()<<12), uintptr(childDst)); err != nil {
			return err
		}
	}
	return nil
}
