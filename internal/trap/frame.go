// Package trap implements the per-hart trap frame and cause
// classification (spec.md §4.5). Grounded on
// original_source/qor-os/src/trap/{frame.rs,context.rs,trap.rs},
// translated from a raw mscratch-pointed struct to an ordinary Go
// struct allocated by the caller; this package only defines layout and
// classification, leaving the actual trap entry assembly (reading
// mscratch, saving registers) to the teacher-absent boot code this
// kernel core does not include (spec.md §1, out of scope).
package trap

import (
	"unsafe"

	"github.com/AshTS/qor/internal/defs"
	"github.com/AshTS/qor/internal/page"
)

// Frame is the fixed-layout per-hart trap frame: saved integer and
// floating-point register files, the address space this hart was
// running under (satp), its dedicated trap stack, its hart ID, and the
// PID of whatever process was bound to it when the trap fired.
type Frame struct {
	Regs  [32]uint64
	FRegs [32]float64
	Satp  uint64

	TrapStack     uintptr
	TrapStackSize uint64
	HartID        uint64
	Pid           defs.Pid_t
}

// Register indices into Regs, named for the standard RISC-V calling
// convention (spec.md §6, "syscall ABI").
const (
	RegZero = 0
	RegRA   = 1
	RegSP   = 2
	RegA0   = 10
	RegA1   = 11
	RegA2   = 12
	RegA3   = 13
	RegA4   = 14
	RegA5   = 15
	RegA6   = 16
	RegA7   = 17
)

// FrameAt views the page at addr as a Frame, the same intrusive-pointer
// trick internal/bitmap, internal/kheap, and internal/vm use for their
// own carved-out metadata. Process creation (spec.md §4.7) dedicates a
// whole physical page to each process's trap frame rather than
// allocating it on the Go heap, so the frame's address is stable and
// known to the trap entry/exit assembly this kernel core does not
// include.
func FrameAt(addr page.Addr) *Frame {
	return (*Frame)(unsafe.Pointer(uintptr(addr)))
}

// SyscallNumber reads the syscall number out of a7, per the ABI
// convention shared with the teacher's syscall dispatch
// (biscuit/src/kernel/chentry.go uses the analogous rax slot on x86).
func (f *Frame) SyscallNumber() uint64 {
	return f.Regs[RegA7]
}

// Arg returns argument register n (0-indexed, a0..a6) of a syscall
// trap. n must be in [0,7); callers outside that range get zero rather
// than a panic, since a malformed syscall table entry should degrade,
// not crash the kernel.
func (f *Frame) Arg(n int) uint64 {
	if n < 0 || n > 6 {
		return 0
	}
	return f.Regs[RegA0+n]
}

// SetReturn writes a syscall's return value into a0, where the calling
// convention expects it.
func (f *Frame) SetReturn(v defs.Err_t) {
	f.Regs[RegA0] = uint64(int64(v))
}
