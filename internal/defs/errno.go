// Package defs holds small value types and constants shared across the
// kernel core: error codes, process identifiers, and device numbers.
package defs

// Err_t is a negative-errno-shaped kernel error code. A zero value means
// success; the syscall ABI (spec.md §6) returns Err_t directly in a0.
type Err_t int

// Standard error codes surfaced by the allocators, the VM manager, and
// the syscall layer (spec.md §7).
const (
	EFAULT       Err_t = -14
	ENOMEM       Err_t = -12
	ENAMETOOLONG Err_t = -36
	EINVAL       Err_t = -22
	ENOHEAP      Err_t = -1000
)

// Pid_t identifies a process. PIDs are assigned monotonically and never
// reused (spec.md §3, Process/Constant).
type Pid_t uint64

// Tid_t identifies a thread of control within the kernel's own Go
// runtime, not a user process. No package in this module uses it;
// trap.Frame records its hart as a plain uint64 HartID.
type Tid_t uint64

// Device identifiers, mirroring the teacher's defs.Mkdev/Unmkdev scheme
// (biscuit/src/defs/device.go). Out of scope for the core (spec.md §1);
// D_CONSOLE is named here but no package in this module references it.
const (
	D_CONSOLE = 1
)
