// Package proc implements the process table and process object the
// cooperative scheduler drives (spec.md §4.7). Grounded on
// original_source/qor-os/src/process/{mod.rs,process/process_object.rs},
// with the const/atomic/locked-mutable split collapsed from three
// separate Rust structs into one Go struct whose fields are documented
// by comment as to which access discipline applies, since Go has no
// type-level way to mark a field const-after-construction the way the
// original's ConstData/AtomicData/MutableData triad does.
package proc

import (
	"github.com/AshTS/qor/internal/defs"
	"github.com/AshTS/qor/internal/ksync"
	"github.com/AshTS/qor/internal/page"
	"github.com/AshTS/qor/internal/trap"
	"github.com/AshTS/qor/internal/vm"
)

// State is a process's scheduling state (spec.md §4.7).
type State int

const (
	StatePending State = iota
	StateRunning
	StateWaiting
	StateZombie
	StateDead
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateZombie:
		return "zombie"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// WaitReason further qualifies StateWaiting: a process can be waiting
// for any of its children to exit, or for a single generic semaphore
// wakeup (spec.md §4.7).
type WaitReason int

const (
	WaitReasonNone WaitReason = iota
	WaitReasonForChildren
	WaitReasonSemaphore
)

// Process is one schedulable process object.
//
// Const fields (set once at creation, never mutated): Pid, ParentPid.
// Atomic fields (read/written without the state mutex): ChildExit,
// WaitWakeup. Locked fields (held inside StateMu): State, Reason.
// The execution state (AddressSpace, Frame, FramePage, StackTop) is
// set by New and is not guarded by StateMu or any other lock.
type Process struct {
	Pid       defs.Pid_t
	ParentPid defs.Pid_t

	ChildExit  ksync.Signal
	WaitWakeup ksync.Signal

	StateMu *ksync.Mutex[stateData]

	// AddressSpace is this process's private Sv39 table tree.
	AddressSpace *vm.Manager
	// Frame is the kernel-side trap frame a context switch loads this
	// process's registers from and saves them back into. It lives in a
	// dedicated physical page (FramePage), not on the Go heap, per
	// spec.md §4.7.
	Frame     *trap.Frame
	FramePage page.Addr
	// StackTop is the initial stack pointer: the address one past the
	// top of the highest-addressed stack page allocated at creation.
	StackTop uintptr
}

type stateData struct {
	State  State
	Reason WaitReason
}

// CreationParams describes the address space a new process starts
// with (spec.md §4.7, "Creation"): the code range to identity-map, the
// permission flags for it, and how many stack pages to allocate and
// identity-map.
type CreationParams struct {
	Code      page.Range
	CodeFlags vm.Flags

	StackPages uint64
	StackFlags vm.Flags
}

// New constructs a fresh process in StatePending whose ParentPid is
// parent, implementing the Creation algorithm of spec.md §4.7: a fresh address
// space is allocated and the process's code range identity-mapped into
// it, StackPages pages are allocated and identity-mapped as its stack,
// one page is dedicated to its kernel-side trap frame, and the trap
// frame's stack pointer is set to the top of the allocated stack.
func New(pid, parent defs.Pid_t, src vm.PageSource, params CreationParams) (*Process, error) {
	space, err := vm.NewManager(src)
	if err != nil {
		return nil, err
	}

	if params.Code.PageCount() > 0 {
		if err := space.IdentityMap(params.Code, params.CodeFlags); err != nil {
			space.Drop()
			return nil, err
		}
	}

	stackTop, err := identityMapStack(space, src, params.StackPages, params.StackFlags)
	if err != nil {
		space.Drop()
		return nil, err
	}

	framePage, err := src.AllocPage()
	if err != nil {
		space.Drop()
		return nil, err
	}
	frame := trap.FrameAt(framePage)
	*frame = trap.Frame{}
	frame.Pid = pid
	frame.Satp = uint64(space.Root())
	frame.Regs[trap.RegSP] = uint64(stackTop)

	return &Process{
		Pid:          pid,
		ParentPid:    parent,
		StateMu:      ksync.NewMutex(stateData{State: StatePending}),
		AddressSpace: space,
		Frame:        frame,
		FramePage:    framePage,
		StackTop:     stackTop,
	}, nil
}

// identityMapStack allocates count pages from src and identity-maps
// each at Level4KiB with flags, returning the address one past the
// highest-addressed page allocated: the stack grows down from there,
// so this is the process's initial stack pointer.
func identityMapStack(space *vm.Manager, src vm.PageSource, count uint64, flags vm.Flags) (uintptr, error) {
	var top uintptr
	for i := uint64(0); i < count; i++ {
		p, err := src.AllocPage()
		if err != nil {
			return 0, err
		}
		if err := space.Map(uintptr(p), uintptr(p), flags, vm.Level4KiB); err != nil {
			return 0, err
		}
		if end := uintptr(p) + page.Size; end > top {
			top = end
		}
	}
	return top, nil
}

// State returns the process's current state, blocking only as long as
// it takes to spin-acquire the state mutex.
func (p *Process) State() State {
	g := p.StateMu.SpinLock()
	defer g.Unlock()
	return g.Get().State
}

// SetState transitions the process to state, clearing the wait reason
// unless state is StateWaiting (callers of SetState(StateWaiting, ...)
// should use SetWaiting instead, which sets both fields atomically
// under one lock acquisition).
func (p *Process) SetState(state State) {
	g := p.StateMu.SpinLock()
	defer g.Unlock()
	g.Get().State = state
	if state != StateWaiting {
		g.Get().Reason = WaitReasonNone
	}
}

// SetWaiting transitions the process into StateWaiting for the given
// reason in a single locked step.
func (p *Process) SetWaiting(reason WaitReason) {
	g := p.StateMu.SpinLock()
	defer g.Unlock()
	g.Get().State = StateWaiting
	g.Get().Reason = reason
}

// WaitingFor reports the wait reason if the process is currently
// waiting, or WaitReasonNone otherwise.
func (p *Process) WaitingFor() WaitReason {
	g := p.StateMu.SpinLock()
	defer g.Unlock()
	d := g.Get()
	if d.State != StateWaiting {
		return WaitReasonNone
	}
	return d.Reason
}
