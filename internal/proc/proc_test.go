package proc

import (
	"testing"

	"github.com/AshTS/qor/internal/bitmap"
	"github.com/AshTS/qor/internal/defs"
	"github.com/AshTS/qor/internal/harness"
	"github.com/AshTS/qor/internal/page"
	"github.com/AshTS/qor/internal/trap"
	"github.com/AshTS/qor/internal/vm"
)

// newSpawnFixture builds a PageSource and CreationParams that carve a
// small code range and a two-page stack out of a fresh harness arena,
// for tests that need a real Spawn/New call rather than a bare
// in-memory Process.
func newSpawnFixture(t *testing.T) (vm.PageSource, CreationParams, func()) {
	t.Helper()
	arena, rng, err := harness.NewArena(64)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	alloc := bitmap.Initialize(rng)
	src := vm.BitmapSource{Alloc: alloc}

	codeStart, err := src.AllocPage()
	if err != nil {
		t.Fatalf("AllocPage (code): %v", err)
	}
	params := CreationParams{
		Code:       page.Range{Start: codeStart, End: codeStart + page.Addr(page.Size)},
		CodeFlags:  vm.FlagRead | vm.FlagExecute,
		StackPages: 2,
		StackFlags: vm.FlagRead | vm.FlagWrite,
	}
	return src, params, func() { arena.Close() }
}

func TestTableSpawnAssignsMonotonicPids(t *testing.T) {
	src, params, done := newSpawnFixture(t)
	defer done()
	tbl := NewTable()

	a, err := tbl.Spawn(0, src, params)
	if err != nil {
		t.Fatalf("Spawn a: %v", err)
	}
	b, err := tbl.Spawn(a.Pid, src, params)
	if err != nil {
		t.Fatalf("Spawn b: %v", err)
	}

	if a.Pid != 1 {
		t.Fatalf("first pid = %d, want 1", a.Pid)
	}
	if b.Pid != 2 {
		t.Fatalf("second pid = %d, want 2", b.Pid)
	}
	if b.ParentPid != a.Pid {
		t.Fatalf("child parent = %d, want %d", b.ParentPid, a.Pid)
	}
}

func TestTableGetAndRemove(t *testing.T) {
	src, params, done := newSpawnFixture(t)
	defer done()
	tbl := NewTable()

	p, err := tbl.Spawn(0, src, params)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	got, ok := tbl.Get(p.Pid)
	if !ok || got != p {
		t.Fatal("Get did not return the spawned process")
	}

	tbl.Remove(p.Pid)
	if _, ok := tbl.Get(p.Pid); ok {
		t.Fatal("process still present after Remove")
	}
}

func TestProcessStateTransitions(t *testing.T) {
	src, params, done := newSpawnFixture(t)
	defer done()

	p, err := New(1, 0, src, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.State() != StatePending {
		t.Fatalf("initial state = %v, want pending", p.State())
	}

	p.SetState(StateRunning)
	if p.State() != StateRunning {
		t.Fatalf("state = %v, want running", p.State())
	}

	p.SetWaiting(WaitReasonForChildren)
	if p.State() != StateWaiting {
		t.Fatalf("state = %v, want waiting", p.State())
	}
	if p.WaitingFor() != WaitReasonForChildren {
		t.Fatalf("wait reason = %v, want ForChildren", p.WaitingFor())
	}

	p.SetState(StateZombie)
	if p.WaitingFor() != WaitReasonNone {
		t.Fatal("wait reason should clear on leaving StateWaiting")
	}
}

func TestTableSnapshotCoversAllSpawned(t *testing.T) {
	src, params, done := newSpawnFixture(t)
	defer done()
	tbl := NewTable()

	for i := 0; i < 3; i++ {
		if _, err := tbl.Spawn(0, src, params); err != nil {
			t.Fatalf("Spawn #%d: %v", i, err)
		}
	}

	pids := tbl.Snapshot()
	if len(pids) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(pids))
	}
}

func TestNewWiresAddressSpaceFrameAndStack(t *testing.T) {
	src, params, done := newSpawnFixture(t)
	defer done()

	p, err := New(5, 0, src, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if p.AddressSpace == nil {
		t.Fatal("New did not set AddressSpace")
	}
	if p.Frame == nil {
		t.Fatal("New did not set Frame")
	}
	if p.Frame.Pid != defs.Pid_t(5) {
		t.Fatalf("frame.Pid = %d, want 5", p.Frame.Pid)
	}
	if p.Frame.Regs[trap.RegSP] != uint64(p.StackTop) {
		t.Fatalf("frame SP = %#x, want stack top %#x", p.Frame.Regs[trap.RegSP], p.StackTop)
	}
	if p.StackTop == 0 {
		t.Fatal("StackTop was never set")
	}

	for addr := params.Code.Start; addr < params.Code.End; addr += page.Addr(page.Size) {
		if _, ok := p.AddressSpace.VirtToPhys(uintptr(addr)); !ok {
			t.Fatalf("code page %#x not mapped in the new address space", addr)
		}
	}
}
