package proc

import (
	"github.com/AshTS/qor/internal/defs"
	"github.com/AshTS/qor/internal/ksync"
	"github.com/AshTS/qor/internal/vm"
)

// Table is the global process map, guarded by a SyncCell so the
// scheduler's read-mostly iteration does not starve an occasional
// Spawn/Reap writer (spec.md §4.7; grounded on
// original_source/qor-os/src/process/mod.rs's process_map()).
type Table struct {
	cell *ksync.SyncCell[map[defs.Pid_t]*Process]
	next defs.Pid_t
}

// NewTable constructs an empty process table. PIDs are assigned
// starting at 1; 0 is reserved to mean "no parent" (spec.md §3).
func NewTable() *Table {
	return &Table{
		cell: ksync.NewSyncCell(make(map[defs.Pid_t]*Process)),
		next: 1,
	}
}

// Spawn allocates a fresh PID, constructs a Process for it (including
// its address space, identity-mapped code and stack, and trap frame;
// see New), inserts it into the table, and returns it. PIDs are
// monotonic and never reused.
func (t *Table) Spawn(parent defs.Pid_t, src vm.PageSource, params CreationParams) (*Process, error) {
	g := t.cell.Write()
	defer g.Release()

	pid := t.next

	p, err := New(pid, parent, src, params)
	if err != nil {
		return nil, err
	}
	t.next++
	(*g.Get())[pid] = p
	return p, nil
}

// Get looks up a process by PID.
func (t *Table) Get(pid defs.Pid_t) (*Process, bool) {
	g := t.cell.Read()
	defer g.Release()
	p, ok := (*g.Get())[pid]
	return p, ok
}

// Remove deletes a process from the table, e.g. once its cleanup task
// has run to completion (spec.md §4.7, "async cleanup task for Dead
// processes").
func (t *Table) Remove(pid defs.Pid_t) {
	g := t.cell.Write()
	defer g.Release()
	delete(*g.Get(), pid)
}

// Snapshot returns the PIDs currently in the table, in no particular
// order. The scheduler tick uses this to decide which processes to
// examine without holding the table lock for the whole pass.
func (t *Table) Snapshot() []defs.Pid_t {
	g := t.cell.Read()
	defer g.Release()
	pids := make([]defs.Pid_t, 0, len(*g.Get()))
	for pid := range *g.Get() {
		pids = append(pids, pid)
	}
	return pids
}
