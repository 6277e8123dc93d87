// Package sched implements the cooperative scheduler tick (spec.md
// §4.7): one pass over the process table per timer interrupt,
// try-locking each process's state mutex so a contended process is
// skipped rather than blocking the tick, and handing Dead processes
// off to an async FIFO cleanup executor. Grounded on
// original_source/qor-os/src/process/scheduler.rs.
package sched

import (
	"github.com/AshTS/qor/internal/defs"
	"github.com/AshTS/qor/internal/proc"
)

// Switcher performs the actual context switch to a chosen process. It
// is supplied by the boot/trap layer, which owns the hart-specific
// register-save machinery this package does not implement (spec.md
// §1, out of scope: trap entry assembly).
type Switcher func(pid defs.Pid_t)

// Scheduler drives one process table through repeated ticks.
type Scheduler struct {
	table    *proc.Table
	executor *Executor
	switchTo Switcher
}

// New constructs a Scheduler over table, using switchTo to hand off to
// a chosen process and executor to run cleanup tasks for Dead
// processes.
func New(table *proc.Table, executor *Executor, switchTo Switcher) *Scheduler {
	return &Scheduler{table: table, executor: executor, switchTo: switchTo}
}

// Tick performs one scheduling pass for the given hart: it walks the
// process table once, transitioning and possibly selecting the first
// process found ready to run. If a process is selected, switchTo is
// invoked for it and Tick returns immediately without examining the
// remaining processes, matching the original's break-on-first-match
// behavior.
func (s *Scheduler) Tick(hart uint64) {
	pids := s.table.Snapshot()

	for _, pid := range pids {
		p, ok := s.table.Get(pid)
		if !ok {
			continue
		}

		g := p.StateMu.AttemptLock()
		if g == nil {
			continue
		}

		state := g.Get().State
		reason := g.Get().Reason
		g.Unlock()

		switch state {
		case proc.StatePending:
			p.SetState(proc.StateRunning)
			s.switchTo(pid)
			return

		case proc.StateWaiting:
			ready := false
			switch reason {
			case proc.WaitReasonForChildren:
				ready = p.ChildExit.Wait()
			case proc.WaitReasonSemaphore:
				ready = p.WaitWakeup.Wait()
			}
			if ready {
				p.SetState(proc.StateRunning)
				s.switchTo(pid)
				return
			}

		case proc.StateZombie:
			p.SetState(proc.StateDead)

		case proc.StateDead:
			s.executor.Enqueue(func() { s.table.Remove(pid) })

		case proc.StateRunning:
		}
	}
}
