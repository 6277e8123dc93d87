// Package kfmt is the kernel's minimal logging surface. Logging and panic
// handling are out of scope for the core (spec.md §1); this package exists
// only so the in-scope packages have somewhere to send diagnostic text,
// exactly as the teacher reaches for bare fmt.Printf in mem.Phys_init
// rather than a logging framework.
package kfmt

import (
	"fmt"
	"os"
)

// Printf writes a diagnostic line to the kernel's log sink. On real
// hardware this would be UART output; hosted builds and tests write to
// stderr so assertions on captured output stay straightforward.
func Printf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}

// Debugf is distinguished from Printf only by name, matching the
// teacher's habit of calling out kdebugln-style sites separately from
// user-facing kprintln sites even though both end up on the same sink.
func Debugf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
