// Command kdis disassembles a raw RISC-V64 instruction dump captured
// around a trap's epc, the way a developer debugging a panic at the
// QEMU monitor would want to see the faulting instruction stream
// rather than just its raw cause code (spec.md §4.5's Context.Epc).
// It is a standalone host tool: production boot code never imports
// it. Grounded on the teacher's own convention of separate cmd/
// binaries for offline diagnostics (the pack's general preference for
// host tooling over in-kernel logic), wired to golang.org/x/arch's
// riscv64asm decoder, which the teacher's go.mod already depends on
// golang.org/x/arch for (the x/arch module, not used directly by the
// teacher's own build but present in its requires).
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/arch/riscv64asm"
)

func main() {
	var base uint64
	flag.Uint64Var(&base, "base", 0, "virtual address of the first instruction in the dump")
	flag.Parse()

	in := os.Stdin
	if args := flag.Args(); len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "kdis: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	if err := disassemble(os.Stdout, in, base); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "kdis: %v\n", err)
		os.Exit(1)
	}
}

func disassemble(w io.Writer, r io.Reader, base uint64) error {
	br := bufio.NewReader(r)
	addr := base

	for {
		buf := make([]byte, 4)
		if _, err := io.ReadFull(br, buf); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		inst, err := riscv64asm.Decode(buf)
		if err != nil {
			fmt.Fprintf(w, "%#08x: %08x  (undecodable: %v)\n", addr, binary.LittleEndian.Uint32(buf), err)
		} else {
			fmt.Fprintf(w, "%#08x: %08x  %s\n", addr, binary.LittleEndian.Uint32(buf), inst.String())
		}
		addr += 4
	}
}
