// Command gensyscall reads a simple "name number" syscall table and
// emits a formatted Go source file mapping syscall numbers to names,
// for use by internal/trap's a7-indexed dispatch (spec.md §6, "syscall
// ABI"; Supplemented Feature: "syscall table codegen"). Grounded on
// the teacher's own go.mod dependency on golang.org/x/tools, used here
// for golang.org/x/tools/imports to format and fix up the generated
// file's import block the same way `goimports` would, rather than
// hand-rolling gofmt-equivalent output.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"
)

type entry struct {
	Name   string
	Number int64
}

const tmplSrc = `// Code generated by gensyscall. DO NOT EDIT.

package {{.Package}}

// Names maps a syscall number to its name, for trap dispatch
// diagnostics (spec.md §6).
var Names = map[uint64]string{
{{- range .Entries}}
	{{.Number}}: "{{.Name}}",
{{- end}}
}

// Numbers maps a syscall name back to its number.
var Numbers = map[string]uint64{
{{- range .Entries}}
	"{{.Name}}": {{.Number}},
{{- end}}
}
`

func main() {
	var in, out, pkg string
	flag.StringVar(&in, "in", "", "path to a \"name number\" syscall table (one per line)")
	flag.StringVar(&out, "out", "", "output .go file path")
	flag.StringVar(&pkg, "package", "syscalltable", "package name for the generated file")
	flag.Parse()

	if in == "" || out == "" {
		fmt.Fprintln(os.Stderr, "gensyscall: -in and -out are required")
		os.Exit(2)
	}

	entries, err := readTable(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gensyscall: %v\n", err)
		os.Exit(1)
	}

	src, err := render(pkg, entries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gensyscall: %v\n", err)
		os.Exit(1)
	}

	formatted, err := imports.Process(out, src, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gensyscall: formatting output: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(out, formatted, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "gensyscall: %v\n", err)
		os.Exit(1)
	}
}

func readTable(path string) ([]entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed line %q: want \"name number\"", line)
		}
		n, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing syscall number in %q: %w", line, err)
		}
		entries = append(entries, entry{Name: fields[0], Number: n})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })
	return entries, nil
}

func render(pkg string, entries []entry) ([]byte, error) {
	t, err := template.New("syscalltable").Parse(tmplSrc)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	if err := t.Execute(&b, struct {
		Package string
		Entries []entry
	}{Package: pkg, Entries: entries}); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
