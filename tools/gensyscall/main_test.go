package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadTableSortsByNumber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.txt")
	content := "write 64\n# comment\nread 63\nexit 93\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	entries, err := readTable(path)
	if err != nil {
		t.Fatalf("readTable: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Name != "read" || entries[1].Name != "write" || entries[2].Name != "exit" {
		t.Fatalf("entries not sorted by number: %+v", entries)
	}
}

func TestReadTableRejectsMalformedLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "table.txt")
	if err := os.WriteFile(path, []byte("write\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := readTable(path); err == nil {
		t.Fatal("expected error for malformed line")
	}
}

func TestRenderProducesExpectedSymbols(t *testing.T) {
	src, err := render("syscalltable", []entry{{Name: "read", Number: 63}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	text := string(src)
	if !strings.Contains(text, "package syscalltable") {
		t.Fatal("generated source missing package clause")
	}
	if !strings.Contains(text, `"read": 63`) {
		t.Fatal("generated source missing Numbers entry")
	}
	if !strings.Contains(text, `63: "read"`) {
		t.Fatal("generated source missing Names entry")
	}
}
