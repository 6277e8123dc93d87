package bitmap

import (
	"errors"
	"testing"

	"github.com/AshTS/qor/internal/harness"
)

func TestAllocateAndFreeRoundTrip(t *testing.T) {
	arena, rng, err := harness.NewArena(8)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	// One page of the 8 delegated is carved off for the bitmap's own
	// storage (spec.md §4.2), leaving 7 allocatable.
	if got := a.CountFree(); got != 7 {
		t.Fatalf("CountFree = %d, want 7", got)
	}

	p, err := a.AllocatePages(3)
	if err != nil {
		t.Fatalf("AllocatePages(3): %v", err)
	}
	if got := a.CountFree(); got != 4 {
		t.Fatalf("CountFree after alloc = %d, want 4", got)
	}

	if err := a.FreePages(p, 3); err != nil {
		t.Fatalf("FreePages: %v", err)
	}
	if got := a.CountFree(); got != 7 {
		t.Fatalf("CountFree after free = %d, want 7", got)
	}
}

func TestAllocateSkipsAllocatedRun(t *testing.T) {
	arena, rng, err := harness.NewArena(4)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	first, err := a.AllocatePages(1)
	if err != nil {
		t.Fatalf("AllocatePages(1): %v", err)
	}
	// The first page of the range holds the bitmap itself, so the first
	// allocatable page is a.start, one page past rng.Start.
	if first != a.start {
		t.Fatalf("first alloc = %#x, want %#x", first, a.start)
	}

	second, err := a.AllocatePages(2)
	if err != nil {
		t.Fatalf("AllocatePages(2): %v", err)
	}
	if second == first {
		t.Fatal("second allocation reused an already-allocated page")
	}
}

func TestAllocateExhaustion(t *testing.T) {
	arena, rng, err := harness.NewArena(3)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	if _, err := a.AllocatePages(2); err != nil {
		t.Fatalf("AllocatePages(2): %v", err)
	}
	_, err = a.AllocatePages(1)
	var oom *OutOfMemoryError
	if !errors.As(err, &oom) {
		t.Fatalf("expected OutOfMemoryError, got %v", err)
	}
}

func TestDoubleFreeDetected(t *testing.T) {
	arena, rng, err := harness.NewArena(2)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	p, err := a.AllocatePages(1)
	if err != nil {
		t.Fatalf("AllocatePages(1): %v", err)
	}
	if err := a.FreePages(p, 1); err != nil {
		t.Fatalf("first free: %v", err)
	}
	err = a.FreePages(p, 1)
	var dbl *DoubleFreeError
	if !errors.As(err, &dbl) {
		t.Fatalf("expected DoubleFreeError, got %v", err)
	}
}

func TestPageSequenceDoubleFreePanics(t *testing.T) {
	arena, rng, err := harness.NewArena(2)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	seq, err := Acquire(a, 1)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := seq.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from double Free")
		}
	}()
	seq.Free()
}

func TestPageSequenceLeakSurvivesArena(t *testing.T) {
	arena, rng, err := harness.NewArena(3)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	seq, err := Acquire(a, 1)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	addr := seq.Leak()
	if addr != a.start {
		t.Fatalf("leaked addr = %#x, want %#x", addr, a.start)
	}
	if got := a.CountFree(); got != 1 {
		t.Fatalf("CountFree after leak = %d, want 1 (page stays allocated)", got)
	}
}

func TestFreePagesRejectsUnalignedAddress(t *testing.T) {
	arena, rng, err := harness.NewArena(3)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)
	err = a.FreePages(a.start+1, 1)
	var unaligned *UnalignedPageError
	if !errors.As(err, &unaligned) {
		t.Fatalf("expected UnalignedPageError, got %v", err)
	}
}

func TestFreePagesRejectsOutOfRangeAddress(t *testing.T) {
	arena, rng, err := harness.NewArena(3)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer arena.Close()

	a := Initialize(rng)

	err = a.FreePages(rng.Start, 1)
	var notMapped *PageNotMappedError
	if !errors.As(err, &notMapped) {
		t.Fatalf("expected PageNotMappedError for a page before the allocatable start, got %v", err)
	}

	err = a.FreePages(a.start, a.npages+1)
	if !errors.As(err, &notMapped) {
		t.Fatalf("expected PageNotMappedError for a run extending past the end, got %v", err)
	}
}
