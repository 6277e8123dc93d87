package hart

import (
	"sync"
	"testing"
)

func TestReleaseSecondariesUnblocksAwaitRelease(t *testing.T) {
	c := NewCoordinator(1)
	done := make(chan struct{})
	go func() {
		c.AwaitRelease()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("AwaitRelease returned before ReleaseSecondaries was called")
	default:
	}

	c.ReleaseSecondaries(0x1000000)
	<-done
}

func TestClaimStackSlotDecrementsByStackSlotSize(t *testing.T) {
	c := NewCoordinator(1)
	c.ReleaseSecondaries(0x1000000)

	first := c.ClaimStackSlot()
	second := c.ClaimStackSlot()
	if first-second != StackSlotSize {
		t.Fatalf("slots not spaced by StackSlotSize: first=%#x second=%#x", first, second)
	}
}

func TestRendezvousReleasesAllHarts(t *testing.T) {
	const coreCount = 4
	c := NewCoordinator(coreCount)

	var wg sync.WaitGroup
	for hartID := uint64(1); hartID < coreCount; hartID++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			c.Rendezvous(id)
		}(hartID)
	}

	c.Rendezvous(0)
	wg.Wait()
}

func TestIsPrimary(t *testing.T) {
	if !IsPrimary(0) {
		t.Fatal("hart 0 should be primary")
	}
	if IsPrimary(1) {
		t.Fatal("hart 1 should not be primary")
	}
}
