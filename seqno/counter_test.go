package seqno

import (
	"sync"
	"testing"
)

func TestCounterAllocateMonotonic(t *testing.T) {
	c := NewCounter(42)

	first := c.Allocate()
	second := c.Allocate()

	if first != 43 {
		t.Fatalf("expected first allocation to be 43, got %d", first)
	}
	if second != 44 {
		t.Fatalf("expected second allocation to be 44, got %d", second)
	}
}

// TestCounterConcurrentAllocateIsAPermutationOfAPrefix exercises spec.md §8's
// property that sequence numbers handed out across all callers, combined
// with skip-callback numbers, form a permutation of a prefix of the natural
// numbers starting at initial+1. This test allocates with no skips, so every
// number in the prefix must appear exactly once.
func TestCounterConcurrentAllocateIsAPermutationOfAPrefix(t *testing.T) {
	const initial = 0
	const n = 2000

	c := NewCounter(initial)
	results := make(chan uint64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Allocate()
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uint64]bool, n)
	for v := range results {
		if seen[v] {
			t.Fatalf("sequence number %d allocated twice", v)
		}
		seen[v] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[initial+uint64(i)] {
			t.Fatalf("sequence numbers are not a permutation of the prefix starting at %d: missing %d", initial+1, initial+uint64(i))
		}
	}
}

func TestCounterCurrentReflectsLastAllocation(t *testing.T) {
	c := NewCounter(0)
	if c.Current() != 0 {
		t.Fatalf("expected fresh counter to report 0, got %d", c.Current())
	}
	c.Allocate()
	c.Allocate()
	if c.Current() != 2 {
		t.Fatalf("expected counter to report 2 after two allocations, got %d", c.Current())
	}
}
