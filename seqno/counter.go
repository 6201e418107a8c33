package seqno

import "sync/atomic"

// Counter is a monotonically increasing 64-bit sequence number source.
//
// Every operation that semantically changes the state of a sortedlist.List
// or hashtable.Table allocates a number from a Counter by calling Allocate,
// regardless of whether the operation ultimately succeeds. If the operation
// does not apply a change (an insert conflict, a delete of an absent key),
// the allocated number is skipped; callers that register a skip callback
// learn about the gap so they can fill it in an externally-observed total
// order (a replication log, a sequencer).
//
// Counter is safe for concurrent use by any number of goroutines, and may
// be shared across multiple lists and tables to give them a joint order.
type Counter struct {
	value uint64
}

// NewCounter returns a Counter whose first Allocate call returns initial+1.
func NewCounter(initial uint64) *Counter {
	return &Counter{value: initial}
}

// Allocate returns the next sequence number. Concurrent callers never
// observe the same number twice, and the returned values are increasing in
// the order the underlying fetch-add was linearized, not in the order
// Allocate was called.
func (c *Counter) Allocate() uint64 {
	return atomic.AddUint64(&c.value, 1)
}

// Current returns the most recently allocated number without allocating a
// new one. It is intended for diagnostics; it is not safe to treat as "the
// number of applied operations" since allocated numbers may be skipped.
func (c *Counter) Current() uint64 {
	return atomic.LoadUint64(&c.value)
}

// SkipFunc is invoked with a sequence number that was allocated but whose
// corresponding operation did not apply a change. It may be invoked from any
// goroutine that happens to be performing the skipped operation, and must
// not call back into the list or table that invoked it while holding any
// lock that operation would need (the list and table implementations in
// this module never hold one across the callback, so reentrant calls into
// the same list/table are always safe).
type SkipFunc func(skipped uint64)
