// Package seqno implements the shared sequence-counter mechanism that stamps
// every mutation applied by a sortedlist.List or hashtable.Table with a
// monotonically increasing order number, and reports numbers that were
// allocated but never applied.
//
// A Counter is never owned by the list or table that uses it: several lists
// can share one Counter (and therefore a joint total order) by each holding
// a pointer to the same instance. This mirrors the "global-ish sequence
// counter" pattern described in the design notes this package is grounded
// on — not global, but externally owned and passed in by reference.
package seqno
