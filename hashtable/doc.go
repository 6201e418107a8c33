// Package hashtable implements a resizable, lock-free hash table built on
// top of package sortedlist: each bucket is itself a sortedlist.List, and
// growth is handled by generations rather than by migrating existing
// buckets.
//
// # Overview
//
// A Table holds a pointer to its newest generation — an array of bucket
// lists sized as a power of two — plus a chain of older generations behind
// it, oldest last. Every Insert and the insert-or-replace half of SetValue
// write only into the newest generation's bucket. Find, Delete, Remove, and
// the delete-old-copy half of SetValue search the newest generation first
// and cascade into older ones only on a miss, so a key that predates the
// table's last resize is still reachable without ever rewriting it.
//
// # Generation invariants
//
//	H1 — a live key appears in at most one generation's bucket list at a time.
//	H2 — lookups always consult generations newest-first and stop at the first hit.
//	H3 — SetValue deletes any older-generation copy of a key before writing
//	     the newest copy, so H1 is never transiently violated by a replace.
//
// # Growth
//
//	newest ──► generation (2N buckets) ──older──► generation (N buckets) ──older──► nil
//
// Growth doubles the bucket count once the newest generation's average
// chain length crosses a threshold. A short resize barrier (the same
// enter/exit-mutation technique sortedlist.List uses for LockWrites)
// ensures no Insert or SetValue call is caught mid-flight between reading
// the newest generation and writing into it when the swap happens —
// without that barrier, two inserts of the same key that each captured a
// different "newest" generation across a resize could both succeed,
// violating H1.
//
// # Concurrency model
//
// Find, Delete, Remove, Insert, and SetValue may be called concurrently from
// any number of registered hazard.Thread handles, including concurrently
// with a resize. Find, Delete, and Remove never block; Insert and SetValue
// spin briefly while a resize swaps in a new generation.
package hashtable
