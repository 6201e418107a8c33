// Package sortedlist implements a Harris-Michael ordered, lock-free linked
// list: the "heart" of this module, carrying roughly half of its algorithmic
// complexity.
//
// # Overview
//
// A List[K, V] keeps its Node[K, V] entries reachable from a head sentinel
// in strictly increasing key order. Readers (FindKey, a traversal inside
// Insert/Delete/SetValue) never block and never take a lock; they instead
// publish hazard.Thread slots for every node they are about to dereference,
// so a concurrent deletion on another goroutine can never free memory a
// reader is mid-traversal through. Deletions are logical first (a node is
// marked, not instantly unlinked) and physical second (a predecessor's link
// is compare-and-swapped past the marked node) — any goroutine that notices
// a marked node while traversing helps finish the physical unlink, so a
// slow deleter can never wedge a fast reader.
//
// # Concurrency model
//
//	Traversal (locate):
//	  head ──► A ──► B(marked) ──► C ──► nil
//	            ▲      │
//	         pred     curr, found marked: CAS head.. err, pred.next
//	                  from B to C, hand B to the hazard registry, continue
//	                  from C.
//
// Every mutator allocates a sequence number from the shared seqno.Counter
// before attempting its compare-and-swap, and reports the number as skipped
// if the operation does not end up applying a change — see seqno's package
// doc for why this is useful to external consumers.
//
// # Write barrier
//
// LockWrites/UnlockWrites let a single goroutine pause all mutators (new
// mutators spin until the barrier clears) so GetCount/GetAll can walk the
// list without any hazard-pointer protection at all — invariant L4
// guarantees no mutator is mid-CAS while the barrier is held, so a plain
// pointer-chase is safe. Enumeration outside a held barrier is refused with
// ErrNotLocked, matching spec.md's explicit non-goal of "iteration under
// concurrent mutation."
package sortedlist
