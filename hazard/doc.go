// Package hazard implements hazard-pointer based safe memory reclamation,
// the scheme that lets sortedlist and hashtable dereference shared nodes
// from any number of goroutines without locks, while guaranteeing that no
// goroutine ever dereferences memory that has already been freed.
//
// # Overview
//
// Every goroutine that wants to walk a lock-free structure first calls
// Register to obtain a *Thread. Before dereferencing a pointer it read from
// shared memory, it publishes that pointer into one of its Thread's hazard
// slots via Acquire; after re-reading the shared location and confirming the
// pointer is still current, the goroutine may safely dereference it, because
// no other goroutine will free a pointer that appears in any published slot.
// When a goroutine unlinks a node, it does not free it directly — it hands
// the pointer to Reclaim, which defers the actual free until a scan confirms
// no thread record still has that address published.
//
// # Architecture
//
//	                 Registry
//	           (lock-free linked list)
//	     ┌──────────┬──────────┬──────────┐
//	     │  Thread   │  Thread   │  Thread   │  (one record per goroutine
//	     │  record   │  record   │  record   │   that called Register)
//	     ├──────────┤├──────────┤├──────────┤
//	     │ slots[6] ││ slots[6] ││ slots[6] │   published pointers
//	     │ retired  ││ retired  ││ retired  │   pointers awaiting free
//	     └──────────┘└──────────┘└──────────┘
//
// # Reclamation
//
// Reclaim appends to the calling Thread's retired list; once that list's
// length reaches the registry's reclaim threshold, the calling goroutine
// scans every hazard slot of every registered thread record (including
// freed-but-not-yet-reused ones — a concurrently appended record cannot
// already hold a hazard on something retired before it existed) into a
// snapshot set, then frees every retired pointer not present in that set.
// Pointers still published are kept for the next scan. This is the
// classical Michael scheme described in spec.md §4.B.
//
// # Concurrency model
//
// Acquire, Release, and Reclaim are non-blocking. Registry append (used by
// Register) is a lock-free compare-and-swap onto the head of the registry's
// linked list. A *Thread handle is thread-affine in use — obtained on one
// goroutine, it must only be used from that goroutine — even though nothing
// prevents handing it to another in the type system, exactly as spec.md §5
// specifies.
package hazard
