// This file holds package storage's extended documentation; see
// lockfree_store.go for the implementation itself.
//
// # Overview
//
// LockFreeStore gives package hashtable a concrete, realistic consumer
// beyond its own benchmark and stress tests: a byte-oriented key-value
// store whose Get/Put/Delete/List/Stats surface is exercised over HTTP by
// cmd/node.
//
// # Concurrency
//
//   - No lock is held across an operation's lifetime
//   - Readers never block on writers; writers on different keys never
//     block each other, except that Put spins briefly while the table
//     swaps in a new generation during a resize
//   - List and Stats briefly lock each bucket in turn while enumerating it,
//     the same write-barrier contract package sortedlist requires of any
//     caller enumerating a list
//
// # Memory
//
// All data lives on the Go heap; a LockFreeStore is never persisted and
// starts empty every process. Put and Get both copy their byte slices, so
// callers are free to reuse or mutate a buffer after either call returns.
//
// # Usage
//
//	store := storage.NewLockFreeStore()
//	if err := store.Put("user:123", []byte(`{"name":"Alice"}`)); err != nil {
//	    log.Fatalf("failed to store: %v", err)
//	}
//	value, err := store.Get("user:123")
//	if err == storage.ErrKeyNotFound {
//	    log.Println("not found")
//	}
package storage
