package sortedlist

import "sync/atomic"

// link is the immutable payload behind a Node's atomic pointer: the node's
// current successor plus whether the owning node is logically deleted. The
// two travel together so that a single CompareAndSwap can either advance a
// successor or flip the deletion mark without the two ever being observed
// independently — the Go-idiomatic replacement for stealing the low bit of a
// raw pointer, which spec.md's source language does and Go cannot safely do
// (package unsafe offers no portable pointer tagging).
type link[K any, V any] struct {
	next   *Node[K, V]
	marked bool
}

// Node is one entry in a List. A Node retrieved from FindKey or RemoveKey
// stays valid — Key, Value, and SeqNo keep returning their original values —
// until the caller's own Release call drops the last reference.
type Node[K any, V any] struct {
	key      K
	value    V
	refcount atomic.Int32
	linkPtr  atomic.Pointer[link[K, V]]
	seqNo    atomic.Uint64
	cleanup  func(K, V)
}

// NewNode allocates a Node with a single reference held on the caller's
// behalf. Passing it to List.SetValue transfers that reference to the list
// (List.Insert builds its own node from a key and value); cleanup, if non-nil, runs exactly once, when the
// node's refcount reaches zero after it has been unlinked and is no longer
// hazarded by any registered thread.
func NewNode[K any, V any](key K, value V, cleanup func(K, V)) *Node[K, V] {
	n := &Node[K, V]{key: key, value: value, cleanup: cleanup}
	n.refcount.Store(1)
	n.linkPtr.Store(&link[K, V]{})
	return n
}

// Key returns the node's key. Safe to call for the lifetime of any reference
// the caller holds.
func (n *Node[K, V]) Key() K { return n.key }

// Value returns the value the node was constructed with. It never changes:
// SetValue replaces the whole node rather than its value.
func (n *Node[K, V]) Value() V { return n.value }

// SeqNo returns the sequence number stamped on this node by the most recent
// mutation that linked or removed it, or 0 if it has not yet been linked.
func (n *Node[K, V]) SeqNo() uint64 { return n.seqNo.Load() }

// Acquire adds a reference, keeping the node alive until a matching Release.
// Use it to retain a node returned from FindKey, RemoveKey, or GetAll beyond
// the scope in which it was obtained.
func (n *Node[K, V]) Acquire() {
	n.refcount.Add(1)
}

// Release drops a reference. When the count reaches zero, cleanup (if any)
// runs exactly once, synchronously, on the releasing goroutine.
func (n *Node[K, V]) Release() {
	n.release()
}

func (n *Node[K, V]) release() {
	if n.refcount.Add(-1) == 0 && n.cleanup != nil {
		n.cleanup(n.key, n.value)
	}
}

// tryAcquire adds a reference only if the node has not already dropped to
// zero, preventing a concurrent finder from resurrecting a node whose
// cleanup has already run. Returns false if the node is already gone.
func (n *Node[K, V]) tryAcquire() bool {
	for {
		cur := n.refcount.Load()
		if cur <= 0 {
			return false
		}
		if n.refcount.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (n *Node[K, V]) loadLink() *link[K, V] { return n.linkPtr.Load() }

// Comparator orders keys the way List needs: negative if a sorts before b,
// zero if equal, positive if a sorts after b.
type Comparator[K any] func(a, b K) int
