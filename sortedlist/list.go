package sortedlist

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/dreamware/lockfree/hazard"
	"github.com/dreamware/lockfree/seqno"
)

// List is a lock-free ordered singly linked list keyed by K. The zero value
// is not usable; construct one with NewList.
type List[K any, V any] struct {
	head          *Node[K, V]
	registry      *hazard.Registry
	cmp           Comparator[K]
	counter       *seqno.Counter
	onSkip        seqno.SkipFunc
	lockRequests  atomic.Int32
	pendingWrites atomic.Int32
}

// NewList constructs an empty List. registry and cmp are required. counter
// is optional: without one, every mutation reports a sequence number of 0.
// onSkip, if supplied, requires a non-nil counter — otherwise there is
// nothing meaningful to report a skipped number from.
func NewList[K any, V any](registry *hazard.Registry, cmp Comparator[K], counter *seqno.Counter, onSkip seqno.SkipFunc) (*List[K, V], error) {
	if registry == nil || cmp == nil {
		return nil, ErrNullArgument
	}
	if onSkip != nil && counter == nil {
		return nil, ErrMisconfigured
	}
	var zeroK K
	var zeroV V
	return &List[K, V]{
		head:     NewNode[K, V](zeroK, zeroV, nil),
		registry: registry,
		cmp:      cmp,
		counter:  counter,
		onSkip:   onSkip,
	}, nil
}

func (l *List[K, V]) allocate() uint64 {
	if l.counter == nil {
		return 0
	}
	return l.counter.Allocate()
}

func (l *List[K, V]) skip(seq uint64) {
	if l.onSkip != nil {
		l.onSkip(seq)
	}
}

// freeNode is the hazard.Reclaim callback for every node this list retires.
// It drops the list's own reference; cleanup, if any, runs only once no
// other reference (a caller holding a FindKey/RemoveKey handle) remains.
func (l *List[K, V]) freeNode(ptr unsafe.Pointer) {
	(*Node[K, V])(ptr).release()
}

// --- write barrier -----------------------------------------------------

// LockWrites blocks new mutations from entering their critical section and
// waits for any already in flight to finish. Calls nest: every LockWrites
// must be matched by an UnlockWrites.
func (l *List[K, V]) LockWrites() {
	l.lockRequests.Add(1)
	for l.pendingWrites.Load() != 0 {
		runtime.Gosched()
	}
}

// UnlockWrites releases one LockWrites call.
func (l *List[K, V]) UnlockWrites() {
	l.lockRequests.Add(-1)
}

// enterMutation marks one mutation as in flight, yielding to any active
// write barrier before proceeding.
func (l *List[K, V]) enterMutation() {
	for {
		l.pendingWrites.Add(1)
		if l.lockRequests.Load() == 0 {
			return
		}
		l.pendingWrites.Add(-1)
		for l.lockRequests.Load() != 0 {
			runtime.Gosched()
		}
	}
}

func (l *List[K, V]) exitMutation() {
	l.pendingWrites.Add(-1)
}

// --- traversal -----------------------------------------------------------

// locateResult holds a (predecessor, current) pair found during a traversal,
// each still published as a hazard until release is called.
type locateResult[K any, V any] struct {
	pred, curr         *Node[K, V]
	predSlot, currSlot hazard.Slot
}

func (r *locateResult[K, V]) release(t *hazard.Thread) {
	if r.predSlot >= 0 {
		t.Release(r.predSlot)
	}
	if r.currSlot >= 0 {
		t.Release(r.currSlot)
	}
}

// locate walks from head to the first node whose key is >= key, publishing
// hazards on both the predecessor and that node before returning them.
// Along the way it physically unlinks and retires any logically deleted
// node it passes, on behalf of whichever goroutine deleted it.
func (l *List[K, V]) locate(t *hazard.Thread, key K) (locateResult[K, V], error) {
restart:
	pred := l.head
	predSlot, err := t.Acquire(unsafe.Pointer(pred))
	if err != nil {
		return locateResult[K, V]{predSlot: -1, currSlot: -1}, err
	}
	predLink := pred.loadLink()
	curr := predLink.next
	currSlot := hazard.Slot(-1)
	if curr != nil {
		currSlot, err = t.Acquire(unsafe.Pointer(curr))
		if err != nil {
			t.Release(predSlot)
			return locateResult[K, V]{predSlot: -1, currSlot: -1}, err
		}
	}

	for curr != nil {
		freshPredLink := pred.loadLink()
		if freshPredLink.next != curr || freshPredLink.marked {
			if currSlot >= 0 {
				t.Release(currSlot)
			}
			t.Release(predSlot)
			goto restart
		}

		currLink := curr.loadLink()
		if currLink.marked {
			newPredLink := &link[K, V]{next: currLink.next, marked: false}
			if pred.linkPtr.CompareAndSwap(freshPredLink, newPredLink) {
				t.Reclaim(unsafe.Pointer(curr), l.freeNode)
			}
			succ := currLink.next
			t.Release(currSlot)
			curr = succ
			if curr == nil {
				currSlot = -1
				break
			}
			currSlot, err = t.Acquire(unsafe.Pointer(curr))
			if err != nil {
				t.Release(predSlot)
				return locateResult[K, V]{predSlot: -1, currSlot: -1}, err
			}
			continue
		}

		if l.cmp(curr.key, key) >= 0 {
			return locateResult[K, V]{pred: pred, curr: curr, predSlot: predSlot, currSlot: currSlot}, nil
		}

		t.Release(predSlot)
		pred = curr
		predSlot = currSlot
		curr = currLink.next
		if curr == nil {
			currSlot = -1
			break
		}
		currSlot, err = t.Acquire(unsafe.Pointer(curr))
		if err != nil {
			t.Release(predSlot)
			return locateResult[K, V]{predSlot: -1, currSlot: -1}, err
		}
	}

	return locateResult[K, V]{pred: pred, curr: nil, predSlot: predSlot, currSlot: -1}, nil
}

// --- mutators --------------------------------------------------------------

// Insert links a new node carrying key and value. cleanup, if non-nil, is
// invoked exactly once when the node is eventually reclaimed and
// unreferenced. Returns ErrKeyAlreadyExists if key is already present.
func (l *List[K, V]) Insert(t *hazard.Thread, key K, value V, cleanup func(K, V)) (uint64, error) {
	if t == nil {
		return 0, ErrNullArgument
	}
	for {
		seq := l.allocate()
		l.enterMutation()
		loc, err := l.locate(t, key)
		if err != nil {
			l.exitMutation()
			return 0, err
		}
		if loc.curr != nil && l.cmp(loc.curr.key, key) == 0 {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			return 0, ErrKeyAlreadyExists
		}

		node := NewNode(key, value, cleanup)
		node.linkPtr.Store(&link[K, V]{next: loc.curr})
		predLink := loc.pred.loadLink()
		ok := predLink.next == loc.curr && !predLink.marked &&
			loc.pred.linkPtr.CompareAndSwap(predLink, &link[K, V]{next: node, marked: predLink.marked})
		loc.release(t)
		l.exitMutation()
		if !ok {
			l.skip(seq)
			continue
		}
		node.seqNo.Store(seq)
		return seq, nil
	}
}

// deleteMatching is the shared retry loop behind DeleteItem and DeleteKey:
// it locates key, confirms match accepts the node found, marks it deleted,
// opportunistically finishes the physical unlink, and retires it.
func (l *List[K, V]) deleteMatching(t *hazard.Thread, key K, match func(*Node[K, V]) bool) (uint64, error) {
	for {
		seq := l.allocate()
		l.enterMutation()
		loc, err := l.locate(t, key)
		if err != nil {
			l.exitMutation()
			return 0, err
		}
		if loc.curr == nil || l.cmp(loc.curr.key, key) != 0 || !match(loc.curr) {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			return 0, ErrNotFound
		}

		curr := loc.curr
		currLink := curr.loadLink()
		if currLink.marked || !curr.linkPtr.CompareAndSwap(currLink, &link[K, V]{next: currLink.next, marked: true}) {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			continue
		}

		predLink := loc.pred.loadLink()
		if predLink.next == curr && !predLink.marked &&
			loc.pred.linkPtr.CompareAndSwap(predLink, &link[K, V]{next: currLink.next, marked: predLink.marked}) {
			t.Reclaim(unsafe.Pointer(curr), l.freeNode)
		}
		loc.release(t)
		l.exitMutation()
		curr.seqNo.Store(seq)
		return seq, nil
	}
}

// DeleteItem removes node if it is still linked at its key's position.
// Returns ErrNotFound if node has already been removed or replaced (for
// instance by a concurrent SetValue).
func (l *List[K, V]) DeleteItem(t *hazard.Thread, node *Node[K, V]) (uint64, error) {
	if t == nil || node == nil {
		return 0, ErrNullArgument
	}
	return l.deleteMatching(t, node.key, func(curr *Node[K, V]) bool { return curr == node })
}

// DeleteKey removes whichever node currently holds key. Returns ErrNotFound
// if key is absent.
func (l *List[K, V]) DeleteKey(t *hazard.Thread, key K) (uint64, error) {
	if t == nil {
		return 0, ErrNullArgument
	}
	return l.deleteMatching(t, key, func(*Node[K, V]) bool { return true })
}

// RemoveKey behaves like DeleteKey but returns the removed node, kept alive
// with an extra reference the caller owns until it calls node.Release.
func (l *List[K, V]) RemoveKey(t *hazard.Thread, key K) (*Node[K, V], uint64, error) {
	if t == nil {
		return nil, 0, ErrNullArgument
	}
	for {
		seq := l.allocate()
		l.enterMutation()
		loc, err := l.locate(t, key)
		if err != nil {
			l.exitMutation()
			return nil, 0, err
		}
		if loc.curr == nil || l.cmp(loc.curr.key, key) != 0 {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			return nil, 0, ErrNotFound
		}

		curr := loc.curr
		currLink := curr.loadLink()
		if currLink.marked || !curr.linkPtr.CompareAndSwap(currLink, &link[K, V]{next: currLink.next, marked: true}) {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			continue
		}

		curr.Acquire()
		predLink := loc.pred.loadLink()
		if predLink.next == curr && !predLink.marked &&
			loc.pred.linkPtr.CompareAndSwap(predLink, &link[K, V]{next: currLink.next, marked: predLink.marked}) {
			t.Reclaim(unsafe.Pointer(curr), l.freeNode)
		}
		loc.release(t)
		l.exitMutation()
		curr.seqNo.Store(seq)
		return curr, seq, nil
	}
}

// FindKey returns the node currently holding key, with an extra reference
// the caller must release. Returns ErrNotFound if key is absent or if the
// matching node's cleanup has already run (a race against a concurrent
// delete that this call lost).
func (l *List[K, V]) FindKey(t *hazard.Thread, key K) (*Node[K, V], error) {
	if t == nil {
		return nil, ErrNullArgument
	}
	loc, err := l.locate(t, key)
	if err != nil {
		return nil, err
	}
	defer loc.release(t)
	if loc.curr == nil || l.cmp(loc.curr.key, key) != 0 {
		return nil, ErrNotFound
	}
	if !loc.curr.tryAcquire() {
		return nil, ErrNotFound
	}
	return loc.curr, nil
}

// SetValue replaces whatever node currently holds key with newNode,
// inserting newNode fresh if key is absent. On a replacement, the displaced
// node is returned with an extra reference the caller must release; on a
// fresh insert, the returned node is nil. Setting a node in its own place
// (pointer equality) is a no-op beyond allocating a sequence number.
func (l *List[K, V]) SetValue(t *hazard.Thread, key K, newNode *Node[K, V]) (*Node[K, V], uint64, error) {
	if t == nil || newNode == nil {
		return nil, 0, ErrNullArgument
	}
	for {
		seq := l.allocate()
		l.enterMutation()
		loc, err := l.locate(t, key)
		if err != nil {
			l.exitMutation()
			return nil, 0, err
		}

		if loc.curr == nil || l.cmp(loc.curr.key, key) != 0 {
			predLink := loc.pred.loadLink()
			newNode.linkPtr.Store(&link[K, V]{next: loc.curr})
			ok := predLink.next == loc.curr && !predLink.marked &&
				loc.pred.linkPtr.CompareAndSwap(predLink, &link[K, V]{next: newNode, marked: predLink.marked})
			loc.release(t)
			l.exitMutation()
			if !ok {
				l.skip(seq)
				continue
			}
			newNode.seqNo.Store(seq)
			return nil, seq, nil
		}

		old := loc.curr
		if old == newNode {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			return nil, seq, nil
		}

		oldLink := old.loadLink()
		if oldLink.marked || !old.linkPtr.CompareAndSwap(oldLink, &link[K, V]{next: oldLink.next, marked: true}) {
			loc.release(t)
			l.exitMutation()
			l.skip(seq)
			continue
		}

		// old is now claimed: no other mutator's mark CAS on old can
		// succeed, so whichever of our splice below or a concurrent
		// traversal's helper-unlink wins is the sole retirer of old.
		newNode.linkPtr.Store(&link[K, V]{next: oldLink.next})
		predLink := loc.pred.loadLink()
		spliced := predLink.next == old && !predLink.marked &&
			loc.pred.linkPtr.CompareAndSwap(predLink, &link[K, V]{next: newNode, marked: predLink.marked})
		if spliced {
			old.Acquire()
			t.Reclaim(unsafe.Pointer(old), l.freeNode)
		}
		loc.release(t)
		l.exitMutation()
		if !spliced {
			l.skip(seq)
			continue
		}
		newNode.seqNo.Store(seq)
		return old, seq, nil
	}
}

// --- enumeration under the write barrier ------------------------------------

// GetCount returns the number of live nodes. It requires an active
// LockWrites barrier and returns ErrNotLocked otherwise.
func (l *List[K, V]) GetCount(t *hazard.Thread) (int, error) {
	if t == nil {
		return 0, ErrNullArgument
	}
	if l.lockRequests.Load() == 0 {
		return 0, ErrNotLocked
	}
	count := 0
	for n := l.head.loadLink().next; n != nil; n = n.loadLink().next {
		if n.loadLink().marked {
			continue
		}
		count++
	}
	return count, nil
}

// GetAll fills buf, which must have exactly List's current count of
// elements, with every live node in key order. Each returned node carries an
// extra reference the caller must release. Requires an active LockWrites
// barrier.
func (l *List[K, V]) GetAll(t *hazard.Thread, buf []*Node[K, V]) error {
	if t == nil {
		return ErrNullArgument
	}
	if l.lockRequests.Load() == 0 {
		return ErrNotLocked
	}
	count, _ := l.GetCount(t)
	if len(buf) != count {
		return ErrWrongSize
	}
	i := 0
	for n := l.head.loadLink().next; n != nil; n = n.loadLink().next {
		if n.loadLink().marked {
			continue
		}
		n.Acquire()
		buf[i] = n
		i++
	}
	return nil
}

// Destroy releases the list's own reference on every remaining node. It is
// not safe to call concurrently with any other List method. If a cycle is
// detected — which should only happen under caller misuse, such as linking
// the same node into two lists — it stops walking and leaves the remainder
// unreclaimed rather than loop forever.
func (l *List[K, V]) Destroy() {
	visited := make(map[*Node[K, V]]struct{})
	n := l.head.loadLink().next
	for n != nil {
		if _, ok := visited[n]; ok {
			return
		}
		visited[n] = struct{}{}
		next := n.loadLink().next
		n.release()
		n = next
	}
}
