package hashtable

import (
	"runtime"
	"sync/atomic"

	"github.com/dreamware/lockfree/hazard"
	"github.com/dreamware/lockfree/seqno"
	"github.com/dreamware/lockfree/sortedlist"
)

// growthLoadFactor is the average per-bucket chain length that triggers a
// doubling of the newest generation's bucket array.
const growthLoadFactor = 2.0

// Table is a resizable, lock-free hash table keyed by K. The zero value is
// not usable; construct one with Create.
type Table[K any, V any] struct {
	newest atomic.Pointer[generation[K, V]]

	hash     HashFunc[K]
	cmp      sortedlist.Comparator[K]
	registry *hazard.Registry
	counter  *seqno.Counter
	onSkip   seqno.SkipFunc

	count          atomic.Int64
	growing        atomic.Bool
	resizeRequests atomic.Int32
	pendingInserts atomic.Int32
}

// Create builds a Table with initialBuckets buckets, rounded up to the next
// power of two. hash and cmp are required; counter and onSkip follow the
// same rules as sortedlist.NewList, since each bucket is itself a
// sortedlist.List sharing them.
func Create[K any, V any](registry *hazard.Registry, hash HashFunc[K], cmp sortedlist.Comparator[K], initialBuckets int, counter *seqno.Counter, onSkip seqno.SkipFunc) (*Table[K, V], error) {
	if registry == nil || hash == nil || cmp == nil {
		return nil, ErrNullArgument
	}
	if onSkip != nil && counter == nil {
		return nil, sortedlist.ErrMisconfigured
	}
	if initialBuckets < 1 {
		return nil, ErrInvalidBucketCount
	}

	size := nextPowerOfTwo(initialBuckets)
	buckets := make([]*sortedlist.List[K, V], size)
	for i := range buckets {
		lst, err := sortedlist.NewList[K, V](registry, cmp, counter, onSkip)
		if err != nil {
			return nil, err
		}
		buckets[i] = lst
	}

	tb := &Table[K, V]{
		hash:     hash,
		cmp:      cmp,
		registry: registry,
		counter:  counter,
		onSkip:   onSkip,
	}
	tb.newest.Store(&generation[K, V]{buckets: buckets, mask: uint64(size - 1)})
	return tb, nil
}

// Count returns the number of live keys across all generations.
func (tb *Table[K, V]) Count() int64 {
	return tb.count.Load()
}

// --- resize barrier, mirroring sortedlist.List's write barrier -------------

func (tb *Table[K, V]) enterWrite() {
	for {
		tb.pendingInserts.Add(1)
		if tb.resizeRequests.Load() == 0 {
			return
		}
		tb.pendingInserts.Add(-1)
		for tb.resizeRequests.Load() != 0 {
			runtime.Gosched()
		}
	}
}

func (tb *Table[K, V]) exitWrite() {
	tb.pendingInserts.Add(-1)
}

// lockForResize is only called from maybeGrow, inside the enterWrite of the
// Insert or SetValue that triggered the growth, so it waits until that call
// is the only write still pending.
func (tb *Table[K, V]) lockForResize() {
	tb.resizeRequests.Add(1)
	for tb.pendingInserts.Load() > 1 {
		runtime.Gosched()
	}
}

func (tb *Table[K, V]) unlockForResize() {
	tb.resizeRequests.Add(-1)
}

// maybeGrow doubles the newest generation's bucket count once its average
// chain length crosses growthLoadFactor. At most one goroutine performs a
// given growth; others observe the new generation on their next read of
// newest.
func (tb *Table[K, V]) maybeGrow() {
	gen := tb.newest.Load()
	if float64(tb.count.Load())/float64(len(gen.buckets)) < growthLoadFactor {
		return
	}
	if !tb.growing.CompareAndSwap(false, true) {
		return
	}
	defer tb.growing.Store(false)

	gen = tb.newest.Load()
	if float64(tb.count.Load())/float64(len(gen.buckets)) < growthLoadFactor {
		return
	}

	newSize := len(gen.buckets) * 2
	buckets := make([]*sortedlist.List[K, V], newSize)
	for i := range buckets {
		lst, err := sortedlist.NewList[K, V](tb.registry, tb.cmp, tb.counter, tb.onSkip)
		if err != nil {
			panic("hashtable: generation construction failed with previously validated arguments: " + err.Error())
		}
		buckets[i] = lst
	}
	newGen := &generation[K, V]{buckets: buckets, mask: uint64(newSize - 1), older: gen}

	tb.lockForResize()
	tb.newest.Store(newGen)
	tb.unlockForResize()
}

// --- operations --------------------------------------------------------

// Insert links a new node carrying key and value into the newest
// generation. Returns ErrKeyAlreadyExists if key is present in any
// generation.
func (tb *Table[K, V]) Insert(t *hazard.Thread, key K, value V, cleanup func(K, V)) (uint64, error) {
	if t == nil {
		return 0, ErrNullArgument
	}
	tb.enterWrite()
	defer tb.exitWrite()

	gen := tb.newest.Load()
	for older := gen.older; older != nil; older = older.older {
		node, err := older.bucketFor(tb.hash(key)).FindKey(t, key)
		if err == nil {
			node.Release()
			if tb.counter != nil {
				seq := tb.counter.Allocate()
				if tb.onSkip != nil {
					tb.onSkip(seq)
				}
			}
			return 0, ErrKeyAlreadyExists
		}
		if err != sortedlist.ErrNotFound {
			return 0, err
		}
	}

	seq, err := gen.bucketFor(tb.hash(key)).Insert(t, key, value, cleanup)
	if err != nil {
		return 0, err
	}
	tb.count.Add(1)
	tb.maybeGrow()
	return seq, nil
}

// Find returns the node currently holding key, with an extra reference the
// caller must release, searching generations newest-first.
func (tb *Table[K, V]) Find(t *hazard.Thread, key K) (*sortedlist.Node[K, V], error) {
	if t == nil {
		return nil, ErrNullArgument
	}
	for gen := tb.newest.Load(); gen != nil; gen = gen.older {
		node, err := gen.bucketFor(tb.hash(key)).FindKey(t, key)
		if err == nil {
			return node, nil
		}
		if err != sortedlist.ErrNotFound {
			return nil, err
		}
	}
	return nil, ErrNotFound
}

// Delete removes whichever generation currently holds key.
func (tb *Table[K, V]) Delete(t *hazard.Thread, key K) (uint64, error) {
	if t == nil {
		return 0, ErrNullArgument
	}
	for gen := tb.newest.Load(); gen != nil; gen = gen.older {
		seq, err := gen.bucketFor(tb.hash(key)).DeleteKey(t, key)
		if err == nil {
			tb.count.Add(-1)
			return seq, nil
		}
		if err != sortedlist.ErrNotFound {
			return 0, err
		}
	}
	return 0, ErrNotFound
}

// Remove behaves like Delete but returns the removed node, kept alive with
// an extra reference the caller owns until it calls node.Release.
func (tb *Table[K, V]) Remove(t *hazard.Thread, key K) (*sortedlist.Node[K, V], uint64, error) {
	if t == nil {
		return nil, 0, ErrNullArgument
	}
	for gen := tb.newest.Load(); gen != nil; gen = gen.older {
		node, seq, err := gen.bucketFor(tb.hash(key)).RemoveKey(t, key)
		if err == nil {
			tb.count.Add(-1)
			return node, seq, nil
		}
		if err != sortedlist.ErrNotFound {
			return nil, 0, err
		}
	}
	return nil, 0, ErrNotFound
}

// SetValue replaces whatever node currently holds key with newNode across
// the whole table, inserting fresh into the newest generation if key is
// absent everywhere. To preserve invariant H1 it deletes any copy found in
// an older generation before writing the newest copy (H3). On a
// replacement the displaced node is returned with an extra reference the
// caller must release; on a fresh insert the returned node is nil.
func (tb *Table[K, V]) SetValue(t *hazard.Thread, key K, newNode *sortedlist.Node[K, V]) (*sortedlist.Node[K, V], uint64, error) {
	if t == nil || newNode == nil {
		return nil, 0, ErrNullArgument
	}
	tb.enterWrite()
	defer tb.exitWrite()

	gen := tb.newest.Load()
	for older := gen.older; older != nil; older = older.older {
		if _, err := older.bucketFor(tb.hash(key)).DeleteKey(t, key); err != nil && err != sortedlist.ErrNotFound {
			return nil, 0, err
		}
	}

	old, seq, err := gen.bucketFor(tb.hash(key)).SetValue(t, key, newNode)
	if err != nil {
		return nil, 0, err
	}
	if old == nil {
		tb.count.Add(1)
		tb.maybeGrow()
	}
	return old, seq, nil
}

// ForEachBucket calls fn once for every bucket in every generation, newest
// first. It takes no lock of its own beyond what fn does internally (a
// caller enumerating a bucket's contents should wrap its access in that
// bucket's own LockWrites/UnlockWrites); it exists so callers like
// storage.LockFreeStore can build a full-table snapshot without Table
// exposing its generation chain directly.
func (tb *Table[K, V]) ForEachBucket(fn func(bucket *sortedlist.List[K, V])) {
	for gen := tb.newest.Load(); gen != nil; gen = gen.older {
		for _, bucket := range gen.buckets {
			fn(bucket)
		}
	}
}

// Destroy releases the table's own reference on every remaining node across
// every generation. Not safe to call concurrently with any other Table
// method.
func (tb *Table[K, V]) Destroy() {
	for gen := tb.newest.Load(); gen != nil; gen = gen.older {
		for _, bucket := range gen.buckets {
			bucket.Destroy()
		}
	}
}
