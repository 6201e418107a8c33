package hazard

import (
	"errors"
	"sync/atomic"
	"unsafe"
)

// MaxHazardSlots bounds the number of pointers a single thread record can
// publish simultaneously. The sorted-list traversal in package sortedlist
// needs at most three live hazards at once (predecessor, current, and
// successor) with headroom for the in-flight retry when a physical unlink's
// CAS loses a race; six slots covers that with margin, matching spec.md
// §4.B's note that "in practice the list uses at most a small fixed number
// of concurrent hazards per operation."
const MaxHazardSlots = 6

// defaultReclaimThreshold is the retire-list length, per thread, that
// triggers a scan. It is deliberately small: this module favors prompt
// reclamation over batching many frees into a single scan.
const defaultReclaimThreshold = 64

var (
	// ErrSlotExhausted is returned by Acquire when a thread record's hazard
	// slots are all published; this indicates a caller bug (more concurrent
	// hazards live than the algorithm ever needs) rather than contention.
	ErrSlotExhausted = errors.New("hazard: no free hazard slot")

	// ErrNotRegistered is returned when a Thread handle is used after its
	// Unregister call. A Thread obtained from Register must not be used
	// again once released.
	ErrNotRegistered = errors.New("hazard: thread handle is not registered")
)

// Slot identifies a published hazard within a Thread's slot array. It is
// only meaningful paired with the Thread that returned it.
type Slot int

type retiredPtr struct {
	ptr  unsafe.Pointer
	free func(unsafe.Pointer)
}

// threadRecord is one entry in the registry's lock-free linked list. It is
// never removed once appended — unregistering a thread only flips free so a
// later Register call can reuse it, bounding registry growth under churn
// exactly as spec.md §4.B specifies.
type threadRecord struct {
	next    atomic.Pointer[threadRecord]
	free    atomic.Bool
	slots   [MaxHazardSlots]unsafe.Pointer
	retired []retiredPtr
}

// Registry is the shared hazard-pointer directory. A Registry is meant to be
// created once and shared by every sortedlist.List and hashtable.Table that
// should reclaim memory against the same set of published hazards — sharing
// a Registry across structures only changes how much bookkeeping a scan
// touches, never correctness, because each retired pointer is only ever
// compared against the live hazard set, never against another structure's
// retired list.
type Registry struct {
	head      atomic.Pointer[threadRecord]
	threshold atomic.Int64
}

// NewRegistry returns an empty Registry with the default reclaim threshold.
func NewRegistry() *Registry {
	r := &Registry{}
	r.threshold.Store(defaultReclaimThreshold)
	return r
}

// SetThreshold changes the registry-wide retire-list length that triggers a
// scan. Values below 1 are clamped to 1.
func (r *Registry) SetThreshold(n int) {
	if n < 1 {
		n = 1
	}
	r.threshold.Store(int64(n))
}

// Register allocates or reuses a thread record and returns a handle a single
// goroutine can use to publish and clear hazards. The returned *Thread must
// only be used by the calling goroutine (it is thread-affine in use, not in
// identity — see spec.md §5's shared resource policy) and must eventually be
// released with Unregister.
func (r *Registry) Register() *Thread {
	for rec := r.head.Load(); rec != nil; rec = rec.next.Load() {
		if rec.free.Load() && rec.free.CompareAndSwap(true, false) {
			return &Thread{rec: rec, registry: r}
		}
	}

	rec := &threadRecord{}
	for {
		head := r.head.Load()
		rec.next.Store(head)
		if r.head.CompareAndSwap(head, rec) {
			return &Thread{rec: rec, registry: r}
		}
	}
}

// scan snapshots every published hazard across the whole registry — not
// just the thread that triggered the scan — then frees every pointer in
// owner's retire list that does not appear in that snapshot. This is the
// classical Michael scheme: a newly appended record cannot already hold a
// hazard on something retired before it existed, so concurrent Register
// calls never need to be excluded from the snapshot.
func (r *Registry) scan(owner *threadRecord) {
	live := make(map[unsafe.Pointer]struct{})
	for rec := r.head.Load(); rec != nil; rec = rec.next.Load() {
		for i := range rec.slots {
			if p := atomic.LoadPointer(&rec.slots[i]); p != nil {
				live[p] = struct{}{}
			}
		}
	}

	kept := owner.retired[:0]
	for _, rp := range owner.retired {
		if _, hazarded := live[rp.ptr]; hazarded {
			kept = append(kept, rp)
			continue
		}
		rp.free(rp.ptr)
	}
	owner.retired = kept
}
