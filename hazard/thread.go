package hazard

import (
	"sync/atomic"
	"unsafe"
)

// Thread is a handle obtained from Registry.Register. It owns one thread
// record's hazard slots and retire list; it must be used from a single
// goroutine at a time and released with Unregister when that goroutine is
// done touching any structure sharing the Registry.
type Thread struct {
	rec      *threadRecord
	registry *Registry
}

// Acquire publishes ptr into the first empty hazard slot and returns a Slot
// identifying it. Acquire is a pure publication: it does not validate that
// ptr is still live in the structure it came from. Callers must re-read the
// shared location that produced ptr and confirm it is unchanged before
// treating the dereference as safe (spec.md §4.B).
func (t *Thread) Acquire(ptr unsafe.Pointer) (Slot, error) {
	if t.rec.free.Load() {
		return -1, ErrNotRegistered
	}
	for i := range t.rec.slots {
		if atomic.LoadPointer(&t.rec.slots[i]) == nil {
			atomic.StorePointer(&t.rec.slots[i], ptr)
			return Slot(i), nil
		}
	}
	return -1, ErrSlotExhausted
}

// Release clears a previously published hazard slot, making it available to
// a future Acquire call.
func (t *Thread) Release(s Slot) {
	if s < 0 || int(s) >= len(t.rec.slots) {
		return
	}
	atomic.StorePointer(&t.rec.slots[s], nil)
}

// Reclaim hands ptr to the hazard-pointer machinery for deferred free. free
// is invoked with ptr once a scan confirms no registered thread record still
// publishes it. Reclaim must not be called while the calling goroutine holds
// its own hazard on ptr — doing so would make ptr permanently unreclaimable
// until that hazard is released (spec.md §4.B, tie-break 3).
func (t *Thread) Reclaim(ptr unsafe.Pointer, free func(unsafe.Pointer)) {
	t.rec.retired = append(t.rec.retired, retiredPtr{ptr: ptr, free: free})
	if int64(len(t.rec.retired)) >= t.registry.threshold.Load() {
		t.registry.scan(t.rec)
	}
}

// Unregister drains as much of the retire list as a scan can reclaim right
// now, clears all published hazards, and marks the thread record free for
// reuse by a future Register call. Pointers that cannot yet be reclaimed
// (still hazarded by another thread record) remain attached to the record
// and are drained opportunistically by the scans of whichever goroutine next
// reuses the record; scans by other records' owners do not free them.
func (t *Thread) Unregister() {
	t.registry.scan(t.rec)
	for i := range t.rec.slots {
		atomic.StorePointer(&t.rec.slots[i], nil)
	}
	t.rec.free.Store(true)
}
