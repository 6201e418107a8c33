package sortedlist

import (
	"sync"
	"testing"

	"github.com/dreamware/lockfree/hazard"
	"github.com/dreamware/lockfree/seqno"
)

func newIntList(t *testing.T) (*List[int, string], *hazard.Registry) {
	t.Helper()
	reg := hazard.NewRegistry()
	l, err := NewList[int, string](reg, Ordered[int](), seqno.NewCounter(0), nil)
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	return l, reg
}

func TestNewListRejectsMisconfiguredSkip(t *testing.T) {
	reg := hazard.NewRegistry()
	_, err := NewList[int, string](reg, Ordered[int](), nil, func(uint64) {})
	if err != ErrMisconfigured {
		t.Fatalf("expected ErrMisconfigured, got %v", err)
	}
}

func TestInsertFindDeleteRoundTrip(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	if _, err := l.Insert(th, 5, "five", nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	node, err := l.FindKey(th, 5)
	if err != nil {
		t.Fatalf("FindKey: %v", err)
	}
	if node.Value() != "five" {
		t.Fatalf("expected value 'five', got %q", node.Value())
	}
	node.Release()

	if _, err := l.DeleteKey(th, 5); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if _, err := l.FindKey(th, 5); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	if _, err := l.Insert(th, 1, "a", nil); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if _, err := l.Insert(th, 1, "b", nil); err != ErrKeyAlreadyExists {
		t.Fatalf("expected ErrKeyAlreadyExists, got %v", err)
	}
}

func TestFindKeyMissingReturnsNotFound(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	if _, err := l.FindKey(th, 42); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveKeyKeepsNodeAliveUntilReleased(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	cleaned := false
	if _, err := l.Insert(th, 7, "seven", func(int, string) { cleaned = true }); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	node, _, err := l.RemoveKey(th, 7)
	if err != nil {
		t.Fatalf("RemoveKey: %v", err)
	}
	if cleaned {
		t.Fatalf("cleanup ran before caller released its handle")
	}
	if node.Value() != "seven" {
		t.Fatalf("unexpected value %q", node.Value())
	}
	if _, err := l.FindKey(th, 7); err != ErrNotFound {
		t.Fatalf("expected removed key to be absent, got %v", err)
	}

	node.Release()
	// The list's own reference is dropped only when th's retire list is
	// scanned; Unregister runs that scan.
	th.Unregister()
	if !cleaned {
		t.Fatalf("cleanup did not run after the caller released and the list reclaimed the node")
	}
}

func TestSetValueInsertsWhenKeyAbsent(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	newNode := NewNode(3, "three", nil)
	old, _, err := l.SetValue(th, 3, newNode)
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if old != nil {
		t.Fatalf("expected nil displaced node on fresh insert, got %v", old)
	}

	found, err := l.FindKey(th, 3)
	if err != nil {
		t.Fatalf("FindKey: %v", err)
	}
	defer found.Release()
	if found.Value() != "three" {
		t.Fatalf("unexpected value %q", found.Value())
	}
}

func TestSetValueReplacesExistingNode(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()

	oldCleaned := false
	if _, err := l.Insert(th, 9, "old", func(int, string) { oldCleaned = true }); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	newNode := NewNode(9, "new", nil)
	old, _, err := l.SetValue(th, 9, newNode)
	if err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if old == nil || old.Value() != "old" {
		t.Fatalf("expected displaced node with value 'old', got %v", old)
	}
	if oldCleaned {
		t.Fatalf("cleanup ran before caller released the displaced node")
	}
	old.Release()
	// The list's own reference on old is dropped only when th's retire list
	// is scanned; Unregister runs that scan.
	th.Unregister()
	if !oldCleaned {
		t.Fatalf("cleanup did not run after releasing and reclaiming the displaced node")
	}

	th = reg.Register()
	defer th.Unregister()
	found, err := l.FindKey(th, 9)
	if err != nil {
		t.Fatalf("FindKey: %v", err)
	}
	defer found.Release()
	if found.Value() != "new" {
		t.Fatalf("expected value 'new', got %q", found.Value())
	}
}

func TestGetCountAndGetAllRequireLock(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	if _, err := l.GetCount(th); err != ErrNotLocked {
		t.Fatalf("expected ErrNotLocked, got %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := l.Insert(th, i, "v", nil); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	l.LockWrites()
	defer l.UnlockWrites()

	count, err := l.GetCount(th)
	if err != nil {
		t.Fatalf("GetCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	buf := make([]*Node[int, string], count)
	if err := l.GetAll(th, buf); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	for i, n := range buf {
		if n.Key() != i {
			t.Fatalf("expected key order %d at index %d, got %d", i, i, n.Key())
		}
		n.Release()
	}

	if err := l.GetAll(th, make([]*Node[int, string], 1)); err != ErrWrongSize {
		t.Fatalf("expected ErrWrongSize, got %v", err)
	}
}

func TestSkipCallbackFiresOnFailedInsert(t *testing.T) {
	reg := hazard.NewRegistry()
	counter := seqno.NewCounter(0)
	var skipped []uint64
	var mu sync.Mutex
	l, err := NewList[int, string](reg, Ordered[int](), counter, func(seq uint64) {
		mu.Lock()
		skipped = append(skipped, seq)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	th := reg.Register()
	defer th.Unregister()

	seq, err := l.Insert(th, 1, "a", nil)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if seq == 0 {
		t.Fatalf("expected a non-zero sequence number")
	}

	if _, err := l.Insert(th, 1, "b", nil); err != ErrKeyAlreadyExists {
		t.Fatalf("expected ErrKeyAlreadyExists, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(skipped) != 1 {
		t.Fatalf("expected exactly one skipped sequence number, got %d", len(skipped))
	}
}

func TestConcurrentInsertDeleteStress(t *testing.T) {
	l, reg := newIntList(t)
	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			th := reg.Register()
			defer th.Unregister()
			for i := 0; i < perWorker; i++ {
				key := w*perWorker + i
				if _, err := l.Insert(th, key, "v", nil); err != nil {
					t.Errorf("Insert(%d): %v", key, err)
					return
				}
				if _, err := l.DeleteKey(th, key); err != nil {
					t.Errorf("DeleteKey(%d): %v", key, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	th := reg.Register()
	defer th.Unregister()
	l.LockWrites()
	defer l.UnlockWrites()
	count, err := l.GetCount(th)
	if err != nil {
		t.Fatalf("GetCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty list after balanced insert/delete, got count %d", count)
	}
}

func TestReaderHoldsNodeAcrossConcurrentRemove(t *testing.T) {
	l, reg := newIntList(t)
	readerTh := reg.Register()
	defer readerTh.Unregister()

	if _, err := l.Insert(readerTh, 11, "eleven", nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	found, err := l.FindKey(readerTh, 11)
	if err != nil {
		t.Fatalf("FindKey: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		removerTh := reg.Register()
		defer removerTh.Unregister()
		if _, _, err := l.RemoveKey(removerTh, 11); err != nil {
			t.Errorf("concurrent RemoveKey: %v", err)
		}
	}()
	wg.Wait()

	if found.Value() != "eleven" {
		t.Fatalf("reader's handle became invalid after concurrent removal")
	}
	found.Release()
}

func TestDestroyRunsCleanupForEveryRemainingNode(t *testing.T) {
	l, reg := newIntList(t)
	th := reg.Register()
	defer th.Unregister()

	cleanedUp := make(map[int]bool)
	var mu sync.Mutex
	for i := 0; i < 5; i++ {
		i := i
		if _, err := l.Insert(th, i, "v", func(k int, _ string) {
			mu.Lock()
			cleanedUp[k] = true
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	l.Destroy()

	mu.Lock()
	defer mu.Unlock()
	if len(cleanedUp) != 5 {
		t.Fatalf("expected all 5 nodes cleaned up, got %d", len(cleanedUp))
	}
}
