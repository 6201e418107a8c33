// Package storage provides the in-memory key-value store a storage node
// serves: LockFreeStore. See doc.go for extended documentation.
package storage

import (
	"errors"

	"github.com/dreamware/lockfree/hashtable"
	"github.com/dreamware/lockfree/hazard"
	"github.com/dreamware/lockfree/sortedlist"
)

// ErrKeyNotFound is returned by Get and (never, since Delete is idempotent)
// Delete when a key is absent.
var ErrKeyNotFound = errors.New("key not found")

// StoreStats is a point-in-time snapshot of a store's size, assembled by
// walking every bucket under its own write barrier — see Stats.
type StoreStats struct {
	Keys  int
	Bytes int
}

// LockFreeStore is a key-value store backed by package hashtable, the
// module's resizable lock-free hash table, instead of a mutex-guarded map:
// readers never block on writers, and writers on different keys never block
// each other except while a table resize swaps in a new generation.
//
// Unlike hashtable.Table's own API, LockFreeStore's methods don't take a
// hazard.Thread — callers here are ordinary HTTP handlers that don't want to
// manage one. LockFreeStore registers a thread for the duration of each call
// and unregisters it before returning; the registry the thread belongs to
// reuses freed thread records, so this costs a slot scan, not an allocation,
// on all but the first few calls from a given level of concurrency.
type LockFreeStore struct {
	registry *hazard.Registry
	table    *hashtable.Table[string, []byte]
}

// NewLockFreeStore creates an empty LockFreeStore with its own hazard
// registry and a small initial bucket count, suitable for a single shard's
// key space.
func NewLockFreeStore() *LockFreeStore {
	registry := hazard.NewRegistry()
	table, err := hashtable.Create[string, []byte](registry, hashtable.StringHash, sortedlist.Ordered[string](), 16, nil, nil)
	if err != nil {
		// Create only fails on nil registry/hash/cmp, a misconfigured skip
		// callback, or a bucket count below 1, none of which apply to the
		// fixed arguments above.
		panic("storage: lockfree table construction failed unexpectedly: " + err.Error())
	}
	return &LockFreeStore{registry: registry, table: table}
}

func (s *LockFreeStore) Get(key string) ([]byte, error) {
	t := s.registry.Register()
	defer t.Unregister()

	node, err := s.table.Find(t, key)
	if err != nil {
		return nil, ErrKeyNotFound
	}
	defer node.Release()

	value := make([]byte, len(node.Value()))
	copy(value, node.Value())
	return value, nil
}

func (s *LockFreeStore) Put(key string, value []byte) error {
	t := s.registry.Register()
	defer t.Unregister()

	stored := make([]byte, len(value))
	copy(stored, value)

	node := sortedlist.NewNode(key, stored, nil)
	if old, _, err := s.table.SetValue(t, key, node); err != nil {
		return err
	} else if old != nil {
		old.Release()
	}
	return nil
}

func (s *LockFreeStore) Delete(key string) error {
	t := s.registry.Register()
	defer t.Unregister()

	node, _, err := s.table.Remove(t, key)
	if err != nil {
		if err == hashtable.ErrNotFound {
			return nil
		}
		return err
	}
	node.Release()
	return nil
}

// List returns a snapshot of every key currently in the store. Because
// hashtable.Table has no enumeration primitive of its own (each bucket is a
// sortedlist.List, and enumerating one requires its own write barrier),
// List locks every bucket in every generation in turn, reads it, and
// unlocks it — a snapshot assembled bucket-by-bucket rather than atomically
// across the whole table, so it may already be stale when it returns.
func (s *LockFreeStore) List() []string {
	t := s.registry.Register()
	defer t.Unregister()

	var keys []string
	s.table.ForEachBucket(func(bucket *sortedlist.List[string, []byte]) {
		bucket.LockWrites()
		defer bucket.UnlockWrites()
		count, err := bucket.GetCount(t)
		if err != nil || count == 0 {
			return
		}
		buf := make([]*sortedlist.Node[string, []byte], count)
		if err := bucket.GetAll(t, buf); err != nil {
			return
		}
		for _, n := range buf {
			keys = append(keys, n.Key())
			n.Release()
		}
	})
	if keys == nil {
		keys = []string{}
	}
	return keys
}

func (s *LockFreeStore) Stats() StoreStats {
	t := s.registry.Register()
	defer t.Unregister()

	stats := StoreStats{}
	s.table.ForEachBucket(func(bucket *sortedlist.List[string, []byte]) {
		bucket.LockWrites()
		defer bucket.UnlockWrites()
		count, err := bucket.GetCount(t)
		if err != nil || count == 0 {
			return
		}
		buf := make([]*sortedlist.Node[string, []byte], count)
		if err := bucket.GetAll(t, buf); err != nil {
			return
		}
		stats.Keys += count
		for _, n := range buf {
			stats.Bytes += len(n.Value())
			n.Release()
		}
	})
	return stats
}
