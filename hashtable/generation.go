package hashtable

import "github.com/dreamware/lockfree/sortedlist"

// generation is one bucket-array "epoch" of a Table. Its buckets slice and
// mask never change after construction; the only thing that ever changes
// is which generation a Table's newest pointer refers to.
type generation[K any, V any] struct {
	buckets []*sortedlist.List[K, V]
	mask    uint64
	older   *generation[K, V]
}

func (g *generation[K, V]) bucketFor(hash uint64) *sortedlist.List[K, V] {
	return g.buckets[hash&g.mask]
}

func nextPowerOfTwo(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
