package hashtable

import "github.com/cespare/xxhash/v2"

// HashFunc computes a 64-bit hash of a key. It must be deterministic and
// should distribute keys roughly uniformly across the low bits, since
// bucket selection masks those bits directly.
type HashFunc[K any] func(key K) uint64

// StringHash is a HashFunc[string] backed by xxhash, a fast, well
// distributed non-cryptographic hash well suited to bucket selection.
func StringHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// Uint64Hash is a HashFunc[uint64] that mixes the key through xxhash rather
// than using it directly, so sequential integer keys do not pile up in
// adjacent buckets.
func Uint64Hash(key uint64) uint64 {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(key >> (8 * i))
	}
	return xxhash.Sum64(buf[:])
}
