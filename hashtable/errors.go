package hashtable

import (
	"errors"

	"github.com/dreamware/lockfree/sortedlist"
)

// These sentinel errors are aliased directly from package sortedlist: a
// bucket miss, a duplicate key, and a nil required argument mean exactly
// the same thing at the table level as they do at the list level, so
// giving them a second identity would only cost callers an extra
// errors.Is hop.
var (
	ErrNotFound         = sortedlist.ErrNotFound
	ErrKeyAlreadyExists = sortedlist.ErrKeyAlreadyExists
	ErrNullArgument     = sortedlist.ErrNullArgument
)

// ErrInvalidBucketCount is returned by Create when initialBuckets is not a
// positive number.
var ErrInvalidBucketCount = errors.New("hashtable: initial bucket count must be positive")
