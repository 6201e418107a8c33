package sortedlist

import "errors"

var (
	// ErrKeyAlreadyExists is returned by Insert when the key is already
	// present.
	ErrKeyAlreadyExists = errors.New("sortedlist: key already exists")

	// ErrNotFound is returned by DeleteItem, DeleteKey, RemoveKey, and
	// FindKey when the key (or, for DeleteItem, the exact node) is not
	// present.
	ErrNotFound = errors.New("sortedlist: key not found")

	// ErrNotLocked is returned by GetCount and GetAll when called without
	// an active LockWrites barrier.
	ErrNotLocked = errors.New("sortedlist: write barrier not held")

	// ErrWrongSize is returned by GetAll when the supplied buffer's length
	// does not match the list's current count.
	ErrWrongSize = errors.New("sortedlist: buffer size does not match item count")

	// ErrMisconfigured is returned by NewList when a skip callback is
	// supplied without a backing sequence counter — there would be nothing
	// to report skipped numbers from.
	ErrMisconfigured = errors.New("sortedlist: skip callback requires a configured sequence counter")

	// ErrNullArgument is returned when a required argument (a hazard
	// thread handle, a node) is nil.
	ErrNullArgument = errors.New("sortedlist: required argument is nil")

	// ErrAlloc is reserved for allocation failure. Go's runtime panics on
	// out-of-memory rather than returning an error, so in practice this
	// value is never produced; it exists for API-surface completeness
	// with spec.md's allocation-failure contract.
	ErrAlloc = errors.New("sortedlist: allocation failed")
)
