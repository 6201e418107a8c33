package sortedlist

import "golang.org/x/exp/constraints"

// Ordered returns a Comparator for any key type with native ordering
// operators, sparing callers the usual three-way-compare boilerplate.
func Ordered[K constraints.Ordered]() Comparator[K] {
	return func(a, b K) int {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		default:
			return 0
		}
	}
}
