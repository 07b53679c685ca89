package cobweb

import "sort"

// rankedStable stable-sorts items by less; items that compare equal under
// less keep their input order. A small sort helper extracted to its own file, the same way
// the teacher extracts its byte-index insertion sort to sortbytes.go — here
// used by cu.go's two ranking sites (two_best_children, get_best_operation)
// instead of a byte-index comparison.
func rankedStable[T any](items []T, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}
