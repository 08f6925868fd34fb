// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import "sort"

// sortByMeasTime re-establishes the queue invariant: sorted by measTime,
// non-decreasing, with ties resolved stably.
func sortByMeasTime[SourceID comparable, Data any](data []entry[SourceID, Data]) {
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].measTime.Before(data[j].measTime)
	})
}

// removeIndices deletes the given positions from data in a single pass,
// preserving the relative order of the surviving elements. idxs may be
// unsorted and may contain duplicates. No element is accessed after
// removal; elements are moved, not copied, as they are appended to the
// output slice.
//
// Complexity is O(n + k log k) for n = len(data), k = len(idxs).
func removeIndices[T any](data []T, idxs []int) []T {
	if len(idxs) == 0 {
		return data
	}

	sorted := append([]int(nil), idxs...)
	sort.Ints(sorted)

	out := make([]T, 0, len(data))
	blockStart := 0
	for _, idx := range sorted {
		if blockStart < idx {
			out = append(out, data[blockStart:idx]...)
		}
		blockStart = idx + 1
	}
	if blockStart < len(data) {
		out = append(out, data[blockStart:]...)
	}
	return out
}
