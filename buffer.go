// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import "time"

// farFuture stands in for "+∞" in EarliestHeldBackReceiptTime: time.Time
// has no infinite value, so an implausibly distant instant plays the same
// role for any caller comparing against it.
var farFuture = time.Date(9999, time.January, 1, 0, 0, 0, 0, time.UTC)

// epoch anchors fallback time values to the same zero the original
// implementation uses (a zero-valued duration-since-epoch), rather than
// Go's own zero time.Time{} (year 1 CE).
var epoch = time.Unix(0, 0)

// collectSamples converts the entries at idxs (assumed to be real samples)
// into Sample values, in the order idxs lists them.
func collectSamples[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	idxs []int,
) []Sample[SourceID, Data] {
	if len(idxs) == 0 {
		return nil
	}
	out := make([]Sample[SourceID, Data], 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, data[idx].toSample())
	}
	return out
}

// maxMeasTime returns the latest MeasTime among samples. Callers only use
// this on a non-empty slice.
func maxMeasTime[SourceID comparable, Data any](samples []Sample[SourceID, Data]) time.Time {
	latest := samples[0].MeasTime
	for _, s := range samples[1:] {
		if s.MeasTime.After(latest) {
			latest = s.MeasTime
		}
	}
	return latest
}

// dedupeInts merges any number of index slices into one slice with
// duplicates removed, keeping first-seen order (it does not sort), suitable
// for a single removeIndices call.
func dedupeInts(groups ...[]int) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, g := range groups {
		for _, i := range g {
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			out = append(out, i)
		}
	}
	return out
}
