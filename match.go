// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"sort"
	"time"
)

// absDuration returns the absolute value of d.
func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// sortedIndices returns the values of idx, sorted ascending, so downstream
// output preserves queue order regardless of map iteration order.
func sortedIndices[K comparable](idx map[K]int) []int {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// findNextReferenceMeasTime locates the measurement time of the reference
// source's next sample after refIdx: first among ready (§4.3.2 step 1,
// "the next R sample in ready after ref_idx"), falling back to the next
// real reference sample anywhere later in the queue ("the next R sample
// further back in the queue"). The second return is false if no such
// sample exists anywhere yet.
func findNextReferenceMeasTime[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	ready []int,
	refIdx int,
	referenceID SourceID,
) (time.Time, bool) {
	for _, idx := range ready {
		if idx <= refIdx {
			continue
		}
		if data[idx].id == referenceID {
			return data[idx].measTime, true
		}
	}

	last := refIdx
	if len(ready) > 0 {
		last = ready[len(ready)-1]
	}
	for idx := last + 1; idx < len(data); idx++ {
		if data[idx].id == referenceID && !data[idx].isPlaceholder() {
			return data[idx].measTime, true
		}
	}
	return time.Time{}, false
}

// findReferenceIndex returns the first index in ready whose source is
// referenceID, or -1 if none is present.
func findReferenceIndex[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	ready []int,
	referenceID SourceID,
) int {
	for _, idx := range ready {
		if data[idx].id == referenceID {
			return idx
		}
	}
	return -1
}

// runMatchFixedLag implements the fixed-lag Match variant (§4.3.2, no
// placeholders): the reference sample must be in ready, but the best match
// per other stream is drawn from the *entire* queue, oldest first, since a
// nearer-fitting sample of that stream may sit anywhere relative to the
// reference index — including before it. Reference-stream entries other
// than the reference itself are skipped outright (only the oldest
// reference sample is ever considered). It requires exactly numStreams
// distinct sources to complete a tuple, and discards the reference sample
// once a later, not-yet-claimed stream is found to fit the next reference
// sample better than the current one.
func runMatchFixedLag[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	ready []int,
	referenceID SourceID,
	numStreams int,
) (output, discard []int) {
	if len(ready) == 0 {
		return nil, nil
	}
	refIdx := findReferenceIndex(data, ready, referenceID)
	if refIdx < 0 {
		return nil, nil
	}
	tRef := data[refIdx].measTime

	tNext, ok := findNextReferenceMeasTime(data, ready, refIdx, referenceID)
	if !ok {
		tNext = epoch
	}

	candidateIdx := map[SourceID]int{referenceID: refIdx}
	candidateTau := map[SourceID]time.Duration{referenceID: 0}
	betterForNext := false

	for idx := 0; idx < len(data); idx++ {
		e := &data[idx]
		if e.id == referenceID {
			continue
		}
		tau := absDuration(e.measTime.Sub(tRef))
		if absDuration(e.measTime.Sub(tNext)) < tau {
			if _, seen := candidateTau[e.id]; !seen {
				betterForNext = true
			}
			break
		}
		if cur, seen := candidateTau[e.id]; !seen || tau < cur {
			candidateIdx[e.id] = idx
			candidateTau[e.id] = tau
		}
	}

	if len(candidateIdx) == numStreams {
		return sortedIndices(candidateIdx), nil
	}
	if betterForNext {
		return nil, []int{refIdx}
	}
	return nil, nil
}

// runMatchMinimalLatency implements the placeholder-aware Match variant
// (§4.3.2): the required tuple is exactly the set of sources the estimator
// currently knows about, t_next falls back to the reference's own
// estimated period when no next real reference sample has arrived yet, the
// best candidate per stream is drawn from the whole ready set starting at
// its beginning (not just what follows the reference index), and an extra
// scan (step 6) over everything beyond ready — real samples and
// placeholders alike — can still force a wait even once the tuple looks
// complete, if a closer-fitting sample might still land. Both scans skip
// reference-stream entries outright; only the oldest reference sample is
// ever considered.
func runMatchMinimalLatency[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	ready []int,
	referenceID SourceID,
	knownSources map[SourceID]struct{},
	referencePeriod time.Duration,
	referencePeriodKnown bool,
) (output, discard []int) {
	if len(ready) == 0 {
		return nil, nil
	}
	refIdx := findReferenceIndex(data, ready, referenceID)
	if refIdx < 0 {
		return nil, nil
	}
	tRef := data[refIdx].measTime

	tNext, ok := findNextReferenceMeasTime(data, ready, refIdx, referenceID)
	if !ok {
		if referencePeriodKnown {
			tNext = tRef.Add(referencePeriod)
		} else {
			tNext = epoch
		}
	}

	candidateIdx := map[SourceID]int{referenceID: refIdx}
	candidateTau := map[SourceID]time.Duration{referenceID: 0}
	betterForNext := false
	lastScanned := refIdx

	for _, idx := range ready {
		lastScanned = idx
		e := &data[idx]
		if e.id == referenceID {
			continue
		}
		tau := absDuration(e.measTime.Sub(tRef))
		if absDuration(e.measTime.Sub(tNext)) < tau {
			if _, seen := candidateTau[e.id]; !seen {
				betterForNext = true
			}
			break
		}
		if cur, seen := candidateTau[e.id]; !seen || tau < cur {
			candidateIdx[e.id] = idx
			candidateTau[e.id] = tau
		}
	}

	foundBetterSample := false
	if !betterForNext {
		for idx := lastScanned + 1; idx < len(data); idx++ {
			e := &data[idx]
			if e.id == referenceID {
				continue
			}
			tau := absDuration(e.measTime.Sub(tRef))
			if absDuration(e.measTime.Sub(tNext)) < tau {
				break
			}
			if cur, seen := candidateTau[e.id]; seen && tau < cur {
				foundBetterSample = true
				break
			}
		}
	}

	complete := len(candidateIdx) == len(knownSources)
	if complete && !foundBetterSample {
		return sortedIndices(candidateIdx), nil
	}
	if betterForNext {
		return nil, []int{refIdx}
	}
	return nil, nil
}
