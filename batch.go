// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import "time"

// runBatchFixedLag implements the no-placeholder Batch variant (§4.3.1): it
// returns the oldest ready sample plus every later queue element (not
// limited to ready) whose measurement time still falls within maxDelta of
// it. Ready samples outside that window are not returned and stay queued.
func runBatchFixedLag[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	ready []int,
	maxDelta time.Duration,
) []int {
	if len(ready) == 0 {
		return ready
	}

	t0 := data[ready[0]].measTime
	batchRef := t0.Add(maxDelta)

	batch := []int{ready[0]}
	for idx := ready[0] + 1; idx < len(data); idx++ {
		if data[idx].measTime.Before(batchRef) {
			batch = append(batch, idx)
		}
	}
	return batch
}

// runBatchMinimalLatency implements the placeholder-aware Batch variant
// (§4.3.1): if any not-yet-expired placeholder could still land within the
// batch window, the whole output is suppressed so the batch can wait for
// it; otherwise ready is returned unchanged.
func runBatchMinimalLatency[SourceID comparable, Data any](
	data []entry[SourceID, Data],
	ready []int,
	maxDelta time.Duration,
	now time.Time,
) []int {
	if len(ready) == 0 {
		return ready
	}

	t0 := data[ready[0]].measTime

	for idx := ready[len(ready)-1] + 1; idx < len(data); idx++ {
		e := &data[idx]
		if !e.isPlaceholder() {
			continue
		}
		if e.earliestEstimatedMeasTime.Sub(t0) < maxDelta && e.latestReceiptTime.After(now) {
			return nil
		}
	}
	return ready
}
