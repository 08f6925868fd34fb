// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunMatchFixedLagCompletesTuple(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("A", base, base, 1),
		newRealEntry("B", base, base.Add(10*time.Millisecond), 2),
	}

	output, discard := runMatchFixedLag(data, []int{0, 1}, "A", 2)
	require.Equal(t, []int{0, 1}, output)
	require.Empty(t, discard)
}

func TestRunMatchFixedLagDiscardsReferenceWhenNextFitsBetter(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("A", base, base, 1),
		newRealEntry("B", base, base.Add(90*time.Millisecond), 2),
		newRealEntry("A", base, base.Add(100*time.Millisecond), 3),
	}

	// B's only sample fits the already-arrived next reference sample
	// (diff 10ms) better than the current one (diff 90ms), so the tuple
	// can never complete around the current reference and it is discarded.
	output, discard := runMatchFixedLag(data, []int{0, 1, 2}, "A", 2)
	require.Empty(t, output)
	require.Equal(t, []int{0}, discard)
}

// TestRunMatchFixedLagPicksNearestSampleRegardlessOfPosition exercises a
// reference that isn't first in the queue: the nearest sample of another
// source can sit before the reference index, and the candidate scan must still
// find it instead of settling for a worse-fitting sample further along.
func TestRunMatchFixedLagPicksNearestSampleRegardlessOfPosition(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("B", base, base.Add(95*time.Millisecond), 1),
		newRealEntry("A", base, base.Add(100*time.Millisecond), 2),
		newRealEntry("B", base, base.Add(130*time.Millisecond), 3),
	}

	output, discard := runMatchFixedLag(data, []int{0, 1, 2}, "A", 2)
	require.Equal(t, []int{0, 1}, output)
	require.Empty(t, discard)
}

func TestRunMatchFixedLagNoReferenceInReady(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("B", base, base, 1),
	}

	output, discard := runMatchFixedLag(data, []int{0}, "A", 2)
	require.Nil(t, output)
	require.Nil(t, discard)
}

func TestRunMatchMinimalLatencyCompletesTuple(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("A", base, base, 1),
		newRealEntry("B", base, base.Add(10*time.Millisecond), 2),
	}
	known := map[string]struct{}{"A": {}, "B": {}}

	output, discard := runMatchMinimalLatency(data, []int{0, 1}, "A", known, 0, false)
	require.Equal(t, []int{0, 1}, output)
	require.Empty(t, discard)
}

func TestRunMatchMinimalLatencyWaitsForBetterFittingSampleBeyondReady(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("A", base, base, 1),
		newRealEntry("B", base, base.Add(10*time.Millisecond), 2),
		newRealEntry("B", base, base.Add(2*time.Millisecond), 3),
	}
	known := map[string]struct{}{"A": {}, "B": {}}

	output, discard := runMatchMinimalLatency(data, []int{0, 1}, "A", known, 0, false)
	require.Nil(t, output)
	require.Nil(t, discard)
}

func TestRunMatchMinimalLatencyFallsBackToEstimatedPeriodForNext(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("A", base, base, 1),
		newRealEntry("B", base, base.Add(60*time.Millisecond), 2),
	}
	known := map[string]struct{}{"A": {}, "B": {}}

	// The reference's own next sample hasn't arrived; its estimated period
	// places it right where the B sample sits, so the candidate is treated
	// as fitting the next reference sample better and the current reference
	// is discarded.
	output, discard := runMatchMinimalLatency(data, []int{0, 1}, "A", known, 60*time.Millisecond, true)
	require.Nil(t, output)
	require.Equal(t, []int{0}, discard)
}

// TestRunMatchMinimalLatencyPicksNearestSampleRegardlessOfPosition mirrors
// the fixed-lag case above: the reference isn't first in ready, so the
// candidate scan must start at the beginning of ready rather than skip
// everything up to the reference index.
func TestRunMatchMinimalLatencyPicksNearestSampleRegardlessOfPosition(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{
		newRealEntry("B", base, base.Add(95*time.Millisecond), 1),
		newRealEntry("A", base, base.Add(100*time.Millisecond), 2),
		newRealEntry("B", base, base.Add(130*time.Millisecond), 3),
	}
	known := map[string]struct{}{"A": {}, "B": {}}

	output, discard := runMatchMinimalLatency(data, []int{0, 1, 2}, "A", known, 0, false)
	require.Equal(t, []int{0, 1}, output)
	require.Empty(t, discard)
}

func TestRunMatchMinimalLatencyNoReferenceInReady(t *testing.T) {
	base := time.Unix(0, 0)
	data := []entry[string, int]{newRealEntry("B", base, base, 1)}
	known := map[string]struct{}{"A": {}, "B": {}}

	output, discard := runMatchMinimalLatency(data, []int{0}, "A", known, 0, false)
	require.Nil(t, output)
	require.Nil(t, discard)
}
