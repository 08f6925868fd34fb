// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/measuresync/reorderbuffer/internal/log"
	"github.com/measuresync/reorderbuffer/internal/normaldist"
)

// maxPlaceholdersPerExpansion caps how many placeholders a single
// expansion call may mint (§4.5 "Placeholder expansion for an element").
const maxPlaceholdersPerExpansion = 10

// MinimalLatencyBuffer releases samples as early as a per-source
// Estimator's confidence bounds allow, holding virtual placeholders for
// sources it expects to hear from again. It is the C6 component of the
// reordering engine: a pure, single-threaded state machine driven entirely
// by the times its caller supplies to Push and Pop.
type MinimalLatencyBuffer[SourceID comparable, Data any] struct {
	params MinimalLatencyParams[SourceID]
	log    log.Logger

	queue       []entry[SourceID, Data]
	bufferTime  time.Time
	currentTime time.Time

	estimators map[SourceID]*Estimator
}

// NewMinimalLatencyBuffer constructs a MinimalLatencyBuffer from params,
// optionally adjusted by opts.
func NewMinimalLatencyBuffer[SourceID comparable, Data any](
	params MinimalLatencyParams[SourceID],
	opts ...MinimalLatencyOption[SourceID],
) *MinimalLatencyBuffer[SourceID, Data] {
	for _, opt := range opts {
		opt.applyMinimalLatency(&params)
	}
	return &MinimalLatencyBuffer[SourceID, Data]{
		params:     params,
		log:        log.Wrap(params.Logger),
		estimators: make(map[SourceID]*Estimator),
	}
}

// Reset clears the queue, zeros both BufferTime and CurrentTime, and
// discards every source's estimator.
func (b *MinimalLatencyBuffer[SourceID, Data]) Reset() {
	b.queue = nil
	b.bufferTime = time.Time{}
	b.currentTime = time.Time{}
	b.estimators = make(map[SourceID]*Estimator)
}

// BufferTime returns the measurement time of the most recently released
// real sample (the zero time if nothing has been released yet).
func (b *MinimalLatencyBuffer[SourceID, Data]) BufferTime() time.Time {
	return b.bufferTime
}

// CurrentTime returns the maximum receipt time observed by any Push.
func (b *MinimalLatencyBuffer[SourceID, Data]) CurrentTime() time.Time {
	return b.currentTime
}

// EstimatedBufferTime returns the measurement time the buffer expects to
// advance to next: the head of the queue, or BufferTime if the queue is
// empty.
func (b *MinimalLatencyBuffer[SourceID, Data]) EstimatedBufferTime() time.Time {
	if len(b.queue) == 0 {
		return b.bufferTime
	}
	return b.queue[0].measTime
}

// EarliestHeldBackReceiptTime returns the minimum receipt time among
// currently queued real samples, or farFuture (1 January 9999 UTC, standing
// in for an infinite future) if none are queued.
func (b *MinimalLatencyBuffer[SourceID, Data]) EarliestHeldBackReceiptTime() time.Time {
	earliest := time.Time{}
	found := false
	for _, e := range b.queue {
		if e.isPlaceholder() {
			continue
		}
		if !found || e.receiptTime.Before(earliest) {
			earliest = e.receiptTime
			found = true
		}
	}
	if !found {
		return farFuture
	}
	return earliest
}

// NumQueuedElements counts only real samples; placeholders are not
// considered queued elements from the caller's point of view.
func (b *MinimalLatencyBuffer[SourceID, Data]) NumQueuedElements() int {
	n := 0
	for _, e := range b.queue {
		if !e.isPlaceholder() {
			n++
		}
	}
	return n
}

// Period returns the current mean period estimate for id, or zero if id is
// unknown to the buffer.
func (b *MinimalLatencyBuffer[SourceID, Data]) Period(id SourceID) time.Duration {
	if est, ok := b.estimators[id]; ok {
		return est.Period()
	}
	return 0
}

// Latency returns the current mean latency estimate for id, or zero if id
// is unknown to the buffer.
func (b *MinimalLatencyBuffer[SourceID, Data]) Latency(id SourceID) time.Duration {
	if est, ok := b.estimators[id]; ok {
		return est.Latency()
	}
	return 0
}

// Push admits one sample from id (§4.5 push). A backward jump in receipt
// time larger than ResetThreshold triggers a full Reset and rejects the
// triggering sample.
func (b *MinimalLatencyBuffer[SourceID, Data]) Push(
	id SourceID,
	receiptTime, measTime time.Time,
	payload Data,
) (PushReturn, error) {
	if !b.currentTime.IsZero() && b.currentTime.Sub(receiptTime) > b.params.ResetThreshold {
		b.log.Info(context.Background(), "minimal-latency buffer reset",
			slog.Time("current_time", b.currentTime), slog.Time("receipt_time", receiptTime))
		b.Reset()
		return Reset, nil
	}
	if b.currentTime.Before(receiptTime) {
		b.currentTime = receiptTime
	}

	est, known := b.estimators[id]
	if !known {
		if b.params.Alpha > 0 {
			b.estimators[id] = NewEstimatorWithAlpha(fmt.Sprint(id), receiptTime, measTime, b.params.Alpha)
		} else {
			b.estimators[id] = NewEstimator(fmt.Sprint(id), receiptTime, measTime)
		}
		b.queue = append(b.queue, newRealEntry(id, receiptTime, measTime, payload))
		sortByMeasTime(b.queue)
		return Ok, nil
	}

	initializedBefore := est.IsInitialized()

	const noBest = -1
	bestIdx := noBest
	var bestDist time.Duration
	numMissing := 0
	halfPeriod := est.Period() / 2

	for i := range b.queue {
		e := &b.queue[i]
		if e.id != id || !e.isPlaceholder() {
			continue
		}
		if e.measTime.Before(measTime) {
			numMissing++
		}
		dist := absDuration(e.measTime.Sub(measTime))
		if dist < halfPeriod && (bestIdx == noBest || dist < bestDist) {
			bestIdx = i
			bestDist = dist
		}
	}

	var expandIdx int
	if bestIdx != noBest {
		origMeasTime := b.queue[bestIdx].measTime
		if numMissing > 0 && measTime.After(origMeasTime) {
			numMissing--
		}
		b.queue[bestIdx].becomeReal(receiptTime, measTime, payload)
		expandIdx = bestIdx
	} else {
		b.queue = append(b.queue, newRealEntry(id, receiptTime, measTime, payload))
		expandIdx = len(b.queue) - 1
	}

	var updateErr error
	switch {
	case !initializedBefore:
		updateErr = est.Update(receiptTime, measTime, 0)
	case bestIdx != noBest:
		updateErr = est.Update(receiptTime, measTime, numMissing)
	default:
		est.UpdateLatencyOnly(receiptTime, measTime)
	}
	if updateErr != nil {
		b.log.Err(context.Background(), updateErr)
	}

	if initializedBefore {
		b.queue = append(b.queue, b.expandPlaceholders(expandIdx, measTime)...)
	}

	b.sweepStalePlaceholders(id, measTime)
	sortByMeasTime(b.queue)
	return Ok, nil
}

// sweepStalePlaceholders removes every placeholder of id whose measTime
// predates newMeasTime (§4.5 push step 8): the real sample has moved past
// them, so they can never be filled.
func (b *MinimalLatencyBuffer[SourceID, Data]) sweepStalePlaceholders(id SourceID, newMeasTime time.Time) {
	var stale []int
	for i, e := range b.queue {
		if e.id == id && e.isPlaceholder() && e.measTime.Before(newMeasTime) {
			stale = append(stale, i)
		}
	}
	if len(stale) > 0 {
		b.queue = removeIndices(b.queue, stale)
	}
}

// expandPlaceholders mints up to maxPlaceholdersPerExpansion placeholders
// for the source owning b.queue[idx], anchored at base, stopping early
// once one predicts an earliest measurement time past BufferTime — that
// last placeholder is left with createdPlaceholder=false so it can expand
// further once the buffer catches up to it. b.queue[idx].createdPlaceholder
// is always left true: it has now been expanded from.
//
// If b.queue[idx] was already expanded from — createdPlaceholder is already
// true when this is called — it mints nothing. That happens when a real
// sample fills a placeholder that wasn't the open tail of its series: the
// open placeholder further ahead already covers that future, and expanding
// again here would mint a second, overlapping series for the same source.
func (b *MinimalLatencyBuffer[SourceID, Data]) expandPlaceholders(idx int, base time.Time) []entry[SourceID, Data] {
	if b.queue[idx].createdPlaceholder {
		return nil
	}
	id := b.queue[idx].id
	var minted []entry[SourceID, Data]
	for k := 1; k <= maxPlaceholdersPerExpansion; k++ {
		p := b.createPlaceholder(id, base, k)
		if p.earliestEstimatedMeasTime.After(b.bufferTime) {
			minted = append(minted, p)
			break
		}
		p.createdPlaceholder = true
		minted = append(minted, p)
	}
	b.queue[idx].createdPlaceholder = true
	return minted
}

// createPlaceholder computes the k-th placeholder for id expected after
// base, per §4.5 "Placeholder construction". The estimator for id must
// already exist and be initialized; callers (expandPlaceholders) guarantee
// this, so there is no error return here — an uninitialized source never
// reaches this call (the UninitializedPlaceholderRequest error kind exists
// for exactly this invariant and is unreachable by construction).
func (b *MinimalLatencyBuffer[SourceID, Data]) createPlaceholder(
	id SourceID,
	base time.Time,
	k int,
) entry[SourceID, Data] {
	est := b.estimators[id]

	periodOffset := time.Duration(k) * est.Period()
	periodVarianceSum := float64(k) * est.periodState.variance
	sigmaM := math.Sqrt(periodVarianceSum)

	var measurementJitter float64
	if sigmaM > 0 {
		q := (1 - b.params.MeasurementConfidenceQuantile) / 2
		measurementJitter = clamp(
			normaldist.Quantile(q, 0, sigmaM),
			float64(b.params.MaxAbsMeasurementJitter),
		)
	}

	latencyStddev := float64(est.LatencyStddev())
	var waitJitter float64
	if latencyStddev > 0 {
		sigmaW := math.Hypot(sigmaM, latencyStddev)
		q := 1 - (1-b.params.WaitConfidenceQuantile)/2
		waitJitter = clamp(
			normaldist.Quantile(q, 0, sigmaW),
			float64(b.params.MaxAbsWaitJitter),
		)
	}

	earliest := base.Add(periodOffset).Add(time.Duration(measurementJitter))

	wait := est.Latency() + time.Duration(waitJitter)
	if wait > b.params.MaxTotalWaitTime {
		wait = b.params.MaxTotalWaitTime
	}
	latestReceipt := base.Add(periodOffset).Add(wait)

	return newPlaceholderEntry[SourceID, Data](id, earliest, latestReceipt)
}

// clamp restricts v to [-limit, limit]. limit is assumed non-negative.
func clamp(v, limit float64) float64 {
	switch {
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	default:
		return v
	}
}

// Pop releases every sample that has become eligible by now (§4.5 pop). A
// call with now earlier than CurrentTime is a no-op "PopBackwards" that
// returns an empty result without mutating any state.
func (b *MinimalLatencyBuffer[SourceID, Data]) Pop(now time.Time) PopReturn[SourceID, Data] {
	if now.Before(b.currentTime) {
		return PopReturn[SourceID, Data]{BufferTime: b.bufferTime}
	}

	var outputIdx, discardIdx, staleIdx []int
	var carry []entry[SourceID, Data]
	effectiveNow := now

walk:
	for i := range b.queue {
		e := &b.queue[i]
		switch {
		case e.measTime.Before(b.bufferTime):
			if !e.isPlaceholder() {
				discardIdx = append(discardIdx, i)
				staleIdx = append(staleIdx, i)
			}
		case !e.isPlaceholder():
			if e.measTime.After(effectiveNow) {
				break walk
			}
			outputIdx = append(outputIdx, i)
		default:
			if !e.receiptTime.Before(effectiveNow) {
				break walk
			}
			// not yet expired, but not emitted either: the placeholder
			// stays silent until its real sample arrives or it goes stale.
		}

		if est, known := b.estimators[e.id]; known && est.IsInitialized() && !e.createdPlaceholder {
			minted := b.expandPlaceholders(i, e.measTime)
			if len(minted) > 0 {
				last := minted[len(minted)-1]
				if last.earliestEstimatedMeasTime.Before(effectiveNow) && last.measTime.Before(effectiveNow) {
					effectiveNow = last.measTime
				}
			}
			carry = append(carry, minted...)
		}
	}

	switch b.params.Mode {
	case Batch:
		outputIdx = runBatchMinimalLatency(b.queue, outputIdx, b.params.Batch.MaxDelta, effectiveNow)
	case Match:
		knownSources := make(map[SourceID]struct{}, len(b.estimators))
		for id := range b.estimators {
			knownSources[id] = struct{}{}
		}
		var refPeriod time.Duration
		var refKnown bool
		if est, ok := b.estimators[b.params.Match.ReferenceStream]; ok && est.IsInitialized() {
			refPeriod, refKnown = est.Period(), true
		}
		out, disc := runMatchMinimalLatency(
			b.queue, outputIdx, b.params.Match.ReferenceStream, knownSources, refPeriod, refKnown,
		)
		outputIdx = out
		discardIdx = append(discardIdx, disc...)
	}

	outputs := collectSamples(b.queue, outputIdx)
	discards := collectSamples(b.queue, discardIdx)

	deleteIdx := dedupeInts(outputIdx, discardIdx, staleIdx)
	b.queue = removeIndices(b.queue, deleteIdx)
	b.queue = append(b.queue, carry...)
	sortByMeasTime(b.queue)

	if len(outputs) > 0 {
		b.bufferTime = maxMeasTime(outputs)
	}

	return PopReturn[SourceID, Data]{
		BufferTime:    b.bufferTime,
		Data:          outputs,
		DiscardedData: discards,
	}
}
