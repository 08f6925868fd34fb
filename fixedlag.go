// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"context"
	"log/slog"
	"time"

	"github.com/measuresync/reorderbuffer/internal/log"
	"github.com/measuresync/reorderbuffer/internal/normaldist"
)

// FixedLagBuffer releases each sample once a statically computed delay
// quantile has elapsed since its measurement time: simpler and less
// latency-optimal than MinimalLatencyBuffer, but its release time needs no
// per-source history to compute.
//
// Push never advances CurrentTime here (unlike MinimalLatencyBuffer): the
// reset path is reachable only if a caller seeds CurrentTime some other
// way, which this type provides no means to do. This is a known quirk,
// preserved rather than silently aligned with the other buffer's behavior.
type FixedLagBuffer[SourceID comparable, Data any] struct {
	params   FixedLagParams[SourceID]
	fixedLag time.Duration
	log      log.Logger

	queue       []entry[SourceID, Data]
	bufferTime  time.Time
	currentTime time.Time
}

// NewFixedLagBuffer constructs a FixedLagBuffer from params, optionally
// adjusted by opts, and precomputes its fixed lag (§4.4).
func NewFixedLagBuffer[SourceID comparable, Data any](
	params FixedLagParams[SourceID],
	opts ...FixedLagOption[SourceID],
) *FixedLagBuffer[SourceID, Data] {
	for _, opt := range opts {
		opt.applyFixedLag(&params)
	}
	return &FixedLagBuffer[SourceID, Data]{
		params:   params,
		fixedLag: computeFixedLag(params),
		log:      log.Wrap(params.Logger),
	}
}

// computeFixedLag implements the formula in §4.4: the mean delay, plus the
// batch window width in Batch mode, plus the two-sided quantile of the
// zero-mean normal at the configured delay stddev (skipped if that stddev
// is zero, since every quantile of a point mass is the mean).
func computeFixedLag[SourceID comparable](params FixedLagParams[SourceID]) time.Duration {
	lag := params.DelayMean
	if params.Mode == Batch {
		lag += params.Batch.MaxDelta
	}
	if params.DelayStddev > 0 {
		q := 1 - (1-params.DelayQuantile)/2
		lag += time.Duration(normaldist.Quantile(q, 0, float64(params.DelayStddev)))
	}
	return lag
}

// FixedLag returns the buffer's precomputed release delay.
func (b *FixedLagBuffer[SourceID, Data]) FixedLag() time.Duration {
	return b.fixedLag
}

// BufferTime returns the measurement time of the most recently released
// real sample (the zero time if nothing has been released yet).
func (b *FixedLagBuffer[SourceID, Data]) BufferTime() time.Time {
	return b.bufferTime
}

// CurrentTime returns the buffer's current time. See the type doc comment:
// Push does not track receipt times here, so it stays at its zero value.
func (b *FixedLagBuffer[SourceID, Data]) CurrentTime() time.Time {
	return b.currentTime
}

// NumQueuedElements returns the number of samples currently buffered.
func (b *FixedLagBuffer[SourceID, Data]) NumQueuedElements() int {
	return len(b.queue)
}

// Reset clears the queue and zeros both BufferTime and CurrentTime.
func (b *FixedLagBuffer[SourceID, Data]) Reset() {
	b.queue = nil
	b.bufferTime = time.Time{}
	b.currentTime = time.Time{}
}

// Push admits one sample from id (§4.4 push).
func (b *FixedLagBuffer[SourceID, Data]) Push(
	id SourceID,
	receiptTime, measTime time.Time,
	payload Data,
) (PushReturn, error) {
	if !b.currentTime.IsZero() && b.currentTime.Sub(receiptTime) > b.params.ResetThreshold {
		b.log.Info(context.Background(), "fixed-lag buffer reset",
			slog.Time("current_time", b.currentTime), slog.Time("receipt_time", receiptTime))
		b.Reset()
		return Reset, nil
	}

	b.queue = append(b.queue, newRealEntry(id, receiptTime, measTime, payload))
	sortByMeasTime(b.queue)
	return Ok, nil
}

// Pop releases every sample whose measurement time is at or before
// now-FixedLag (§4.4 pop), applying the configured Batch or Match release
// policy on top of that candidate set.
func (b *FixedLagBuffer[SourceID, Data]) Pop(now time.Time) PopReturn[SourceID, Data] {
	ref := now.Add(-b.fixedLag)

	var outputIdx, discardIdx []int
walk:
	for i, e := range b.queue {
		switch {
		case !e.measTime.After(b.bufferTime):
			discardIdx = append(discardIdx, i)
		case !e.measTime.After(ref):
			outputIdx = append(outputIdx, i)
		default:
			break walk
		}
	}

	switch b.params.Mode {
	case Batch:
		outputIdx = runBatchFixedLag(b.queue, outputIdx, b.params.Batch.MaxDelta)
	case Match:
		out, disc := runMatchFixedLag(
			b.queue, outputIdx, b.params.Match.ReferenceStream, b.params.Match.NumStreams,
		)
		outputIdx = out
		discardIdx = append(discardIdx, disc...)
	}

	outputs := collectSamples(b.queue, outputIdx)
	discards := collectSamples(b.queue, discardIdx)

	deleteIdx := dedupeInts(outputIdx, discardIdx)
	b.queue = removeIndices(b.queue, deleteIdx)
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
