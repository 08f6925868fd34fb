// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import "time"

// entryContent is the payload half of the queue's tagged union: a real
// sample carries Data, a placeholder carries nothing. Keeping this as an
// interface rather than an *Data-is-nil flag mirrors how the original
// implementation's "optional payload" is really two distinct kinds of
// queue element with different lifecycles.
type entryContent[Data any] interface {
	isPlaceholder() bool
}

type realContent[Data any] struct{ payload Data }

func (realContent[Data]) isPlaceholder() bool { return false }

type placeholderContent struct{}

func (placeholderContent) isPlaceholder() bool { return true }

// entry is the sole queued record: either a real sample or a placeholder
// reserving a future slot for one. The queue is always kept sorted by
// measTime, non-decreasing, after every Push and Pop.
type entry[SourceID comparable, Data any] struct {
	id SourceID

	measTime    time.Time
	receiptTime time.Time

	// earliestEstimatedMeasTime is immutable after creation: for a real
	// sample it equals measTime at insertion, for a placeholder it is the
	// earliest time the engine believes the eventual real sample can take.
	earliestEstimatedMeasTime time.Time
	// latestReceiptTime is only meaningful for placeholders: the latest
	// receipt the engine will still wait for before giving up on this slot.
	latestReceiptTime time.Time

	content entryContent[Data]

	// createdPlaceholder is a one-shot flag: whether placeholder expansion
	// has already run from this entry. It applies to real entries and to
	// the single still-open placeholder at the tail of an expansion run.
	createdPlaceholder bool
}

func (e *entry[SourceID, Data]) isPlaceholder() bool {
	return e.content.isPlaceholder()
}

func (e *entry[SourceID, Data]) payload() (Data, bool) {
	if real, ok := e.content.(realContent[Data]); ok {
		return real.payload, true
	}
	var zero Data
	return zero, false
}

func newRealEntry[SourceID comparable, Data any](
	id SourceID,
	receiptTime, measTime time.Time,
	payload Data,
) entry[SourceID, Data] {
	return entry[SourceID, Data]{
		id:                        id,
		measTime:                  measTime,
		receiptTime:               receiptTime,
		earliestEstimatedMeasTime: measTime,
		latestReceiptTime:         receiptTime,
		content:                   realContent[Data]{payload: payload},
	}
}

// newPlaceholderEntry builds a placeholder reservation for id: a queue
// element with no payload whose measTime and earliestEstimatedMeasTime are
// both earliest, and whose receiptTime and latestReceiptTime are both
// latestReceipt — the window (§4.5 "Placeholder construction") the engine
// will still wait for a real sample to land in before giving up on it.
func newPlaceholderEntry[SourceID comparable, Data any](
	id SourceID,
	earliest, latestReceipt time.Time,
) entry[SourceID, Data] {
	return entry[SourceID, Data]{
		id:                        id,
		measTime:                  earliest,
		receiptTime:               latestReceipt,
		earliestEstimatedMeasTime: earliest,
		latestReceiptTime:         latestReceipt,
		content:                   placeholderContent{},
	}
}

// becomeReal replaces a placeholder's identity with an arrived real sample
// (§4.5 push step 5): measTime, receiptTime and the payload change, but
// earliestEstimatedMeasTime, latestReceiptTime, and createdPlaceholder are
// preserved from the slot being filled. createdPlaceholder in particular must survive this call: it
// records whether this slot was already expanded from, and expandPlaceholders
// consults it to decide whether filling this sample should mint anything.
func (e *entry[SourceID, Data]) becomeReal(receiptTime, measTime time.Time, payload Data) {
	e.measTime = measTime
	e.receiptTime = receiptTime
	e.content = realContent[Data]{payload: payload}
}

func (e entry[SourceID, Data]) toSample() Sample[SourceID, Data] {
	payload, _ := e.payload()
	return Sample[SourceID, Data]{
		ID:          e.id,
		MeasTime:    e.measTime,
		ReceiptTime: e.receiptTime,
		Payload:     payload,
	}
}
