// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.

// Package errors defines the structured error kinds the buffer engine can
// report: a single Error type carrying a Kind plus whichever fields that
// kind needs, with a slog-friendly Attrs() method so callers can log them
// uniformly.
package errors

import (
	"fmt"
	"log/slog"
)

// Kind identifies the category of a buffer [Error].
type Kind int

const (
	// BufferReset is returned (as a PushReturn, not an error, by Push
	// itself) when a backward receipt-time jump forced a full reset. It is
	// listed here so callers can reason about it alongside the other kinds.
	BufferReset Kind = iota
	// PopBackwards indicates Pop was called with a time earlier than the
	// buffer's current time; the call is a no-op and returns an empty
	// result rather than this error, but diagnostics may want to log it.
	PopBackwards
	// EstimatorDesync indicates a source's observed inter-arrival pattern
	// is inconsistent with num_missing_measurements the buffer computed for
	// it, after the estimator has accumulated enough history that this can
	// no longer be attributed to start-up noise.
	EstimatorDesync
	// UninitializedPlaceholderRequest indicates placeholder expansion was
	// attempted for a source whose estimator is not yet initialized. The
	// buffer's own bookkeeping prevents this; it is unreachable by
	// construction and exists only so a defensive check has something to
	// return.
	UninitializedPlaceholderRequest
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case BufferReset:
		return "buffer_reset"
	case PopBackwards:
		return "pop_backwards"
	case EstimatorDesync:
		return "estimator_desync"
	case UninitializedPlaceholderRequest:
		return "uninitialized_placeholder_request"
	default:
		return "unknown"
	}
}

// Error is the single structured error type the buffer engine returns.
type Error struct {
	Message string
	Kind     Kind

	// SourceID, as a string, for errors scoped to one source's estimator.
	SourceID string

	NumMissing        int
	CorrectedEstimate float64
	NumUpdates        int
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Attrs returns structured slog attributes describing this error, letting a
// caller log it uniformly regardless of Kind.
func (e *Error) Attrs() []slog.Attr {
	a := []slog.Attr{slog.String("kind", e.Kind.String())}

	if e.SourceID != "" {
		a = append(a, slog.String("source_id", e.SourceID))
	}

	switch e.Kind {
	case EstimatorDesync:
		a = append(a,
			slog.Int("num_missing", e.NumMissing),
			slog.Float64("corrected_estimate", e.CorrectedEstimate),
			slog.Int("num_updates", e.NumUpdates),
		)
	}

	return a
}

// Desync builds an EstimatorDesync error for the given source.
func Desync(sourceID string, numMissing int, corrected float64, numUpdates int) *Error {
	return &Error{
		Message: fmt.Sprintf(
			"estimator desync for source %s: num_missing=%d produced a negative corrected period estimate (%.0f) after %d updates",
			sourceID, numMissing, corrected, numUpdates,
		),
		Kind:              EstimatorDesync,
		SourceID:          sourceID,
		NumMissing:        numMissing,
		CorrectedEstimate: corrected,
		NumUpdates:        numUpdates,
	}
}

// UninitializedPlaceholder builds an UninitializedPlaceholderRequest error.
func UninitializedPlaceholder(sourceID string) *Error {
	return &Error{
		Message:  fmt.Sprintf("cannot create a placeholder for source %s: its estimator is not yet initialized", sourceID),
		Kind:     UninitializedPlaceholderRequest,
		SourceID: sourceID,
	}
}
