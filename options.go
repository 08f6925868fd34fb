// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"log/slog"
	"time"
)

// FixedLagOption represents a single FixedLagBuffer construction option,
// layered on top of FixedLagParams the way a CommandExecutorOption layers
// on top of CommandExecutorOptions in the wider SDK this package's idiom is
// drawn from: the params struct remains the source of truth, options are
// sugar. Go's generic methods restriction means each option must itself be
// parameterized over SourceID (unlike a plain non-generic named-type
// option), so these are built from constructor functions rather than bare
// type conversions.
type FixedLagOption[SourceID comparable] interface {
	applyFixedLag(*FixedLagParams[SourceID])
}

// MinimalLatencyOption represents a single MinimalLatencyBuffer
// construction option.
type MinimalLatencyOption[SourceID comparable] interface {
	applyMinimalLatency(*MinimalLatencyParams[SourceID])
}

type modeOption[SourceID comparable] struct{ mode BufferMode }

// WithMode sets the release policy (Single, Batch, or Match) on either
// buffer.
func WithMode[SourceID comparable](mode BufferMode) modeOption[SourceID] {
	return modeOption[SourceID]{mode}
}

func (o modeOption[SourceID]) applyFixedLag(p *FixedLagParams[SourceID]) {
	p.Mode = o.mode
}

func (o modeOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.Mode = o.mode
}

type resetThresholdOption[SourceID comparable] struct{ threshold time.Duration }

// WithResetThreshold sets the maximum allowed backward jump in receipt
// time before a full Reset, on either buffer.
func WithResetThreshold[SourceID comparable](threshold time.Duration) resetThresholdOption[SourceID] {
	return resetThresholdOption[SourceID]{threshold}
}

func (o resetThresholdOption[SourceID]) applyFixedLag(p *FixedLagParams[SourceID]) {
	p.ResetThreshold = o.threshold
}

func (o resetThresholdOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.ResetThreshold = o.threshold
}

type batchOption[SourceID comparable] struct{ params BatchParams }

// WithBatch configures the Batch release policy, on either buffer.
func WithBatch[SourceID comparable](params BatchParams) batchOption[SourceID] {
	return batchOption[SourceID]{params}
}

func (o batchOption[SourceID]) applyFixedLag(p *FixedLagParams[SourceID]) {
	p.Batch = o.params
}

func (o batchOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.Batch = o.params
}

type matchOption[SourceID comparable] struct{ params MatchParams[SourceID] }

// WithMatch configures the Match release policy, on either buffer.
func WithMatch[SourceID comparable](params MatchParams[SourceID]) matchOption[SourceID] {
	return matchOption[SourceID]{params}
}

func (o matchOption[SourceID]) applyFixedLag(p *FixedLagParams[SourceID]) {
	p.Match = o.params
}

func (o matchOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.Match = o.params
}

type loggerOption[SourceID comparable] struct{ logger *slog.Logger }

// WithLogger attaches a logger to either buffer; nil restores silent
// operation.
func WithLogger[SourceID comparable](logger *slog.Logger) loggerOption[SourceID] {
	return loggerOption[SourceID]{logger}
}

func (o loggerOption[SourceID]) applyFixedLag(p *FixedLagParams[SourceID]) {
	p.Logger = o.logger
}

func (o loggerOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.Logger = o.logger
}

type delayOption[SourceID comparable] struct {
	mean, stddev time.Duration
	quantile     float64
}

// WithDelay sets DelayMean, DelayStddev, and DelayQuantile on a
// FixedLagBuffer.
func WithDelay[SourceID comparable](mean, stddev time.Duration, quantile float64) delayOption[SourceID] {
	return delayOption[SourceID]{mean, stddev, quantile}
}

func (o delayOption[SourceID]) applyFixedLag(p *FixedLagParams[SourceID]) {
	p.DelayMean, p.DelayStddev, p.DelayQuantile = o.mean, o.stddev, o.quantile
}

type measurementConfidenceOption[SourceID comparable] struct {
	quantile     float64
	maxAbsJitter time.Duration
}

// WithMeasurementConfidence sets MeasurementConfidenceQuantile and
// MaxAbsMeasurementJitter on a MinimalLatencyBuffer.
func WithMeasurementConfidence[SourceID comparable](
	quantile float64,
	maxAbsJitter time.Duration,
) measurementConfidenceOption[SourceID] {
	return measurementConfidenceOption[SourceID]{quantile, maxAbsJitter}
}

func (o measurementConfidenceOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.MeasurementConfidenceQuantile = o.quantile
	p.MaxAbsMeasurementJitter = o.maxAbsJitter
}

type waitConfidenceOption[SourceID comparable] struct {
	quantile     float64
	maxAbsJitter time.Duration
	maxTotalWait time.Duration
}

// WithWaitConfidence sets WaitConfidenceQuantile, MaxAbsWaitJitter, and
// MaxTotalWaitTime on a MinimalLatencyBuffer.
func WithWaitConfidence[SourceID comparable](
	quantile float64,
	maxAbsJitter, maxTotalWait time.Duration,
) waitConfidenceOption[SourceID] {
	return waitConfidenceOption[SourceID]{quantile, maxAbsJitter, maxTotalWait}
}

func (o waitConfidenceOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.WaitConfidenceQuantile = o.quantile
	p.MaxAbsWaitJitter = o.maxAbsJitter
	p.MaxTotalWaitTime = o.maxTotalWait
}

type alphaOption[SourceID comparable] struct{ alpha float64 }

// WithAlpha overrides the exponential smoothing factor used by every
// source's Estimator in a MinimalLatencyBuffer.
func WithAlpha[SourceID comparable](alpha float64) alphaOption[SourceID] {
	return alphaOption[SourceID]{alpha}
}

func (o alphaOption[SourceID]) applyMinimalLatency(p *MinimalLatencyParams[SourceID]) {
	p.Alpha = o.alpha
}
