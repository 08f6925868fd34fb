// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"math"
	"time"

	"github.com/measuresync/reorderbuffer/errors"
	"github.com/measuresync/reorderbuffer/internal/normaldist"
)

// defaultAlpha is the exponential smoothing factor used unless the caller
// configures otherwise.
const defaultAlpha = 0.05

// estimatorState holds one exponentially-weighted mean/variance pair. Its
// zero value is a legitimate starting point; the first couple of updates
// special-case their own initialization (see updateEstimate's callers).
type estimatorState struct {
	mean     float64
	variance float64
}

// updateEstimate applies one step of the estimator's weighted update: a
// standard EWMA mean update, plus a Welford-like weighted variance update
// that can be suppressed (updateVariance=false) while the variance is still
// awaiting its own two-sample initialization.
func updateEstimate(state estimatorState, alpha, observation float64, updateVariance bool) estimatorState {
	d := observation - state.mean
	delta := alpha * d
	mean := state.mean + delta

	variance := state.variance
	if updateVariance {
		variance = (1 - alpha) * (state.variance + d*delta)
	}

	return estimatorState{mean: mean, variance: variance}
}

// Estimator maintains per-source online estimates of measurement period and
// end-to-end latency, with variance, via an exponentially weighted moving
// average with a coupled variance update. It is not safe for concurrent
// use; each source gets its own Estimator, owned by the buffer.
type Estimator struct {
	sourceID string // only used to label EstimatorDesync errors
	alpha    float64

	numUpdates int

	lastMeasTime    time.Time
	lastCurrentTime time.Time

	periodState  estimatorState
	latencyState estimatorState
}

// NewEstimator creates an estimator seeded by a source's first observed
// sample. Variance starts at zero; a second update is required before
// IsInitialized reports true.
func NewEstimator(sourceID string, currentTime, measTime time.Time) *Estimator {
	return &Estimator{
		sourceID:        sourceID,
		alpha:           defaultAlpha,
		lastMeasTime:    measTime,
		lastCurrentTime: currentTime,
		latencyState:    estimatorState{mean: float64(currentTime.Sub(measTime))},
	}
}

// NewEstimatorWithAlpha is like NewEstimator but overrides the default
// smoothing factor.
func NewEstimatorWithAlpha(sourceID string, currentTime, measTime time.Time, alpha float64) *Estimator {
	e := NewEstimator(sourceID, currentTime, measTime)
	e.alpha = alpha
	return e
}

// IsInitialized reports whether the estimator has seen enough updates for
// its mean/variance estimates (and hence its quantiles) to be meaningful.
func (e *Estimator) IsInitialized() bool {
	return e.numUpdates >= 2
}

// NumUpdates returns the count of full Update calls applied so far.
func (e *Estimator) NumUpdates() int {
	return e.numUpdates
}

// Period returns the current mean period estimate.
func (e *Estimator) Period() time.Duration {
	return time.Duration(e.periodState.mean)
}

// PeriodStddev returns the current period standard deviation.
func (e *Estimator) PeriodStddev() time.Duration {
	return time.Duration(math.Sqrt(e.periodState.variance))
}

// PeriodQuantile returns the inverse normal CDF of the period distribution
// at q. If the variance is exactly zero, every quantile equals the mean.
func (e *Estimator) PeriodQuantile(q float64) time.Duration {
	return time.Duration(normaldist.Quantile(q, e.periodState.mean, math.Sqrt(e.periodState.variance)))
}

// Latency returns the current mean latency estimate.
func (e *Estimator) Latency() time.Duration {
	return time.Duration(e.latencyState.mean)
}

// LatencyStddev returns the current latency standard deviation.
func (e *Estimator) LatencyStddev() time.Duration {
	return time.Duration(math.Sqrt(e.latencyState.variance))
}

// LatencyQuantile returns the inverse normal CDF of the latency
// distribution at q. If the variance is exactly zero, every quantile
// equals the mean.
func (e *Estimator) LatencyQuantile(q float64) time.Duration {
	return time.Duration(normaldist.Quantile(q, e.latencyState.mean, math.Sqrt(e.latencyState.variance)))
}

// Update folds in a new observation: current is the receipt time, meas is
// the measurement time, and numMissing is the number of expected samples
// that were never received between the previous update and this one (used
// to correct the period estimate for gaps). It advances the anchors and
// increments NumUpdates on every call, even if the period half of the
// update was skipped due to a not-yet-fatal desync (see
// updatePeriodEstimate).
//
// If the desync has persisted past the estimator's bootstrap window, Update
// returns an *errors.Error of kind EstimatorDesync and leaves all state
// unchanged; callers should treat the sample as otherwise successfully
// pushed and simply skip this one estimator update.
func (e *Estimator) Update(current, meas time.Time, numMissing int) error {
	estimatedLatency := float64(current.Sub(meas))
	estimatedPeriod := float64(meas.Sub(e.lastMeasTime))

	if err := e.updatePeriodEstimate(estimatedPeriod, numMissing); err != nil {
		return err
	}
	e.updateLatencyEstimate(estimatedLatency)

	e.lastMeasTime = meas
	e.lastCurrentTime = current
	e.numUpdates++
	return nil
}

// UpdateLatencyOnly folds in a new latency observation without touching the
// period estimate or NumUpdates. It is used when a sample could not be
// matched to a placeholder with confidence, so the number of missed
// measurements since the last update cannot be trusted.
func (e *Estimator) UpdateLatencyOnly(current, meas time.Time) {
	estimatedLatency := float64(current.Sub(meas))
	e.updateLatencyEstimate(estimatedLatency)
	e.lastMeasTime = meas
	e.lastCurrentTime = current
}

func (e *Estimator) updatePeriodEstimate(estimate float64, numMissing int) error {
	switch e.numUpdates {
	case 0:
		e.periodState.mean = estimate
		return nil
	case 1:
		firstEstimate := e.periodState.mean
		e.periodState = updateEstimate(e.periodState, e.alpha, estimate, false)
		e.periodState.variance = math.Pow(firstEstimate-e.periodState.mean, 2) +
			math.Pow(estimate-e.periodState.mean, 2)
		return nil
	}

	corrected := estimate - float64(numMissing)*e.periodState.mean
	if corrected < 0 {
		if e.numUpdates <= 10 {
			// Early on, a small timing wobble can plausibly overcorrect;
			// silently skip this cycle's period update rather than failing.
			return nil
		}
		return errors.Desync(e.sourceID, numMissing, corrected, e.numUpdates)
	}

	e.periodState = updateEstimate(e.periodState, e.alpha, corrected, true)
	return nil
}

func (e *Estimator) updateLatencyEstimate(estimate float64) {
	if e.numUpdates == 0 {
		firstEstimate := float64(e.lastCurrentTime.Sub(e.lastMeasTime))
		e.latencyState = updateEstimate(e.latencyState, e.alpha, estimate, false)
		e.latencyState.variance = math.Pow(firstEstimate-e.latencyState.mean, 2) +
			math.Pow(estimate-e.latencyState.mean, 2)
		return
	}

	e.latencyState = updateEstimate(e.latencyState, e.alpha, estimate, true)
}
