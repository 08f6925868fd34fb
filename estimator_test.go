// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package reorderbuffer

import (
	"testing"
	"time"

	"github.com/measuresync/reorderbuffer/errors"
	"github.com/stretchr/testify/require"
)

// TestEstimatorPerfectlyPeriodicZeroVariance exercises property 7: feeding
// the estimator perfectly periodic (receipt, meas) pairs with constant
// latency yields zero variance and exact mean estimates.
func TestEstimatorPerfectlyPeriodicZeroVariance(t *testing.T) {
	const period = 50 * time.Millisecond
	const latency = 10 * time.Millisecond

	base := time.Unix(0, 0)
	meas := base
	est := NewEstimator("A", meas.Add(latency), meas)

	for i := 0; i < 20; i++ {
		meas = meas.Add(period)
		require.NoError(t, est.Update(meas.Add(latency), meas, 0))
	}

	require.True(t, est.IsInitialized())
	require.Equal(t, period, est.Period())
	require.Equal(t, latency, est.Latency())
	require.Zero(t, est.PeriodStddev())
	require.Zero(t, est.LatencyStddev())

	// Every quantile of a degenerate (zero-variance) distribution is its
	// mean.
	require.Equal(t, period, est.PeriodQuantile(0.01))
	require.Equal(t, period, est.PeriodQuantile(0.99))
}

// TestEstimatorToleratesOneMissedTick exercises property 8: correcting for
// one skipped tick at num_missing=1 should not perturb the period estimate
// relative to the unskipped sequence, beyond the smoothing the skip itself
// introduces.
func TestEstimatorToleratesOneMissedTick(t *testing.T) {
	const period = 100 * time.Millisecond
	const latency = 5 * time.Millisecond

	base := time.Unix(0, 0)
	meas := base
	est := NewEstimator("A", meas.Add(latency), meas)

	for i := 0; i < 5; i++ {
		meas = meas.Add(period)
		require.NoError(t, est.Update(meas.Add(latency), meas, 0))
	}
	before := est.Period()

	// One tick from this source never arrived; the next real sample is two
	// periods later, reported with numMissing=1.
	meas = meas.Add(2 * period)
	require.NoError(t, est.Update(meas.Add(latency), meas, 1))

	require.InDelta(t, float64(before), float64(est.Period()), float64(5*time.Millisecond))
}

// TestEstimatorDesyncAfterBootstrap exercises property 9: once more than
// 10 updates have landed, a numMissing value that drives the corrected
// period negative raises EstimatorDesync and leaves state unchanged.
func TestEstimatorDesyncAfterBootstrap(t *testing.T) {
	const period = 20 * time.Millisecond
	const latency = time.Millisecond

	base := time.Unix(0, 0)
	meas := base
	est := NewEstimator("A", meas.Add(latency), meas)

	for i := 0; i < 12; i++ {
		meas = meas.Add(period)
		require.NoError(t, est.Update(meas.Add(latency), meas, 0))
	}

	periodBefore := est.Period()
	varianceBefore := est.periodState.variance

	meas = meas.Add(period)
	err := est.Update(meas.Add(latency), meas, 1000)

	require.Error(t, err)
	var desync *errors.Error
	require.ErrorAs(t, err, &desync)
	require.Equal(t, errors.EstimatorDesync, desync.Kind)
	require.Equal(t, periodBefore, est.Period())
	require.Equal(t, varianceBefore, est.periodState.variance)
}

// TestEstimatorDesyncSwallowedDuringBootstrap checks the other half of the
// corrected<0 branch: within the first 10 updates, the same situation is
// silently skipped rather than erroring.
func TestEstimatorDesyncSwallowedDuringBootstrap(t *testing.T) {
	const period = 20 * time.Millisecond
	const latency = time.Millisecond

	base := time.Unix(0, 0)
	meas := base
	est := NewEstimator("A", meas.Add(latency), meas)

	meas = meas.Add(period)
	require.NoError(t, est.Update(meas.Add(latency), meas, 0))
	meas = meas.Add(period)
	require.NoError(t, est.Update(meas.Add(latency), meas, 0))

	periodBefore := est.Period()

	meas = meas.Add(period)
	require.NoError(t, est.Update(meas.Add(latency), meas, 1000))

	require.Equal(t, periodBefore, est.Period())
	require.Equal(t, 3, est.NumUpdates())
}

func TestEstimatorUpdateLatencyOnlyDoesNotCountAsUpdate(t *testing.T) {
	base := time.Unix(0, 0)
	est := NewEstimator("A", base.Add(10*time.Millisecond), base)
	require.Equal(t, 0, est.NumUpdates())

	est.UpdateLatencyOnly(base.Add(20*time.Millisecond), base.Add(10*time.Millisecond))
	require.Equal(t, 0, est.NumUpdates())
	require.Equal(t, 10*time.Millisecond, est.Latency())
}

func TestEstimatorIsInitializedThreshold(t *testing.T) {
	base := time.Unix(0, 0)
	est := NewEstimator("A", base.Add(time.Millisecond), base)
	require.False(t, est.IsInitialized())

	require.NoError(t, est.Update(base.Add(51*time.Millisecond), base.Add(50*time.Millisecond), 0))
	require.False(t, est.IsInitialized())

	require.NoError(t, est.Update(base.Add(101*time.Millisecond), base.Add(100*time.Millisecond), 0))
	require.True(t, est.IsInitialized())
}
