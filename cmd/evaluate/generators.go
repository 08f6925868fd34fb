// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package main

import (
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// jitterSource is the one method of distuv.Normal the generator actually
// needs, narrowed to an interface so tests can substitute a mock instead of
// wiring a real random source.
type jitterSource interface {
	Rand() float64
}

// SourceGenerator produces a synthetic stream of (receiptTime, measTime)
// pairs for one source, grounded on
// original_source/python/evaluation_framework/generators.py: a nominal
// period and latency, each independently perturbed by zero-mean Gaussian
// jitter. Measurement times never decrease; receipt times are not forced to
// be monotonic, since latency jitter can reorder them.
type SourceGenerator struct {
	ID      string
	Period  time.Duration
	Latency time.Duration

	periodJitter  jitterSource
	latencyJitter jitterSource

	nextMeasTime time.Time
}

// NewSourceGenerator builds a generator for id, anchored at epoch.
func NewSourceGenerator(
	id string,
	period, latency, periodJitter, latencyJitter time.Duration,
	epoch time.Time,
	rng *rand.Rand,
) *SourceGenerator {
	return &SourceGenerator{
		ID:      id,
		Period:  period,
		Latency: latency,
		periodJitter: distuv.Normal{
			Mu: 0, Sigma: float64(periodJitter), Src: rng,
		},
		latencyJitter: distuv.Normal{
			Mu: 0, Sigma: float64(latencyJitter), Src: rng,
		},
		nextMeasTime: epoch,
	}
}

// Next returns the next (receiptTime, measTime) pair and advances the
// generator's internal clock by one jittered period.
func (g *SourceGenerator) Next() (receiptTime, measTime time.Time) {
	measTime = g.nextMeasTime
	receiptTime = measTime.Add(g.Latency + time.Duration(g.latencyJitter.Rand()))

	period := g.Period + time.Duration(g.periodJitter.Rand())
	if period < 0 {
		period = 0
	}
	g.nextMeasTime = measTime.Add(period)

	return receiptTime, measTime
}
