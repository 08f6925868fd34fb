// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.

// Package normaldist wraps gonum's normal distribution quantile function
// with the zero-variance guard the estimator and placeholder construction
// both need: with perfectly regular synthetic input, standard deviation is
// legitimately zero, and every quantile of a degenerate distribution is
// its mean.
package normaldist

import "gonum.org/v1/gonum/stat/distuv"

// Quantile returns the inverse CDF of a Normal(mean, stddev) distribution at
// p. If stddev is zero, it returns mean for every p rather than dividing by
// zero inside gonum.
func Quantile(p, mean, stddev float64) float64 {
	if stddev == 0 {
		return mean
	}
	return distuv.Normal{Mu: mean, Sigma: stddev}.Quantile(p)
}
