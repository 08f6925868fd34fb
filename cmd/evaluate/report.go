// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/xid"
)

// SessionResult summarizes one simulated buffer session, grounded on the
// per-run records original_source/python/evaluation_framework/
// monte_carlo_framework.py accumulates.
type SessionResult struct {
	RunID           xid.ID
	AchievedLatency time.Duration
	Discarded       int
	Resets          int
}

// Report accumulates SessionResults across a Monte Carlo batch and prints
// a colorized pass/fail summary against a target latency, alongside a
// second, independent EWMA of achieved latency kept by VividCortex/ewma —
// distinct from the core Estimator's own bespoke EWMA, which this CLI
// never touches directly.
type Report struct {
	target   time.Duration
	quantile float64

	rolling ewma.MovingAverage
	results []SessionResult
}

// NewReport builds a Report judged against target at the given quantile.
func NewReport(target time.Duration, quantile float64) *Report {
	return &Report{
		target:   target,
		quantile: quantile,
		rolling:  ewma.NewMovingAverage(),
	}
}

// Record folds one session's result into the report.
func (r *Report) Record(res SessionResult) {
	r.results = append(r.results, res)
	r.rolling.Add(float64(res.AchievedLatency))
}

// Print writes the colorized summary to stdout. Color is suppressed when
// stdout is not a terminal.
func (r *Report) Print() {
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())

	if len(r.results) == 0 {
		fmt.Println(color.YellowString("no sessions recorded"))
		return
	}

	var sum, sumSq float64
	var discards, resets int
	for _, res := range r.results {
		v := float64(res.AchievedLatency)
		sum += v
		sumSq += v * v
		discards += res.Discarded
		resets += res.Resets
	}
	n := float64(len(r.results))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	stddev := time.Duration(math.Sqrt(variance))

	status := color.GreenString("PASS")
	if time.Duration(mean) > r.target {
		status = color.RedString("FAIL")
	}

	fmt.Printf(
		"%s  mean achieved latency %s ± %s against target %s @ q=%.3f\n",
		status, time.Duration(mean), stddev, r.target, r.quantile,
	)
	fmt.Printf("rolling EWMA latency: %s\n", time.Duration(r.rolling.Value()))
	fmt.Printf(
		"sessions: %d  discarded samples: %d  resets: %d\n",
		len(r.results), discards, resets,
	)
}
