// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.

// Command evaluate runs a Monte Carlo batch of simulated buffer sessions
// against a scenario file, grounded on
// original_source/python/evaluation_framework/monte_carlo_framework.py and
// original_source/publications/iv_2025/. It exists to exercise the
// reorderbuffer library end to end, not to satisfy any requirement of the
// core spec itself.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"golang.org/x/exp/rand"

	"github.com/cheggaaa/pb/v3"
	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/measuresync/reorderbuffer"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to a scenario YAML file")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: evaluate -scenario path/to/scenario.yaml")
		os.Exit(2)
	}

	scenario, err := LoadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading scenario: %v\n", err)
		os.Exit(1)
	}

	batchID := uuid.New()
	slog.Info("starting evaluation batch",
		"batch_id", batchID.String(), "scenario", scenario.Name, "runs", scenario.Runs)

	report := NewReport(time.Duration(scenario.TargetLatency), scenario.Buffer.DelayQuantile)

	bar := pb.StartNew(scenario.Runs)
	for run := 0; run < scenario.Runs; run++ {
		rng := rand.New(rand.NewSource(uint64(run) + 1)) //nolint:gosec // deterministic per-run seed, not security sensitive
		report.Record(runSession(scenario, rng))
		bar.Increment()
	}
	bar.Finish()

	report.Print()
}

func parseMode(s string) reorderbuffer.BufferMode {
	switch s {
	case "batch":
		return reorderbuffer.Batch
	case "match":
		return reorderbuffer.Match
	default:
		return reorderbuffer.Single
	}
}

func newFixedLagBuffer(scenario *Scenario) *reorderbuffer.FixedLagBuffer[string, struct{}] {
	bs := scenario.Buffer
	params := reorderbuffer.FixedLagParams[string]{
		Mode:           parseMode(bs.Mode),
		ResetThreshold: time.Duration(bs.ResetThreshold),
		DelayMean:      time.Duration(bs.DelayMean),
		DelayStddev:    time.Duration(bs.DelayStddev),
		DelayQuantile:  bs.DelayQuantile,
		Batch:          reorderbuffer.BatchParams{MaxDelta: time.Duration(bs.BatchMaxDelta)},
		Match: reorderbuffer.MatchParams[string]{
			ReferenceStream: bs.MatchReferenceStream,
			NumStreams:      bs.MatchNumStreams,
		},
	}
	return reorderbuffer.NewFixedLagBuffer[string, struct{}](params)
}

func newMinimalLatencyBuffer(scenario *Scenario) *reorderbuffer.MinimalLatencyBuffer[string, struct{}] {
	bs := scenario.Buffer
	params := reorderbuffer.MinimalLatencyParams[string]{
		Mode:                          parseMode(bs.Mode),
		ResetThreshold:                time.Duration(bs.ResetThreshold),
		MeasurementConfidenceQuantile: bs.MeasurementConfidenceQuantile,
		MaxAbsMeasurementJitter:       time.Duration(bs.MaxAbsMeasurementJitter),
		WaitConfidenceQuantile:        bs.WaitConfidenceQuantile,
		MaxAbsWaitJitter:              time.Duration(bs.MaxAbsWaitJitter),
		MaxTotalWaitTime:              time.Duration(bs.MaxTotalWaitTime),
		Batch:                         reorderbuffer.BatchParams{MaxDelta: time.Duration(bs.BatchMaxDelta)},
		Match: reorderbuffer.MatchParams[string]{
			ReferenceStream: bs.MatchReferenceStream,
			NumStreams:      bs.MatchNumStreams,
		},
	}
	return reorderbuffer.NewMinimalLatencyBuffer[string, struct{}](params)
}

// pendingSample is one generated (receiptTime, measTime) pair awaiting
// Push, ordered into a round by receiptTime so multiple sources interleave
// the way independent real sources would.
type pendingSample struct {
	id                    string
	receiptTime, measTime time.Time
}

func nextRound(gens []*SourceGenerator) []pendingSample {
	round := make([]pendingSample, len(gens))
	for i, g := range gens {
		rt, mt := g.Next()
		round[i] = pendingSample{g.ID, rt, mt}
	}
	sort.Slice(round, func(i, j int) bool {
		return round[i].receiptTime.Before(round[j].receiptTime)
	})
	return round
}

func runSession(scenario *Scenario, rng *rand.Rand) SessionResult {
	epoch := time.Unix(0, 0)
	gens := make([]*SourceGenerator, len(scenario.Sources))
	for i, src := range scenario.Sources {
		gens[i] = NewSourceGenerator(
			src.ID, time.Duration(src.Period), time.Duration(src.Latency),
			time.Duration(src.PeriodJitter), time.Duration(src.LatencyJitter),
			epoch, rng,
		)
	}

	result := SessionResult{RunID: xid.New()}

	if scenario.Buffer.Kind == "minimal_latency" {
		runMinimalLatencySession(newMinimalLatencyBuffer(scenario), gens, scenario.SamplesPerRun, &result)
	} else {
		runFixedLagSession(newFixedLagBuffer(scenario), gens, scenario.SamplesPerRun, &result)
	}

	return result
}

func runFixedLagSession(
	buf *reorderbuffer.FixedLagBuffer[string, struct{}],
	gens []*SourceGenerator,
	samplesPerRun int,
	result *SessionResult,
) {
	var now time.Time
	var latencySum time.Duration
	var count int

	for step := 0; step < samplesPerRun; step++ {
		for _, p := range nextRound(gens) {
			ret, _ := buf.Push(p.id, p.receiptTime, p.measTime, struct{}{})
			if ret == reorderbuffer.Reset {
				result.Resets++
			}
			if p.receiptTime.After(now) {
				now = p.receiptTime
			}
		}

		popped := buf.Pop(now)
		for _, s := range popped.Data {
			latencySum += now.Sub(s.MeasTime)
			count++
		}
		result.Discarded += len(popped.DiscardedData)
	}

	drain := buf.Pop(now.Add(buf.FixedLag() + time.Hour))
	for _, s := range drain.Data {
		latencySum += now.Sub(s.MeasTime)
		count++
	}
	result.Discarded += len(drain.DiscardedData)

	if count > 0 {
		result.AchievedLatency = latencySum / time.Duration(count)
	}
}

func runMinimalLatencySession(
	buf *reorderbuffer.MinimalLatencyBuffer[string, struct{}],
	gens []*SourceGenerator,
	samplesPerRun int,
	result *SessionResult,
) {
	var now time.Time
	var latencySum time.Duration
	var count int

	for step := 0; step < samplesPerRun; step++ {
		for _, p := range nextRound(gens) {
			ret, _ := buf.Push(p.id, p.receiptTime, p.measTime, struct{}{})
			if ret == reorderbuffer.Reset {
				result.Resets++
			}
			if p.receiptTime.After(now) {
				now = p.receiptTime
			}
		}

		popped := buf.Pop(now)
		for _, s := range popped.Data {
			latencySum += now.Sub(s.MeasTime)
			count++
		}
		result.Discarded += len(popped.DiscardedData)
	}

	drain := buf.Pop(now.Add(24 * time.Hour))
	for _, s := range drain.Data {
		latencySum += now.Sub(s.MeasTime)
		count++
	}
	result.Discarded += len(drain.DiscardedData)

	if count > 0 {
		result.AchievedLatency = latencySum / time.Duration(count)
	}
}
