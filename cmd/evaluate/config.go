// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.
package main

import (
	"os"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads and writes as an ISO-8601 duration
// string (e.g. "PT0.05S") in scenario YAML, the same format used elsewhere
// in this ecosystem for wire-level durations.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return duration.Format(time.Duration(d)), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := duration.Parse(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed.ToTimeDuration())
	return nil
}

// SourceScenario describes one synthetic measurement source: its nominal
// period and latency, and the jitter applied to each.
type SourceScenario struct {
	ID            string   `yaml:"id"`
	Period        Duration `yaml:"period"`
	Latency       Duration `yaml:"latency"`
	PeriodJitter  Duration `yaml:"period_jitter"`
	LatencyJitter Duration `yaml:"latency_jitter"`
}

// BufferScenario mirrors reorderbuffer.FixedLagParams/MinimalLatencyParams
// closely enough that main.go can build either buffer from it without
// a second, parallel set of field names.
type BufferScenario struct {
	// Kind selects which buffer to evaluate: "fixed_lag" or
	// "minimal_latency".
	Kind string `yaml:"kind"`
	// Mode selects the release policy: "single", "batch", or "match".
	Mode string `yaml:"mode"`

	ResetThreshold Duration `yaml:"reset_threshold"`

	DelayMean     Duration `yaml:"delay_mean"`
	DelayStddev   Duration `yaml:"delay_stddev"`
	DelayQuantile float64  `yaml:"delay_quantile"`

	MeasurementConfidenceQuantile float64  `yaml:"measurement_confidence_quantile"`
	MaxAbsMeasurementJitter       Duration `yaml:"max_abs_measurement_jitter"`
	WaitConfidenceQuantile        float64  `yaml:"wait_confidence_quantile"`
	MaxAbsWaitJitter              Duration `yaml:"max_abs_wait_jitter"`
	MaxTotalWaitTime              Duration `yaml:"max_total_wait_time"`

	BatchMaxDelta        Duration `yaml:"batch_max_delta"`
	MatchReferenceStream string   `yaml:"match_reference_stream"`
	MatchNumStreams      int      `yaml:"match_num_streams"`
}

// Scenario is the top-level shape of one scenario YAML file, per
// SPEC_FULL.md's Monte Carlo evaluation CLI.
type Scenario struct {
	Name          string           `yaml:"name"`
	Sources       []SourceScenario `yaml:"sources"`
	Buffer        BufferScenario   `yaml:"buffer"`
	Runs          int              `yaml:"runs"`
	SamplesPerRun int              `yaml:"samples_per_run"`
	TargetLatency Duration         `yaml:"target_latency"`
}

// LoadScenario reads and parses a scenario file from path.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
