// Copyright (c) reorderbuffer contributors.
// Licensed under the MIT License.

// Package reorderbuffer implements a time-ordered reordering buffer for
// multi-source measurement streams.
//
// Independent sources each emit timestamped samples whose receipt is delayed
// and jittered relative to the time they measure. Consumers need samples
// delivered in non-decreasing measurement-time order with a predictable
// latency floor, optionally batched (nearby measurements grouped) or matched
// (one tuple per reference sample, with the nearest neighbor from every other
// source).
//
// Two buffer implementations share the same release policies:
//
//   - [FixedLagBuffer] releases a sample once a statically computed delay
//     quantile has elapsed.
//   - [MinimalLatencyBuffer] releases a sample as early as a per-source
//     [Estimator]'s confidence bounds allow, filling gaps with virtual
//     placeholders for samples that have not arrived yet.
//
// Both are pure, single-threaded state machines: every time value is
// supplied by the caller through Push or Pop, and nothing internally reads
// the wall clock. Callers are responsible for serializing their own access
// and for calling Push/Pop with non-decreasing receipt/poll times.
package reorderbuffer
