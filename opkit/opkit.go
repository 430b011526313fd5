/*
NAME
  opkit.go

DESCRIPTION
  opkit.go provides the small set of things every top-level operation
  shares: a progress-callback type, a helper that turns byte-granularity
  progress into the integer-percent transitions callers expect, and a
  no-op logger so operations are safely callable without one.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package opkit holds cross-cutting types shared by the split, downsample,
// expand, sync, align and summary operations.
package opkit

import "github.com/ausocean/utils/logging"

// Progress is invoked synchronously with an integer 0..100 at each
// percent transition, and once more with 100 on completion. Implementations
// must not retain p beyond the call.
type Progress func(percent int)

// noop discards a percentage update; used when the caller passes a nil
// Progress so operations never need to nil-check before calling it.
func noop(int) {}

// OrNoop returns p, or a no-op callback if p is nil.
func OrNoop(p Progress) Progress {
	if p == nil {
		return noop
	}
	return p
}

// PercentTracker converts a running byte (or sample) count against a known
// total into the integer-percent transitions that Progress expects,
// reporting each new percentage exactly once.
type PercentTracker struct {
	total  int64
	last   int
	Report Progress
}

// NewPercentTracker returns a tracker for a stream of the given total size.
// A total of zero is legal; Update always reports 100 in that case.
func NewPercentTracker(total int64, report Progress) *PercentTracker {
	return &PercentTracker{total: total, last: 0, Report: OrNoop(report)}
}

// Update is called with the cumulative number of bytes processed so far and
// invokes Report once with the current percentage if it is above the last
// one reported.
func (t *PercentTracker) Update(done int64) {
	pct := 100
	if t.total > 0 {
		pct = int(done * 100 / t.total)
		if pct > 100 {
			pct = 100
		}
	}
	if pct <= t.last {
		return
	}
	t.last = pct
	t.Report(pct)
}

// Done reports 100% unconditionally, matching the "once with 100 at
// completion" contract even for degenerate zero-length streams.
func (t *PercentTracker) Done() {
	if t.last == 100 {
		return
	}
	t.last = 100
	t.Report(100)
}

// NopLogger returns a logging.Logger that discards everything, so that
// operations invoked with a nil logger never need special-casing.
func NopLogger() logging.Logger {
	return logging.New(logging.Fatal+1, discard{}, true)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// OrNop returns l, or a discarding logger if l is nil.
func OrNop(l logging.Logger) logging.Logger {
	if l == nil {
		return NopLogger()
	}
	return l
}
