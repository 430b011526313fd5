/*
NAME
  plan.go

DESCRIPTION
  plan.go brackets a recording's UTC start time against a session's
  committed fixes and derives the clock-offset and sample-rate endpoints
  the streaming engine resamples against.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package align

import (
	"math"

	"github.com/fieldrec/loggertools/errkind"
)

// maxDivergence is the fractional deviation from the median sample rate,
// expressed as 400 HFXO ticks relative to a 48MHz reference clock, beyond
// which an endpoint's own rate is distrusted in favour of the median.
const maxDivergence = 400.0 / 48e6

// maxRateMismatchMHz is the largest allowed deviation, in mHz, between the
// derived sample rate and the WAV header's declared rate.
const maxRateMismatchMHz = 100.0

// Calculation tags the provenance of a Plan's sample-rate endpoints.
type Calculation string

const (
	Interpolation Calculation = "INTERPOLATION"
	Median        Calculation = "MEDIAN"
)

// Plan is the reconciled clock offset and sample-rate sweep for one
// recording, ready to drive the resampling engine.
type Plan struct {
	TimeOffset      float64 // tenths of a millisecond
	SampleRateStart float64 // mHz
	SampleRateEnd   float64 // mHz
	Calculation     Calculation
}

// BuildPlan brackets recordingUTCMs against fixes (sorted ascending by
// TimestampMs) and derives a Plan. onlyBetweenFixes controls whether a
// recording after the last fix is rejected or extrapolated.
func BuildPlan(fixes []Fix, recordingUTCMs int64, onlyBetweenFixes bool, medianRate float64) (*Plan, error) {
	if len(fixes) < 2 {
		return nil, errkind.New(errkind.InsufficientFixes, "at least two committed fixes are required")
	}
	if recordingUTCMs < fixes[0].TimestampMs {
		return nil, errkind.New(errkind.RecordingOutsideFixes, "recording precedes the first fix")
	}

	last := fixes[len(fixes)-1]
	if recordingUTCMs > last.TimestampMs {
		if onlyBetweenFixes {
			return nil, errkind.New(errkind.RecordingOutsideFixes, "recording follows the last fix")
		}
		prev := fixes[len(fixes)-2]
		offset := extrapolate(prev.TimestampMs, prev.TimeOffset, last.TimestampMs, last.TimeOffset, recordingUTCMs)
		rate, calc := rateOrMedian(last.SampleRate, medianRate)
		return &Plan{TimeOffset: offset, SampleRateStart: rate, SampleRateEnd: rate, Calculation: calc}, nil
	}

	lo, hi := -1, -1
	for i := 0; i+1 < len(fixes); i++ {
		if recordingUTCMs >= fixes[i].TimestampMs && recordingUTCMs <= fixes[i+1].TimestampMs {
			lo, hi = i, i+1
			break
		}
	}
	if lo < 0 {
		return nil, errkind.New(errkind.RecordingOutsideFixes, "recording does not fall between any two committed fixes")
	}
	if recordingUTCMs == fixes[lo].TimestampMs || recordingUTCMs == fixes[hi].TimestampMs {
		return nil, errkind.New(errkind.RecordingOutsideFixes, "recording coincides exactly with a fix boundary")
	}

	frac := float64(recordingUTCMs-fixes[lo].TimestampMs) / float64(fixes[hi].TimestampMs-fixes[lo].TimestampMs)
	offset := fixes[lo].TimeOffset + frac*(fixes[hi].TimeOffset-fixes[lo].TimeOffset)

	startRate, startCalc := rateOrMedian(fixes[lo].SampleRate, medianRate)
	endRate, endCalc := rateOrMedian(fixes[hi].SampleRate, medianRate)
	calc := Interpolation
	if startCalc == Median || endCalc == Median {
		calc = Median
	}
	return &Plan{TimeOffset: offset, SampleRateStart: startRate, SampleRateEnd: endRate, Calculation: calc}, nil
}

// CheckAgainstHeader rejects a plan whose derived start rate deviates from
// the WAV header's declared rate by more than maxRateMismatchMHz.
func CheckAgainstHeader(plan *Plan, headerRateHz uint32) error {
	derivedMHz := plan.SampleRateStart
	headerMHz := float64(headerRateHz) * 1000
	if math.Abs(derivedMHz-headerMHz) > maxRateMismatchMHz {
		return errkind.New(errkind.SampleRateMismatch, "derived sample rate deviates from the WAV header's rate by more than 100 mHz")
	}
	return nil
}

func extrapolate(t0 int64, v0 float64, t1 int64, v1 float64, t int64) float64 {
	if t1 == t0 {
		return v1
	}
	frac := float64(t-t0) / float64(t1-t0)
	return v0 + frac*(v1-v0)
}

func rateOrMedian(rate, median float64) (float64, Calculation) {
	if median > 0 && math.Abs(rate-median)/median > maxDivergence {
		return median, Median
	}
	return rate, Interpolation
}
