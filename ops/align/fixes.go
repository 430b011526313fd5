/*
NAME
  fixes.go

DESCRIPTION
  fixes.go parses a GPS log into committed Fix events. A fix is accepted
  only once a "Received GPS fix" line, the following line's time-set
  outcome, and the next "Actual sample rate" line all reconcile; a "Time
  was not updated" outcome discards the fix.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package align implements the Align planner and engine: it reconciles a
// recording's clock and sample rate against a session of committed GPS
// fixes and resamples it onto true UTC time.
package align

import (
	"bufio"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/fieldrec/loggertools/errkind"
)

// timeOffsetMultiplier converts a whole-millisecond correction reported by
// the GPS log into the tenths-of-millisecond unit Fix.TimeOffset is kept
// in.
const timeOffsetMultiplier = 10

// Fix is one committed clock/rate reconciliation event.
type Fix struct {
	TimestampMs int64
	Latitude    float64
	Longitude   float64
	TimeOffset  float64 // tenths of a millisecond; positive means the clock was slow.
	SampleRate  float64 // mHz
}

var (
	fixLinePattern  = regexp.MustCompile(`^Received GPS fix: (\d+), (-?\d+(?:\.\d+)?), (-?\d+(?:\.\d+)?)$`)
	setLinePattern  = regexp.MustCompile(`^Time was set to: (\d+)$`)
	fastLinePattern = regexp.MustCompile(`^Time was updated by (\d+)ms fast$`)
	slowLinePattern = regexp.MustCompile(`^Time was updated by (\d+)ms slow$`)
	notUpdated      = "Time was not updated"
	rateLinePattern = regexp.MustCompile(`^Actual sample rate: (\d+) mHz$`)
)

// ParseFixes streams r line by line and returns every committed fix.
func ParseFixes(r io.Reader) ([]Fix, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "reading GPS log")
	}

	var fixes []Fix
	for i := 0; i+2 < len(lines); i++ {
		m := fixLinePattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		if lines[i+1] == notUpdated {
			i += 1
			continue
		}

		var offset float64
		switch {
		case setLinePattern.MatchString(lines[i+1]):
			offset = 0
		case fastLinePattern.MatchString(lines[i+1]):
			n, _ := strconv.ParseFloat(fastLinePattern.FindStringSubmatch(lines[i+1])[1], 64)
			offset = -n * timeOffsetMultiplier
		case slowLinePattern.MatchString(lines[i+1]):
			n, _ := strconv.ParseFloat(slowLinePattern.FindStringSubmatch(lines[i+1])[1], 64)
			offset = n * timeOffsetMultiplier
		default:
			continue
		}

		rm := rateLinePattern.FindStringSubmatch(lines[i+2])
		if rm == nil {
			continue
		}

		ts, _ := strconv.ParseInt(m[1], 10, 64)
		lat, _ := strconv.ParseFloat(m[2], 64)
		lon, _ := strconv.ParseFloat(m[3], 64)
		rate, _ := strconv.ParseFloat(rm[1], 64)

		fixes = append(fixes, Fix{
			TimestampMs: ts,
			Latitude:    lat,
			Longitude:   lon,
			TimeOffset:  offset,
			SampleRate:  rate,
		})
		i += 2
	}

	return fixes, nil
}

// MedianSampleRate returns the sorted middle sample rate of fixes, the
// upper median when there is an even number of fixes.
func MedianSampleRate(fixes []Fix) float64 {
	rates := make([]float64, len(fixes))
	for i, f := range fixes {
		rates[i] = f.SampleRate
	}
	sort.Float64s(rates)
	return rates[len(rates)/2]
}
