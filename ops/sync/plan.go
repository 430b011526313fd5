/*
NAME
  plan.go

DESCRIPTION
  plan.go builds a Sync Plan from a logger's PPS event CSV: it loads the
  event columns, derives each inter-PPS interval's duration and sample
  rate, flags missed or misaligned intervals per the acceptance window,
  and applies the PPS event and sample-time alignment corrections.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package sync implements the Sync planner and streaming engine: it
// reconciles a recording against its PPS event CSV and rewrites the
// sample stream against GPS-disciplined second boundaries.
package sync

import (
	"io"
	"math"

	"github.com/fieldrec/loggertools/csvreader"
	"github.com/fieldrec/loggertools/errkind"
)

// Oscillator tolerances, as fractional frequency errors.
const (
	lfxoPPM           = 100e-6
	hfxoAbsolutePPM   = 100e-6 // applied to the first interval only.
	hfxoRelativePPM   = 40e-6  // applied to every later interval.
	maxPPSOffsetUs    = 50.0   // threshold for the PPS-straddle correction.
	hfxoFrequencyHz   = 32e6   // AudioMoth high-frequency crystal oscillator.
	maxResampleRateHz = 192000
)

// Interval describes one accepted span between consecutive PPS events.
type Interval struct {
	StartSample       int64
	TimeInterval      float64 // seconds
	SampleRate        float64 // Hz, derived from this interval's sample count
	FirstSampleGapUs  float64 // time from the interval boundary to the first sample it contains
	LastSampleGapUs   float64 // time from the interval's last sample to its end boundary
	MissedPPS         bool
	FirstBeforeStart  bool // true only for interval 0 when alignment pulls a sample before the recording
}

// Plan is the reconciled description of a recording's PPS-disciplined
// sample timeline, ready to drive the streaming engine.
type Plan struct {
	Intervals         []Interval
	AverageSampleRate float64
	SourceSampleRate  uint32
	TargetSampleRate  uint32
	UnusualIntervals  []int // indices into Intervals whose rounded rate still differs from the average
}

type ppsRow struct {
	ppsNumber      int64
	audiomothTime  int64 // epoch milliseconds
	totalSamples   int64
	timerCount     int64
	buffersFilled  int64
	buffersWritten int64
}

// BuildPlan loads the PPS event CSV from r and constructs a Plan for a
// recording nominally at sourceRate, started at fileStartMs (epoch
// milliseconds). autoResolve controls whether missed or misaligned
// intervals abort the whole operation or are tolerated.
func BuildPlan(r io.Reader, sourceRate uint32, fileStartMs int64, autoResolve, fixPPSEvents, alignSamples bool) (*Plan, error) {
	rows, err := readPPSRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errkind.New(errkind.InsufficientEvents, "PPS event CSV must carry at least two rows")
	}
	for _, row := range rows {
		if row.buffersFilled-row.buffersWritten >= 8 {
			return nil, errkind.New(errkind.InvalidArgument, "PPS event CSV shows a buffer overflow (BUFFERS_FILLED - BUFFERS_WRITTEN >= 8)")
		}
	}
	if d := rows[0].audiomothTime - fileStartMs; d > 500 || d < -500 {
		return nil, errkind.New(errkind.MetadataMismatch, "file timestamp differs from the first PPS event by more than 500ms")
	}

	acquisitionPeriodUs := acquisitionPeriod(sourceRate)
	timeToNextSampleUs := make([]float64, len(rows))
	for i, row := range rows {
		timeToNextSampleUs[i] = float64(row.timerCount) / hfxoFrequencyHz * 1e6
	}

	plan := &Plan{SourceSampleRate: sourceRate, AverageSampleRate: float64(sourceRate)}

	prev := 0
	for i := 1; i < len(rows); i++ {
		deltaMs := float64(rows[i].audiomothTime - rows[prev].audiomothTime)
		deltaT := math.Round(deltaMs / 1000)
		deltaSamples := rows[i].totalSamples - rows[prev].totalSamples

		hfxo := hfxoRelativePPM
		if len(plan.Intervals) == 0 {
			hfxo = hfxoAbsolutePPM
		}
		msWindow := math.Ceil(lfxoPPM * deltaT * 1000)
		sampleWindow := math.Ceil(hfxo * plan.AverageSampleRate * deltaT)

		missed := deltaT > 1
		misaligned := math.Abs(deltaMs-deltaT*1000) > msWindow ||
			math.Abs(float64(deltaSamples)-deltaT*plan.AverageSampleRate) > sampleWindow

		if misaligned {
			if !autoResolve {
				return nil, errkind.New(errkind.PPSAnomalyMisaligned, "PPS interval failed the reconciliation window")
			}
			// Skip this row; retry the interval against the next one.
			continue
		}
		if missed && !autoResolve {
			return nil, errkind.New(errkind.PPSAnomalyMissed, "PPS interval skipped one or more pulses")
		}

		firstGap := timeToNextSampleUs[prev]
		lastGap := timeToNextSampleUs[i]
		rate := sampleRateFromInterval(float64(deltaSamples), deltaT, firstGap, lastGap)
		plan.Intervals = append(plan.Intervals, Interval{
			StartSample:      rows[prev].totalSamples,
			TimeInterval:     deltaT,
			SampleRate:       rate,
			FirstSampleGapUs: firstGap,
			LastSampleGapUs:  lastGap,
			MissedPPS:        missed,
		})
		plan.AverageSampleRate = runningAverage(plan.AverageSampleRate, rate, len(plan.Intervals))
		prev = i
	}

	if fixPPSEvents {
		fixPPSStraddle(plan)
		fix192kHzAnomalies(plan)
	}
	if alignSamples {
		alignSampleBoundaries(plan, acquisitionPeriodUs)
	}

	for i, iv := range plan.Intervals {
		if math.Round(iv.SampleRate-plan.AverageSampleRate) != 0 {
			plan.UnusualIntervals = append(plan.UnusualIntervals, i)
		}
	}
	if len(plan.UnusualIntervals) > 0 && !autoResolve {
		return nil, errkind.New(errkind.PPSAnomalyUnusualRate, "one or more intervals deviate from the average sample rate")
	}

	return plan, nil
}

// clockTicksToCompleteSample returns the number of HFXO ticks AudioMoth's
// firmware budgets to complete one ADC conversion at sourceRate, per the
// 2 + 4*(2 + overSampleRate*(16+12)) formula.
func clockTicksToCompleteSample(sourceRate uint32) int {
	overSampleRate := 1 << uint(math.Floor(math.Log2(384000/float64(sourceRate))))
	return 2 + 4*(2+overSampleRate*(16+12))
}

// acquisitionPeriod returns the time, in microseconds, one ADC acquisition
// and conversion cycle occupies at sourceRate.
func acquisitionPeriod(sourceRate uint32) float64 {
	return float64(clockTicksToCompleteSample(sourceRate)) / hfxoFrequencyHz * 1e6
}

// sampleRateFromInterval derives an interval's true sample rate from its
// accepted sample count and the PPS-reported gaps either side of it:
// sampleRate = (numberOfSamples - 1) * 1e6 / (timeInterval*1e6 - firstGap - lastGap).
func sampleRateFromInterval(numberOfSamples, timeIntervalSec, firstGapUs, lastGapUs float64) float64 {
	denom := timeIntervalSec*1e6 - firstGapUs - lastGapUs
	if denom <= 0 {
		return numberOfSamples / timeIntervalSec
	}
	return (numberOfSamples - 1) * 1e6 / denom
}

func sampleIntervalUs(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return 1e6 / rate
}

func runningAverage(avg, sample float64, n int) float64 {
	if n <= 0 {
		return sample
	}
	return avg + (sample-avg)/float64(n)
}

// fixPPSStraddle corrects the case where a sample that landed right on a
// PPS boundary was counted in the wrong interval, showing up as one
// interval a sample slow and its neighbour a sample fast.
func fixPPSStraddle(plan *Plan) {
	avg := plan.AverageSampleRate
	for i := 0; i+1 < len(plan.Intervals); i++ {
		cur := &plan.Intervals[i]
		next := &plan.Intervals[i+1]
		if cur.LastSampleGapUs >= maxPPSOffsetUs {
			continue
		}
		if math.Round(cur.SampleRate-avg) != -1 || math.Round(next.SampleRate-avg) != 1 {
			continue
		}
		cur.LastSampleGapUs = sampleIntervalUs(cur.SampleRate)
		next.FirstSampleGapUs = 0
		cur.SampleRate += 1 / cur.TimeInterval
		next.SampleRate -= 1 / next.TimeInterval
	}
}

// fix192kHzAnomalies applies the narrower corrections that only arise when
// the recording runs at the firmware's maximum GPS-sync rate, 192kHz: the
// acquisition overshoot on the very first interval, the "sample already
// missing" straddle pattern (the (-1, +1) case is already caught by
// fixPPSStraddle; this is its (-1, 0) sibling, where the lost sample never
// reappears in the following interval), and any remaining lone interval a
// sample short that neither straddle pattern explains.
func fix192kHzAnomalies(plan *Plan) {
	if plan.SourceSampleRate != maxResampleRateHz || len(plan.Intervals) == 0 {
		return
	}
	avg := plan.AverageSampleRate

	first := &plan.Intervals[0]
	first.FirstSampleGapUs -= sampleIntervalUs(first.SampleRate)

	for i := 0; i+1 < len(plan.Intervals); i++ {
		cur := &plan.Intervals[i]
		next := &plan.Intervals[i+1]
		if cur.LastSampleGapUs >= maxPPSOffsetUs {
			continue
		}
		if math.Round(cur.SampleRate-avg) != -1 || math.Round(next.SampleRate-avg) != 0 {
			continue
		}
		cur.LastSampleGapUs = sampleIntervalUs(cur.SampleRate)
		next.FirstSampleGapUs = 0
		cur.SampleRate += 1 / cur.TimeInterval
	}

	for i := range plan.Intervals {
		iv := &plan.Intervals[i]
		if math.Round(iv.SampleRate-avg) == -1 {
			iv.SampleRate += 1 / iv.TimeInterval
		}
	}
}

// alignSampleBoundaries shifts every interval's boundaries by half an
// acquisition period so that the emitted timeline straddles each sample's
// true acquisition instant rather than its reported instant. When this
// pulls an interval's first sample gap negative, the extra sample is
// handed back to the previous interval.
func alignSampleBoundaries(plan *Plan, acquisitionPeriodUs float64) {
	half := acquisitionPeriodUs / 2
	for i := range plan.Intervals {
		iv := &plan.Intervals[i]
		iv.FirstSampleGapUs -= half
		iv.LastSampleGapUs += half
		if iv.FirstSampleGapUs >= 0 {
			continue
		}
		deficit := -iv.FirstSampleGapUs
		iv.FirstSampleGapUs = sampleIntervalUs(iv.SampleRate) - deficit
		if i == 0 {
			iv.FirstBeforeStart = true
			continue
		}
		prev := &plan.Intervals[i-1]
		prev.LastSampleGapUs -= deficit
	}
}

func readPPSRows(r io.Reader) ([]ppsRow, error) {
	intParser := func(cell string) (interface{}, error) {
		return parseInt64(cell)
	}
	reader := csvreader.New([]csvreader.Column{
		{Name: "PPS_NUMBER", Parser: intParser},
		{Name: "AUDIOMOTH_TIME", Parser: intParser},
		{Name: "TOTAL_SAMPLES", Parser: intParser},
		{Name: "TIMER_COUNT", Parser: intParser},
		{Name: "BUFFERS_FILLED", Parser: intParser},
		{Name: "BUFFERS_WRITTEN", Parser: intParser},
	})
	if err := reader.Read(r); err != nil {
		return nil, err
	}

	ppsNumbers := reader.Column("PPS_NUMBER")
	times := reader.Column("AUDIOMOTH_TIME")
	samples := reader.Column("TOTAL_SAMPLES")
	timers := reader.Column("TIMER_COUNT")
	filled := reader.Column("BUFFERS_FILLED")
	written := reader.Column("BUFFERS_WRITTEN")

	rows := make([]ppsRow, len(ppsNumbers))
	for i := range rows {
		rows[i] = ppsRow{
			ppsNumber:      ppsNumbers[i].(int64),
			audiomothTime:  times[i].(int64),
			totalSamples:   samples[i].(int64),
			timerCount:     timers[i].(int64),
			buffersFilled:  filled[i].(int64),
			buffersWritten: written[i].(int64),
		}
	}
	return rows, nil
}

func parseInt64(s string) (int64, error) {
	var v int64
	neg := false
	i := 0
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		i = 1
	}
	if i == len(s) {
		return 0, errkind.New(errkind.InvalidArgument, "empty numeric cell")
	}
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errkind.New(errkind.InvalidArgument, "non-numeric PPS CSV cell: "+s)
		}
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}
