/*
NAME
  downsample.go

DESCRIPTION
  downsample.go implements the fixed-point integer-ratio averaging engine
  used by the Downsample operation: a cursor that walks the input stream
  at a rational step no greater than 1, linearly interpolating each "raw"
  tick and averaging sampleRateDivider of those ticks into one output
  sample.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"math"

	"github.com/fieldrec/loggertools/errkind"
)

// RecognisedDownsampleRates are the eight output rates the Downsample
// operation accepts, per the logger's firmware-supported rate list.
var RecognisedDownsampleRates = []uint32{8000, 16000, 32000, 48000, 96000, 192000, 250000, 384000}

// IsRecognisedRate reports whether rate is one of RecognisedDownsampleRates.
func IsRecognisedRate(rate uint32) bool {
	for _, r := range RecognisedDownsampleRates {
		if r == rate {
			return true
		}
	}
	return false
}

// Downsampler streams 16-bit PCM samples at sourceRate in and emits
// samples at requestedRate out, by integer-ratio averaging of
// linearly-interpolated intermediate ticks.
type Downsampler struct {
	interp *SampleInterpolator

	divider int     // sampleRateDivider: ticks averaged per output sample.
	step    float64 // fraction of an input-sample interval per raw tick, <= 1.

	position float64 // cursor within the current (prev, next) pair, in [0, 1).
	havePrev bool
	haveNext bool
	prev     int16
	next     int16

	sum   int64
	count int
}

// NewDownsampler validates (sourceRate, requestedRate) and returns a
// Downsampler ready to average sourceRate/requestedRate input samples
// into each output sample.
func NewDownsampler(sourceRate, requestedRate uint32) (*Downsampler, error) {
	if !IsRecognisedRate(requestedRate) {
		return nil, errkind.New(errkind.InvalidArgument, "requested sample rate is not one of the recognised rates")
	}
	if requestedRate > sourceRate {
		return nil, errkind.New(errkind.InvalidArgument, "requested sample rate exceeds source sample rate")
	}

	divider := int(math.Ceil(float64(sourceRate) / float64(requestedRate)))
	rawRate := uint32(divider) * requestedRate
	step := float64(sourceRate) / float64(rawRate)

	return &Downsampler{
		interp: NewSampleInterpolator(),
		divider: divider,
		step:    step,
	}, nil
}

// Push feeds the next input sample and returns the (possibly empty) set of
// output samples it causes to be emitted.
func (d *Downsampler) Push(sample int16) []int16 {
	if !d.havePrev {
		d.prev = sample
		d.havePrev = true
		return nil
	}
	d.next = sample
	d.haveNext = true

	var out []int16
	for d.position < 1 {
		v := d.interp.At(0, float64(d.prev), 1, float64(d.next), d.position)
		d.sum += int64(v)
		d.count++
		if d.count == d.divider {
			out = append(out, ClampSample(float64(d.sum)/float64(d.count)))
			d.sum, d.count = 0, 0
		}
		d.position += d.step
	}
	d.position -= 1
	d.prev = d.next
	d.haveNext = false
	return out
}

// Flush returns the final partial output sample if the stream ended with
// a non-empty accumulation buffer. A buffer that is exactly full on the
// last input sample is not additionally flushed here, since Push already
// emitted it.
func (d *Downsampler) Flush() (int16, bool) {
	if d.count == 0 {
		return 0, false
	}
	v := ClampSample(float64(d.sum) / float64(d.count))
	d.sum, d.count = 0, 0
	return v, true
}
