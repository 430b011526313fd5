/*
NAME
  engine.go

DESCRIPTION
  engine.go drops or pads leading samples per the plan's clock offset,
  then streams the remainder through a continuous linear sweep of the
  instantaneous sample rate from SampleRateStart to SampleRateEnd.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package align

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/fieldrec/loggertools/codec/pcm"
	"github.com/fieldrec/loggertools/errkind"
)

const sampleStreamBufferSize = 1 << 20

// clockDriftCorrection is the multiplicative term applied to the
// instantaneous rate sweep to compensate for AudioMoth's high-frequency
// crystal oscillator drifting two ticks slow per 48e6 ticks.
const clockDriftCorrection = 1 - 2/48e6

// LeadingSampleAdjustment returns the number of samples to drop (positive)
// or pad (negative) at the start of the stream for the given time offset
// (tenths of a millisecond) and mHz sample rate.
func LeadingSampleAdjustment(timeOffsetTenthsMs, sampleRateMHz float64) int64 {
	samples := math.Round(math.Abs(timeOffsetTenthsMs) / 10 / 1000 * sampleRateMHz / 1000)
	if timeOffsetTenthsMs >= 0 {
		return int64(samples) // clock is slow: drop leading samples.
	}
	return -int64(samples) // clock is fast: pad with leading silence.
}

// Run streams the input sample payload through the plan's rate sweep,
// writing numberOfOutputSamples samples to out. leadingAdjustment, from
// LeadingSampleAdjustment, is applied before the sweep begins.
func Run(in io.Reader, out io.Writer, plan *Plan, leadingAdjustment int64, numberOfOutputSamples int64) (int64, error) {
	br := bufio.NewReaderSize(in, sampleStreamBufferSize)
	bw := bufio.NewWriterSize(out, sampleStreamBufferSize)
	interp := pcm.NewSampleInterpolator()

	if leadingAdjustment > 0 {
		if _, err := io.CopyN(io.Discard, br, leadingAdjustment*2); err != nil && err != io.EOF {
			return 0, errkind.Wrap(errkind.InputReadFailed, err, "dropping leading samples")
		}
	}
	padSamples := int64(0)
	if leadingAdjustment < 0 {
		padSamples = -leadingAdjustment
	}

	var tmp [2]byte
	readSample := func() (int16, bool) {
		if _, err := io.ReadFull(br, tmp[:]); err != nil {
			return 0, false
		}
		return int16(binary.LittleEndian.Uint16(tmp[:])), true
	}
	writeSample := func(v int16) error {
		binary.LittleEndian.PutUint16(tmp[:], uint16(v))
		if _, err := bw.Write(tmp[:]); err != nil {
			return errkind.Wrap(errkind.OutputWriteFailed, err, "writing align sample stream")
		}
		return nil
	}

	var written int64
	for ; written < padSamples && written < numberOfOutputSamples; written++ {
		if err := writeSample(0); err != nil {
			return written, err
		}
	}

	startRateHz := plan.SampleRateStart / 1000 * clockDriftCorrection
	endRateHz := plan.SampleRateEnd / 1000 * clockDriftCorrection

	prevSample, ok := readSample()
	if !ok {
		if err := bw.Flush(); err != nil {
			return written, errkind.Wrap(errkind.OutputWriteFailed, err, "flushing align sample stream")
		}
		return written, nil
	}
	prevOffset := 0.0
	nextSample := prevSample
	nextOffset := 0.0
	haveNext := false
	remaining := numberOfOutputSamples - written

	for j := int64(0); written < numberOfOutputSamples; j++ {
		progress := float64(j) / float64(remaining)
		rate := startRateHz + progress*(endRateHz-startRateHz)
		if rate <= 0 {
			break
		}
		currentOffset := float64(j) / rate

		for currentOffset > nextOffset {
			prevSample = nextSample
			prevOffset = nextOffset
			s, ok := readSample()
			if !ok {
				haveNext = false
				break
			}
			nextSample = s
			haveNext = true
			nextOffset += 1 / rate
		}

		var v int16
		if !haveNext || nextOffset <= prevOffset {
			v = prevSample
		} else {
			v = interp.At(prevOffset, float64(prevSample), nextOffset, float64(nextSample), currentOffset)
		}
		if err := writeSample(v); err != nil {
			return written, err
		}
		written++
	}

	if err := bw.Flush(); err != nil {
		return written, errkind.Wrap(errkind.OutputWriteFailed, err, "flushing align sample stream")
	}
	return written, nil
}
