/*
NAME
  engine.go

DESCRIPTION
  engine.go streams a recording's sample payload through a reconciled
  Plan, playing out each interval's samples at its derived rate and
  re-interpolating them onto the requested output sample rate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sync

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/fieldrec/loggertools/codec/pcm"
	"github.com/fieldrec/loggertools/errkind"
)

// sampleStreamBufferSize is the working buffer size for the sync/align
// sample streams.
const sampleStreamBufferSize = 1 << 20

// Run streams numberOfSamplesToWrite output samples at plan.TargetSampleRate,
// reading raw 16-bit input samples from in and writing the resulting 16-bit
// samples to out. It implements the interval-by-interval linear
// interpolation kernel shared with Align.
func Run(in io.Reader, out io.Writer, plan *Plan, numberOfSamplesToWrite int64) (int64, error) {
	interp := pcm.NewSampleInterpolator()
	reader := newSampleReader(in)
	writer := newSampleWriter(out)

	if len(plan.Intervals) > 0 && plan.Intervals[0].FirstBeforeStart {
		// alignSampleBoundaries pulled interval 0's first sample from before
		// the recording start; that sample was never written to the input
		// stream, so consume and discard the one that would otherwise be
		// mistaken for it.
		if _, ok := reader.next(); !ok {
			return 0, errkind.New(errkind.InputReadFailed, "input sample stream ended before the alignment offset could be consumed")
		}
	}

	var written int64
	var lastRate float64
	for _, iv := range plan.Intervals {
		n := int64(math.Round(iv.TimeInterval * float64(plan.TargetSampleRate)))
		if err := runInterval(reader, writer, interp, iv, n); err != nil {
			return written, err
		}
		written += n
		lastRate = iv.SampleRate
	}

	// Extend with a virtual interval at the last interval's rate until the
	// requested output length is reached.
	if written < numberOfSamplesToWrite && lastRate > 0 {
		remaining := numberOfSamplesToWrite - written
		virtual := Interval{TimeInterval: float64(remaining) / float64(plan.TargetSampleRate), SampleRate: lastRate}
		if err := runInterval(reader, writer, interp, virtual, remaining); err != nil {
			return written, err
		}
		written += remaining
	}

	if err := writer.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// runInterval plays out n output samples for one interval, maintaining the
// (previousSample, previousOffset) / (nextSample, nextOffset) cursor pair
// in seconds-since-interval-start.
func runInterval(reader *sampleReader, writer *sampleWriter, interp *pcm.SampleInterpolator, iv Interval, n int64) error {
	if n <= 0 {
		return nil
	}

	prevSample, ok := reader.next()
	if !ok {
		return errkind.New(errkind.InputReadFailed, "input sample stream ended before interval completed")
	}
	prevOffset := 0.0
	nextOffset := iv.FirstSampleGapUs / 1e6

	nextSample := prevSample
	haveNext := false
	if iv.SampleRate > 0 {
		s, ok := reader.next()
		if ok {
			nextSample = s
			haveNext = true
		}
	}

	for j := int64(0); j < n; j++ {
		currentOffset := float64(j) / float64(n) * iv.TimeInterval

		for haveNext && currentOffset > nextOffset {
			prevSample = nextSample
			prevOffset = nextOffset
			nextOffset += 1 / iv.SampleRate
			s, ok := reader.next()
			if !ok {
				haveNext = false
				break
			}
			nextSample = s
		}

		var v int16
		if nextOffset <= prevOffset {
			v = prevSample
		} else {
			v = interp.At(prevOffset, float64(prevSample), nextOffset, float64(nextSample), currentOffset)
		}
		if err := writer.write(v); err != nil {
			return err
		}
	}
	return nil
}

type sampleReader struct {
	br  *bufio.Reader
	tmp [2]byte
}

func newSampleReader(r io.Reader) *sampleReader {
	return &sampleReader{br: bufio.NewReaderSize(r, sampleStreamBufferSize)}
}

func (s *sampleReader) next() (int16, bool) {
	if _, err := io.ReadFull(s.br, s.tmp[:]); err != nil {
		return 0, false
	}
	return int16(binary.LittleEndian.Uint16(s.tmp[:])), true
}

type sampleWriter struct {
	bw  *bufio.Writer
	tmp [2]byte
}

func newSampleWriter(w io.Writer) *sampleWriter {
	return &sampleWriter{bw: bufio.NewWriterSize(w, sampleStreamBufferSize)}
}

func (s *sampleWriter) write(v int16) error {
	binary.LittleEndian.PutUint16(s.tmp[:], uint16(v))
	if _, err := s.bw.Write(s.tmp[:]); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "writing sync sample stream")
	}
	return nil
}

// Flush drains buffered output; Run calls it once after the last interval.
func (s *sampleWriter) Flush() error {
	if err := s.bw.Flush(); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "flushing sync sample stream")
	}
	return nil
}
