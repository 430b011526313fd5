/*
NAME
  segment.go

DESCRIPTION
  segment.go walks a trigger-compressed data payload 512-byte window at a
  time, classifying each window as AUDIO or SILENT and merging adjacent
  same-type windows into the maximal segments Expand needs to build its
  output file descriptors.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package trigger

import (
	"io"

	"github.com/fieldrec/loggertools/errkind"
)

// Kind identifies whether a Segment is real recorded audio or an expanded
// run of silence.
type Kind int

const (
	Audio Kind = iota
	Silent
)

func (k Kind) String() string {
	if k == Silent {
		return "SILENT"
	}
	return "AUDIO"
}

// Segment is a maximal run of one Kind in the decompressed timeline.
type Segment struct {
	Kind         Kind
	InputBytes   int64 // bytes consumed from the compressed input.
	OutputBytes  int64 // bytes produced in the decompressed output.
	InputOffset  int64 // offset of this segment's first byte within the input payload.
	OutputOffset int64 // offset of this segment's first byte within the decompressed output.
}

// Segments walks dataSize bytes read sequentially from r (already
// positioned at the start of the data payload) and returns the merged
// AUDIO/SILENT segments of the decompressed timeline. headerSize is used
// only to align block boundaries to the 512-byte grid the firmware writes
// against; it is not itself read.
func Segments(r io.Reader, headerSize, dataSize int64) ([]Segment, error) {
	if dataSize == 0 {
		return nil, nil
	}

	leading := (BlockSize - headerSize%BlockSize) % BlockSize

	var (
		segs                      []Segment
		inputOffset, outputOffset int64
		remaining                 = dataSize
		firstWindow               = true
		buf                       = make([]byte, BlockSize)
	)

	for remaining > 0 {
		windowLen := int64(BlockSize)
		if firstWindow && leading > 0 {
			windowLen = leading
		}
		if windowLen > remaining {
			windowLen = remaining
		}

		n, err := io.ReadFull(r, buf[:windowLen])
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, errkind.Wrap(errkind.InputReadFailed, err, "reading compressed block")
		}
		if int64(n) != windowLen {
			return nil, errkind.New(errkind.InputReadFailed, "short read while scanning compressed blocks")
		}

		isEdge := firstWindow || remaining == windowLen
		kind, outBytes := classifyWindow(buf[:windowLen], isEdge)

		if len(segs) > 0 && segs[len(segs)-1].Kind == kind {
			last := &segs[len(segs)-1]
			last.InputBytes += windowLen
			last.OutputBytes += outBytes
		} else {
			segs = append(segs, Segment{
				Kind:         kind,
				InputBytes:   windowLen,
				OutputBytes:  outBytes,
				InputOffset:  inputOffset,
				OutputOffset: outputOffset,
			})
		}

		inputOffset += windowLen
		outputOffset += outBytes
		remaining -= windowLen
		firstWindow = false
	}

	return segs, nil
}

// classifyWindow classifies one window of up to BlockSize bytes. Only a
// full BlockSize window is eligible to be a sentinel block; a short
// leading or trailing window is SILENT only if it is entirely zero,
// otherwise it is treated as ordinary AUDIO copied byte for byte.
func classifyWindow(buf []byte, isEdge bool) (Kind, int64) {
	if len(buf) == BlockSize {
		if count, ok := DecodeBlock(buf); ok {
			return Silent, int64(count) * BlockSize
		}
		return Audio, int64(len(buf))
	}

	if isEdge && isAllZero(buf) {
		return Silent, int64(len(buf))
	}
	return Audio, int64(len(buf))
}

// Merge combines any adjacent segments of the same Kind. Segments built by
// Segments are already merged; this is exposed for callers that assemble
// a []Segment by other means (e.g. concatenating per-chunk results).
func Merge(segs []Segment) []Segment {
	if len(segs) == 0 {
		return segs
	}
	out := segs[:1]
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if last.Kind == s.Kind && last.InputOffset+last.InputBytes == s.InputOffset {
			last.InputBytes += s.InputBytes
			last.OutputBytes += s.OutputBytes
			continue
		}
		out = append(out, s)
	}
	return out
}
