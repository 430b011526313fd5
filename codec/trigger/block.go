/*
NAME
  block.go

DESCRIPTION
  block.go decodes the 512-byte silent-run sentinel blocks used by
  trigger-compressed recordings. A sentinel block encodes, in its first 32
  16-bit samples, a binary run-length count: sample i is +1 to set bit i,
  -1 to clear it. Any other sample value in that prefix, or any non-zero
  sample beyond it, disqualifies the block -- it is ordinary audio that
  happens to start with a run of +1/-1 values.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package trigger decodes the silent-run sentinel blocks used by
// trigger-compressed recordings and segments a recording's timeline into
// its constituent AUDIO and SILENT runs.
package trigger

import "encoding/binary"

// BlockSize is the size in bytes of one compressed block, and the
// alignment unit the sentinel decoder operates on.
const BlockSize = 512

// SamplesPerBlock is the number of 16-bit samples in one compressed block.
const SamplesPerBlock = BlockSize / 2

// CountBits is the number of leading samples in a block that encode the
// silent-run length as a binary count.
const CountBits = 32

// DecodeBlock inspects a full BlockSize-byte block and reports whether it
// is a silent-run sentinel, and if so, the number of BlockSize-byte silent
// blocks it represents in the decompressed output. buf must be exactly
// BlockSize bytes.
func DecodeBlock(buf []byte) (count uint32, isSentinel bool) {
	if len(buf) != BlockSize {
		return 0, false
	}

	for i := 0; i < CountBits; i++ {
		s := int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
		switch s {
		case 1:
			count |= 1 << uint(i)
		case -1:
			// Bit i is clear; nothing to do.
		default:
			return 0, false
		}
	}

	for i := CountBits; i < SamplesPerBlock; i++ {
		if buf[i*2] != 0 || buf[i*2+1] != 0 {
			return 0, false
		}
	}

	return count, true
}

// isAllZero reports whether buf contains only zero bytes.
func isAllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
