/*
NAME
  header.go

DESCRIPTION
  header.go implements a restricted RIFF/WAVE reader and writer for the
  mono 16-bit PCM recordings produced by acoustic loggers. It recognises
  the fmt , LIST/INFO (ICMT, IART) and data chunks, tolerates and
  preserves any other chunk that appears before data, and keeps the
  header as a single byte buffer so that a rewrite that only touches a
  handful of fields is otherwise byte-identical to the original.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wav provides a restricted RIFF/WAVE/GUANO codec for the mono,
// 16-bit PCM recordings produced by acoustic loggers.
package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fieldrec/loggertools/errkind"
)

// PCMFormat is the WAVE format tag for uncompressed linear PCM.
const PCMFormat = 1

const (
	minRiffLen  = 12 // "RIFF" + size(4) + "WAVE"
	chunkHeader = 8  // chunk id(4) + chunk size(4)
	fmtBodyLen  = 16 // canonical fmt  chunk body length
)

// Fmt holds the parsed fmt  chunk fields.
type Fmt struct {
	AudioFormat      uint16
	Channels         uint16
	SamplesPerSecond uint32
	BytesPerSecond   uint32
	BlockAlign       uint16
	BitsPerSample    uint16
}

// textField locates a fixed-capacity ICMT/IART text buffer within Header.Raw.
type textField struct {
	offset   int // start of the text bytes within Raw
	capacity int // declared chunk size, i.e. maximum text length including any padding
	present  bool
}

// dataField records where the data chunk's declared size lives.
type dataField struct {
	Size       uint32
	sizeOffset int // offset within Raw of the data chunk's 4-byte size field
}

// Header is a parsed WAV header. Raw holds every byte from the start of the
// file up to (but excluding) the data payload, verbatim; mutating methods
// on Header write back into Raw at recorded offsets so that a rewrite is
// byte-identical outside the fields explicitly changed.
type Header struct {
	Raw    []byte
	Size   int // == len(Raw)
	Format Fmt
	Data   dataField

	riffSizeOffset int

	fmtSampleRateOffset int
	fmtByteRateOffset   int

	icmt textField
	iart textField
}

// Clone returns a deep copy of h, so that callers producing several
// outputs from one input header (e.g. Split) can mutate each copy
// independently.
func (h *Header) Clone() *Header {
	c := *h
	c.Raw = append([]byte(nil), h.Raw...)
	return &c
}

// Comment returns the current ICMT text, trimmed of trailing zero padding.
func (h *Header) Comment() string {
	return trimZero(h.textBytes(h.icmt))
}

// Artist returns the current IART text, trimmed of trailing zero padding.
func (h *Header) Artist() string {
	return trimZero(h.textBytes(h.iart))
}

func (h *Header) textBytes(f textField) []byte {
	if !f.present {
		return nil
	}
	return h.Raw[f.offset : f.offset+f.capacity]
}

func trimZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ReadHeader parses the RIFF/WAVE container beginning at b[0]. fileSize is
// the total size of the file b was read from, used to validate the data
// chunk's declared size against the bytes actually available.
func ReadHeader(b []byte, fileSize int64) (*Header, error) {
	if len(b) < minRiffLen+chunkHeader {
		return nil, errkind.New(errkind.HeaderInvalid, "file too short for a RIFF header")
	}
	if string(b[0:4]) != "RIFF" {
		return nil, errkind.New(errkind.HeaderInvalid, "missing RIFF magic")
	}
	if string(b[8:12]) != "WAVE" {
		return nil, errkind.New(errkind.HeaderInvalid, "RIFF format is not WAVE")
	}

	h := &Header{riffSizeOffset: 4}

	var (
		haveFmt  bool
		haveData bool
	)

	off := minRiffLen
	for {
		if off+chunkHeader > len(b) {
			return nil, errkind.New(errkind.HeaderInvalid, "truncated chunk header")
		}
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		bodyOff := off + chunkHeader

		switch id {
		case "fmt ":
			if int(size) < fmtBodyLen || bodyOff+int(size) > len(b) {
				return nil, errkind.New(errkind.HeaderInvalid, "truncated or malformed fmt chunk")
			}
			f := Fmt{
				AudioFormat:      binary.LittleEndian.Uint16(b[bodyOff : bodyOff+2]),
				Channels:         binary.LittleEndian.Uint16(b[bodyOff+2 : bodyOff+4]),
				SamplesPerSecond: binary.LittleEndian.Uint32(b[bodyOff+4 : bodyOff+8]),
				BytesPerSecond:   binary.LittleEndian.Uint32(b[bodyOff+8 : bodyOff+12]),
				BlockAlign:       binary.LittleEndian.Uint16(b[bodyOff+12 : bodyOff+14]),
				BitsPerSample:    binary.LittleEndian.Uint16(b[bodyOff+14 : bodyOff+16]),
			}
			if f.AudioFormat != PCMFormat {
				return nil, errkind.New(errkind.HeaderInvalid, "audio format is not PCM")
			}
			if f.Channels != 1 {
				return nil, errkind.New(errkind.HeaderInvalid, "audio is not mono")
			}
			if f.BitsPerSample != 16 {
				return nil, errkind.New(errkind.HeaderInvalid, "audio is not 16-bit")
			}
			h.Format = f
			h.fmtSampleRateOffset = bodyOff + 4
			h.fmtByteRateOffset = bodyOff + 8
			haveFmt = true

		case "LIST":
			if bodyOff+int(size) > len(b) {
				return nil, errkind.New(errkind.HeaderInvalid, "truncated LIST chunk")
			}
			if int(size) >= 4 && string(b[bodyOff:bodyOff+4]) == "INFO" {
				h.parseInfoList(b, bodyOff+4, bodyOff+int(size))
			}

		case "data":
			if !haveFmt {
				return nil, errkind.New(errkind.HeaderInvalid, "data chunk precedes fmt chunk")
			}
			if int64(bodyOff)+int64(size) > fileSize {
				return nil, errkind.New(errkind.HeaderInvalid, "data size exceeds bytes available in file")
			}
			h.Data = dataField{Size: size, sizeOffset: off + 4}
			haveData = true
		}

		if id == "data" {
			// The header ends exactly where the data payload begins.
			h.Raw = append([]byte(nil), b[:bodyOff]...)
			h.Size = len(h.Raw)
			break
		}

		next := bodyOff + int(size)
		if size%2 == 1 {
			next++ // chunks are padded to an even length
		}
		if next <= off {
			return nil, errkind.New(errkind.HeaderInvalid, "zero-length chunk loop")
		}
		off = next
	}

	if !haveFmt {
		return nil, errkind.New(errkind.HeaderInvalid, "missing fmt chunk")
	}
	if !haveData {
		return nil, errkind.New(errkind.HeaderInvalid, "missing data chunk")
	}

	return h, nil
}

// parseInfoList walks the ICMT/IART subchunks of a LIST/INFO chunk, all
// offsets relative to the file-level buffer b, recording their positions
// for later in-place rewrites. Unrecognised subchunks are ignored.
func (h *Header) parseInfoList(b []byte, start, end int) {
	off := start
	for off+chunkHeader <= end {
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		bodyOff := off + chunkHeader
		if bodyOff+int(size) > end {
			return
		}
		switch id {
		case "ICMT":
			h.icmt = textField{offset: bodyOff, capacity: int(size), present: true}
		case "IART":
			h.iart = textField{offset: bodyOff, capacity: int(size), present: true}
		}
		next := bodyOff + int(size)
		if size%2 == 1 {
			next++
		}
		if next <= off {
			return
		}
		off = next
	}
}

// UpdateComment replaces the ICMT text, zero-padding it to the declared
// capacity. It fails if text does not fit, and is a no-op error if the
// header carries no ICMT chunk at all.
func (h *Header) UpdateComment(text string) error {
	if !h.icmt.present {
		return errkind.New(errkind.InvalidArgument, "header has no ICMT chunk to update")
	}
	if len(text) > h.icmt.capacity {
		return errkind.New(errkind.InvalidArgument, fmt.Sprintf("comment of %d bytes exceeds ICMT capacity of %d", len(text), h.icmt.capacity))
	}
	dst := h.Raw[h.icmt.offset : h.icmt.offset+h.icmt.capacity]
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, text)
	return nil
}

// UpdateSampleRate rewrites the fmt chunk's sample rate and the derived
// bytes-per-second field.
func (h *Header) UpdateSampleRate(rate uint32) {
	h.Format.SamplesPerSecond = rate
	h.Format.BytesPerSecond = rate * uint32(h.Format.Channels) * uint32(h.Format.BitsPerSample) / 8
	binary.LittleEndian.PutUint32(h.Raw[h.fmtSampleRateOffset:h.fmtSampleRateOffset+4], h.Format.SamplesPerSecond)
	binary.LittleEndian.PutUint32(h.Raw[h.fmtByteRateOffset:h.fmtByteRateOffset+4], h.Format.BytesPerSecond)
}

// UpdateSizes sets the data chunk's declared size to dataSize and
// recomputes the outer RIFF size to cover the header, the data payload and,
// if guano is non-nil, the trailing guan chunk.
func (h *Header) UpdateSizes(guano *Guano, dataSize uint32) {
	h.Data.Size = dataSize
	binary.LittleEndian.PutUint32(h.Raw[h.Data.sizeOffset:h.Data.sizeOffset+4], dataSize)

	riffSize := uint32(len(h.Raw)-8) + dataSize
	if guano != nil {
		riffSize += guanoChunkLen(guano)
	}
	binary.LittleEndian.PutUint32(h.Raw[h.riffSizeOffset:h.riffSizeOffset+4], riffSize)
}

// WriteHeader writes the header's current bytes to w.
func WriteHeader(w io.Writer, h *Header) (int, error) {
	n, err := w.Write(h.Raw)
	if err != nil {
		return n, errkind.Wrap(errkind.OutputWriteFailed, err, "writing header")
	}
	return n, nil
}
