/*
NAME
  guano.go

DESCRIPTION
  guano.go reads and writes the trailing "guan" RIFF chunk used by the
  GUANO bat-recording metadata convention. The chunk body is kept both as
  a raw buffer, for verbatim rewrite, and as a string, for the small
  regex-based text edits Split and Expand perform on it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package wav

import (
	"encoding/binary"
	"io"

	"github.com/fieldrec/loggertools/errkind"
)

// guanoID is the four-byte chunk id of a GUANO metadata block.
const guanoID = "guan"

// Guano is an optional trailing metadata chunk carrying free-form bat
// recording metadata as UTF-8 text.
type Guano struct {
	Size int
	Raw  []byte // the chunk body, unmodified
	Text string // Raw as a string, for regex edits
}

// ReadGuano reads one guan chunk starting at b[0]. availableBytes bounds how
// much of b may be consumed; if fewer than 8 bytes remain, or the declared
// size does not fit, an error is returned. A caller that has already
// determined there is no trailing guan chunk should not call ReadGuano.
func ReadGuano(b []byte, availableBytes int) (*Guano, error) {
	if availableBytes < chunkHeader {
		return nil, errkind.New(errkind.HeaderInvalid, "not enough bytes remaining for a guan chunk header")
	}
	if string(b[0:4]) != guanoID {
		return nil, errkind.New(errkind.HeaderInvalid, "expected guan chunk id")
	}
	size := int(binary.LittleEndian.Uint32(b[4:8]))
	if chunkHeader+size > availableBytes {
		return nil, errkind.New(errkind.HeaderInvalid, "guan chunk size exceeds bytes available")
	}
	raw := append([]byte(nil), b[chunkHeader:chunkHeader+size]...)
	return &Guano{Size: size, Raw: raw, Text: string(raw)}, nil
}

// SetText replaces the guano body with the given text, updating both Raw
// and Text and adjusting Size to match.
func (g *Guano) SetText(text string) {
	g.Text = text
	g.Raw = []byte(text)
	g.Size = len(g.Raw)
}

// guanoChunkLen returns the total number of bytes a guan chunk occupies on
// disk, including its 8-byte header and even-length padding.
func guanoChunkLen(g *Guano) uint32 {
	n := chunkHeader + g.Size
	if g.Size%2 == 1 {
		n++
	}
	return uint32(n)
}

// WriteGuano writes g as a guan chunk to w, padding to an even length as
// RIFF chunks require.
func WriteGuano(w io.Writer, g *Guano) (int, error) {
	hdr := make([]byte, chunkHeader)
	copy(hdr[0:4], guanoID)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(g.Size))

	n, err := w.Write(hdr)
	if err != nil {
		return n, errkind.Wrap(errkind.OutputWriteFailed, err, "writing guan chunk header")
	}
	m, err := w.Write(g.Raw)
	n += m
	if err != nil {
		return n, errkind.Wrap(errkind.OutputWriteFailed, err, "writing guan chunk body")
	}
	if g.Size%2 == 1 {
		p, err := w.Write([]byte{0})
		n += p
		if err != nil {
			return n, errkind.Wrap(errkind.OutputWriteFailed, err, "writing guan chunk padding")
		}
	}
	return n, nil
}
