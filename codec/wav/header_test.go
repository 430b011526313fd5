/*
NAME
  header_test.go

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package wav

import (
	"bytes"
	"testing"

	"github.com/fieldrec/loggertools/errkind"
)

func TestReadHeaderRoundTrip(t *testing.T) {
	comment := "Recorded at 12:00:00 01/01/2023 (UTC)"
	raw := buildWAV(48000, comment, "AudioMoth 1234567890ABCDEF", 128, 32, 960000, "")

	h, err := ReadHeader(raw, int64(len(raw)))
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}
	if h.Format.SamplesPerSecond != 48000 {
		t.Errorf("SamplesPerSecond = %d, want 48000", h.Format.SamplesPerSecond)
	}
	if h.Data.Size != 960000 {
		t.Errorf("Data.Size = %d, want 960000", h.Data.Size)
	}
	if got := h.Comment(); got != comment {
		t.Errorf("Comment() = %q, want %q", got, comment)
	}
	if got := h.Artist(); got != "AudioMoth 1234567890ABCDEF" {
		t.Errorf("Artist() = %q", got)
	}
}

func TestReadHeaderRejectsNonMono(t *testing.T) {
	raw := buildWAV(48000, "x", "y", 8, 8, 100, "")
	// Flip channel count to stereo within the fmt chunk.
	raw[12+8+2] = 2
	_, err := ReadHeader(raw, int64(len(raw)))
	if !errkind.Is(err, errkind.HeaderInvalid) {
		t.Fatalf("ReadHeader() error = %v, want HeaderInvalid", err)
	}
}

func TestReadHeaderRejectsOversizedData(t *testing.T) {
	raw := buildWAV(48000, "x", "y", 8, 8, 100, "")
	_, err := ReadHeader(raw, int64(len(raw)-1))
	if !errkind.Is(err, errkind.HeaderInvalid) {
		t.Fatalf("ReadHeader() error = %v, want HeaderInvalid", err)
	}
}

func TestUpdateCommentRejectsOverflow(t *testing.T) {
	raw := buildWAV(48000, "short", "artist", 8, 8, 100, "")
	h, err := ReadHeader(raw, int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.UpdateComment("this comment is far too long to fit"); !errkind.Is(err, errkind.InvalidArgument) {
		t.Errorf("UpdateComment() error = %v, want InvalidArgument", err)
	}
	if err := h.UpdateComment("fits ok"); err != nil {
		t.Errorf("UpdateComment() error = %v, want nil", err)
	}
	if got := h.Comment(); got != "fits ok" {
		t.Errorf("Comment() = %q", got)
	}
}

func TestUpdateSampleRateAndSizesByteIdenticalElsewhere(t *testing.T) {
	raw := buildWAV(48000, "hello world", "artist", 16, 8, 1000, "")
	h, err := ReadHeader(raw, int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), h.Raw...)

	h.UpdateSampleRate(16000)
	h.UpdateSizes(nil, 500)

	if h.Format.SamplesPerSecond != 16000 {
		t.Errorf("SamplesPerSecond = %d, want 16000", h.Format.SamplesPerSecond)
	}
	if h.Format.BytesPerSecond != 32000 {
		t.Errorf("BytesPerSecond = %d, want 32000", h.Format.BytesPerSecond)
	}

	// Every byte outside the sample rate, byte rate, data size and RIFF
	// size fields must be unchanged.
	changed := map[int]bool{}
	for _, off := range []int{h.fmtSampleRateOffset, h.fmtByteRateOffset, h.Data.sizeOffset, h.riffSizeOffset} {
		for i := 0; i < 4; i++ {
			changed[off+i] = true
		}
	}
	for i := range before {
		if changed[i] {
			continue
		}
		if before[i] != h.Raw[i] {
			t.Fatalf("byte %d changed unexpectedly: %02x -> %02x", i, before[i], h.Raw[i])
		}
	}
}

func TestWriteHeaderRoundTrip(t *testing.T) {
	raw := buildWAV(48000, "hello", "artist", 8, 8, 10, "")
	h, err := ReadHeader(raw, int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, err := WriteHeader(&buf, h)
	if err != nil {
		t.Fatal(err)
	}
	if n != h.Size {
		t.Errorf("WriteHeader() n = %d, want %d", n, h.Size)
	}
	if !bytes.Equal(buf.Bytes(), h.Raw) {
		t.Errorf("WriteHeader() output does not match Raw")
	}
}
