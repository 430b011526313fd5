/*
NAME
  split.go

DESCRIPTION
  split.go implements the Splitter operation: it cuts one WAV recording
  into several, each no longer than a caller-supplied maximum duration,
  preserving the GUANO metadata and ICMT comment conventions the other
  operations and the Summariser depend on.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package split implements the Splitter operation.
package split

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fieldrec/loggertools/codec/wav"
	"github.com/fieldrec/loggertools/errkind"
	"github.com/fieldrec/loggertools/filename"
	"github.com/fieldrec/loggertools/opkit"

	"github.com/ausocean/utils/logging"
)

// DefaultMaximumFileDuration is the one-day default a caller that omits an
// explicit duration should apply before calling Options; the library itself
// always requires a positive duration.
const DefaultMaximumFileDuration = 24 * 60 * 60

const bytesPerSample = 2 // mono, 16-bit PCM.

// Options configures a Split call.
type Options struct {
	InputPath           string
	OutputDir           string
	Prefix              string // prepended to every output filename, e.g. a device id.
	MaximumFileDuration int    // seconds; must be positive.
	Progress            opkit.Progress
	Logger              logging.Logger
}

var guanoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// Split reads opts.InputPath and writes one or more output WAV files under
// opts.OutputDir, each spanning at most opts.MaximumFileDuration seconds of
// audio. It returns the paths written, in order.
func Split(opts Options) ([]string, error) {
	log := opkit.OrNop(opts.Logger)
	progress := opkit.OrNoop(opts.Progress)

	if opts.MaximumFileDuration <= 0 {
		return nil, errkind.New(errkind.InvalidArgument, "maximumFileDuration must be a positive number of seconds")
	}

	f, err := os.Open(opts.InputPath)
	if err != nil {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "opening input")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "stat input")
	}
	if info.Size() == 0 {
		return nil, errkind.New(errkind.FileSizeZero, "input file is empty")
	}

	head, err := readHeaderBytes(f, info.Size())
	if err != nil {
		return nil, err
	}
	header, err := wav.ReadHeader(head, info.Size())
	if err != nil {
		return nil, err
	}

	base := filepath.Base(opts.InputPath)
	vr, err := filename.Validate(filename.Split, base, header)
	if err != nil {
		return nil, err
	}
	log.Info("split: validated input filename", "file", base, "timestamp", vr.Timestamp)

	guano, err := readTrailingGuano(f, header, info.Size())
	if err != nil {
		return nil, err
	}

	chunkBytes := int64(opts.MaximumFileDuration) * int64(header.Format.SamplesPerSecond) * bytesPerSample
	if chunkBytes <= 0 {
		return nil, errkind.New(errkind.InvalidArgument, "maximumFileDuration produces a non-positive chunk size")
	}

	dataOffset := int64(header.Size)
	dataSize := int64(header.Data.Size)

	var chunks []int64
	remaining := dataSize
	for remaining > 0 {
		n := chunkBytes
		if n > remaining {
			n = remaining
		}
		chunks = append(chunks, n)
		remaining -= n
	}
	if len(chunks) == 0 {
		chunks = []int64{0}
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errkind.Wrap(errkind.OutputWriteFailed, err, "creating output directory")
	}

	tracker := opkit.NewPercentTracker(dataSize, progress)

	var written []string
	var offset int64
	for i, n := range chunks {
		outHeader := header.Clone()
		outHeader.UpdateSizes(guano, uint32(n))

		tsMillis := vr.OriginalTimestampMs + int64(i)*int64(opts.MaximumFileDuration)*1000
		outTime := time.UnixMilli(tsMillis).UTC()

		if len(chunks) > 1 {
			comment := fmt.Sprintf("Split from %s as file %d of %d.", base, i+1, len(chunks))
			if err := outHeader.UpdateComment(comment); err != nil {
				return nil, err
			}
		}

		outGuano := guano
		if guano != nil {
			outGuano = editGuanoTimestamp(guano, outTime)
		}

		outName := outputFilename(opts.Prefix, outTime, vr)
		outPath := filepath.Join(opts.OutputDir, outName)

		if err := writeChunk(outPath, outHeader, f, dataOffset+offset, n, outGuano); err != nil {
			return nil, err
		}
		written = append(written, outPath)

		offset += n
		tracker.Update(offset)
	}
	tracker.Done()

	log.Info("split: wrote output files", "count", len(written))
	return written, nil
}

// readHeaderBytes reads enough of f's start to parse a full RIFF/WAVE
// header; since the header length is not known in advance, it reads the
// whole file if small, or a generous bound otherwise, and relies on
// wav.ReadHeader to report a truncated chunk if that bound is too small.
func readHeaderBytes(f *os.File, fileSize int64) ([]byte, error) {
	const headerBound = 64 * 1024
	n := fileSize
	if n > headerBound {
		n = headerBound
	}
	buf := make([]byte, n)
	if _, err := f.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "reading header")
	}
	return buf, nil
}

// readTrailingGuano reports the guan chunk following the data payload, if
// any; it is not an error for one to be absent.
func readTrailingGuano(f *os.File, header *wav.Header, fileSize int64) (*wav.Guano, error) {
	trailerOffset := int64(header.Size) + int64(header.Data.Size)
	available := fileSize - trailerOffset
	if available < 8 {
		return nil, nil
	}
	buf := make([]byte, available)
	if _, err := f.ReadAt(buf, trailerOffset); err != nil && err != io.EOF {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "reading trailing guano")
	}
	if string(buf[0:4]) != "guan" {
		return nil, nil
	}
	return wav.ReadGuano(buf, len(buf))
}

// editGuanoTimestamp returns a copy of g with the first "YYYY-MM-DDTHH:MM:SS"
// occurrence in its text replaced by t.
func editGuanoTimestamp(g *wav.Guano, t time.Time) *wav.Guano {
	out := &wav.Guano{Size: g.Size, Raw: append([]byte(nil), g.Raw...), Text: g.Text}
	replacement := t.Format("2006-01-02T15:04:05")
	loc := guanoTimestampPattern.FindStringIndex(out.Text)
	if loc == nil {
		return out
	}
	out.SetText(out.Text[:loc[0]] + replacement + out.Text[loc[1]:])
	return out
}

// writeChunk writes one output WAV file: header, then n bytes of the data
// payload copied verbatim from src starting at srcOffset, then guano.
func writeChunk(outPath string, header *wav.Header, src *os.File, srcOffset, n int64, guano *wav.Guano) error {
	out, err := os.Create(outPath)
	if err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "creating output file")
	}
	defer out.Close()

	if _, err := wav.WriteHeader(out, header); err != nil {
		return err
	}
	if _, err := io.Copy(out, io.NewSectionReader(src, srcOffset, n)); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "copying data payload")
	}
	if guano != nil {
		if _, err := wav.WriteGuano(out, guano); err != nil {
			return err
		}
	}
	return nil
}

// outputFilename builds the output name for a split file following the
// [prefix_][existingPrefix]timestring[_SYNC].WAV grammar: a caller-given
// prefix is prepended ahead of, not instead of, any prefix the input
// filename already carried.
func outputFilename(prefix string, t time.Time, vr *filename.Result) string {
	ts := t.Format("20060102_150405")
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('_')
	}
	if vr.Prefix != "" {
		b.WriteString(vr.Prefix)
		b.WriteByte('_')
	}
	b.WriteString(ts)
	if vr.HasSyncPostfix() {
		b.WriteString("_SYNC")
	}
	b.WriteString(".WAV")
	return b.String()
}
