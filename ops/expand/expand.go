/*
NAME
  expand.go

DESCRIPTION
  expand.go implements the Expander operation: it decodes a trigger-
  compressed recording's silent-run sentinel blocks into a full-length
  timeline of AUDIO and SILENT segments, then cuts that timeline into
  output files either on fixed-duration boundaries (DURATION) or one per
  recorded event (EVENT).

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package expand implements the Expander operation.
package expand

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fieldrec/loggertools/codec/trigger"
	"github.com/fieldrec/loggertools/codec/wav"
	"github.com/fieldrec/loggertools/errkind"
	"github.com/fieldrec/loggertools/filename"
	"github.com/fieldrec/loggertools/opkit"

	"github.com/ausocean/utils/logging"
)

// Type selects between the two expansion strategies.
type Type int

const (
	// Duration cuts the reconstructed timeline into fixed-length slices.
	Duration Type = iota
	// Event emits one file per maximumFileDuration-second slab of each
	// recorded AUDIO segment.
	Event
)

const oneDaySeconds = 24 * 60 * 60
const bytesPerSample = 2

// Options configures an Expand call.
type Options struct {
	InputPath                string
	OutputDir                string
	Prefix                   string
	ExpansionType            Type
	MaximumFileDuration      int  // seconds; must be positive.
	GenerateSilentFiles      bool // DURATION only.
	AlignToSecondTransitions bool // EVENT only.
	Progress                 opkit.Progress
	Logger                   logging.Logger
}

var guanoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)

// Expand reads opts.InputPath, decodes its trigger-compressed timeline and
// writes the resulting output files under opts.OutputDir. It returns the
// paths written, in timeline order.
func Expand(opts Options) ([]string, error) {
	log := opkit.OrNop(opts.Logger)
	progress := opkit.OrNoop(opts.Progress)

	if opts.MaximumFileDuration <= 0 {
		return nil, errkind.New(errkind.InvalidArgument, "maximumFileDuration must be a positive number of seconds")
	}
	if opts.ExpansionType != Duration && opts.ExpansionType != Event {
		return nil, errkind.New(errkind.InvalidArgument, "unrecognised expansionType")
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

	head := make([]byte, minInt(info.Size(), 64*1024))
	if _, err := f.ReadAt(head, 0); err != nil && err != io.EOF {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "reading header")
	}
	header, err := wav.ReadHeader(head, info.Size())
	if err != nil {
		return nil, err
	}

	base := filepath.Base(opts.InputPath)
	vr, err := filename.Validate(filename.Expand, base, header)
	if err != nil {
		return nil, err
	}

	guano, err := readTrailingGuano(f, header, info.Size())
	if err != nil {
		return nil, err
	}

	dataReader := io.NewSectionReader(f, int64(header.Size), int64(header.Data.Size))
	segs, err := trigger.Segments(dataReader, int64(header.Size), int64(header.Data.Size))
	if err != nil {
		return nil, err
	}

	sampleRate := header.Format.SamplesPerSecond
	bytesPerSecond := int64(sampleRate) * bytesPerSample

	var plan []slice
	switch opts.ExpansionType {
	case Duration:
		plan = planDuration(segs, int64(opts.MaximumFileDuration), bytesPerSecond, opts.GenerateSilentFiles)
	case Event:
		plan = planEvent(segs, int64(opts.MaximumFileDuration), bytesPerSecond, opts.AlignToSecondTransitions)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errkind.Wrap(errkind.OutputWriteFailed, err, "creating output directory")
	}

	timelineTotal := int64(0)
	if len(segs) > 0 {
		last := segs[len(segs)-1]
		timelineTotal = last.OutputOffset + last.OutputBytes
	}
	tracker := opkit.NewPercentTracker(timelineTotal, progress)

	var written []string
	for _, sl := range plan {
		outTime := vr.Timestamp.Add(time.Duration(sl.start/bytesPerSecond) * time.Second)
		msOffset := int(sl.start%bytesPerSecond) * 1000 / int(bytesPerSecond)

		outHeader := header.Clone()
		outHeader.UpdateSizes(guano, uint32(sl.end-sl.start))

		outGuano := guano
		if guano != nil {
			outGuano = editGuanoTimestamp(guano, outTime)
		}

		outName := outputFilename(opts.Prefix, outTime, msOffset, !sl.aligned, vr)
		outPath := filepath.Join(opts.OutputDir, outName)

		if err := writeSlice(outPath, outHeader, f, int64(header.Size), segs, sl.start, sl.end, outGuano); err != nil {
			return nil, err
		}
		written = append(written, outPath)
		tracker.Update(sl.end)
	}
	tracker.Done()

	log.Info("expand: wrote output files", "count", len(written))
	return written, nil
}

// slice describes one output file's span within the decompressed timeline.
type slice struct {
	start, end int64
	aligned    bool // true if start lands on a whole-sample second (no ms filename suffix).
}

// planDuration cuts the timeline into fixed-duration slices, keeping a
// slice only if it intersects an AUDIO segment, generateSilentFiles is
// set, or the slice spans a full day.
func planDuration(segs []trigger.Segment, maxDurationSec, bytesPerSecond int64, generateSilentFiles bool) []slice {
	total := timelineLength(segs)
	sliceBytes := maxDurationSec * bytesPerSecond
	if sliceBytes <= 0 || total == 0 {
		return nil
	}
	isOneDaySlice := maxDurationSec == oneDaySeconds

	var out []slice
	for start := int64(0); start < total; start += sliceBytes {
		end := start + sliceBytes
		if end > total {
			end = total
		}
		if generateSilentFiles || isOneDaySlice || intersectsAudio(segs, start, end) {
			out = append(out, slice{start: start, end: end, aligned: true})
		}
	}
	return out
}

// planEvent emits one file per maximumFileDuration-second slab of each
// AUDIO segment, walking successive slabs until the whole segment is
// covered. When alignToSecondTransitions is set, the segment's first
// slab start is rounded down to the previous whole-sample second, and
// any AUDIO segment starting before that aligned second ends is folded
// into the same first slab rather than starting a new one.
func planEvent(segs []trigger.Segment, maxDurationSec, bytesPerSecond int64, align bool) []slice {
	var audio []trigger.Segment
	for _, s := range segs {
		if s.Kind == trigger.Audio {
			audio = append(audio, s)
		}
	}
	slabBytes := maxDurationSec * bytesPerSecond

	var out []slice
	i := 0
	for i < len(audio) {
		seg := audio[i]
		start := seg.OutputOffset
		aligned := false
		if align {
			start = (start / bytesPerSecond) * bytesPerSecond
			aligned = true
		}
		groupEnd := seg.OutputOffset + seg.OutputBytes

		end := start + slabBytes
		if end > groupEnd {
			end = groupEnd
		}

		j := i + 1
		if aligned {
			for j < len(audio) && audio[j].OutputOffset < start+bytesPerSecond {
				candEnd := audio[j].OutputOffset + audio[j].OutputBytes
				if candEnd > groupEnd {
					groupEnd = candEnd
				}
				if candEnd > end {
					end = candEnd
					if max := start + slabBytes; end > max {
						end = max
					}
				}
				j++
			}
		}
		out = append(out, slice{start: start, end: end, aligned: aligned})

		// Walk any remaining slabs across the whole coalesced group; only
		// the first slab gets the neighbour-coalescing above, but every
		// slab boundary here is slabBytes apart, so alignment carries
		// forward and groupEnd still covers bytes absorbed from later
		// segments that extended past this slab's cap.
		for end < groupEnd {
			start = end
			end = start + slabBytes
			if end > groupEnd {
				end = groupEnd
			}
			out = append(out, slice{start: start, end: end, aligned: aligned})
		}

		i = j
	}
	return out
}

func timelineLength(segs []trigger.Segment) int64 {
	if len(segs) == 0 {
		return 0
	}
	last := segs[len(segs)-1]
	return last.OutputOffset + last.OutputBytes
}

func intersectsAudio(segs []trigger.Segment, start, end int64) bool {
	for _, s := range segs {
		segEnd := s.OutputOffset + s.OutputBytes
		if s.OutputOffset >= end {
			break
		}
		if segEnd <= start {
			continue
		}
		if s.Kind == trigger.Audio {
			return true
		}
	}
	return false
}

// writeSlice streams the timeline byte range [start, end) to a new output
// file: header, then the requested range built from segs (AUDIO bytes
// copied verbatim from src, SILENT bytes zero-filled), then guano.
func writeSlice(outPath string, header *wav.Header, src io.ReaderAt, headerSize int64, segs []trigger.Segment, start, end int64, guano *wav.Guano) error {
	out, err := os.Create(outPath)
	if err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "creating output file")
	}
	defer out.Close()

	if _, err := wav.WriteHeader(out, header); err != nil {
		return err
	}

	zero := make([]byte, 32*1024)
	pos := start
	for _, s := range segs {
		segEnd := s.OutputOffset + s.OutputBytes
		if segEnd <= pos || s.OutputOffset >= end {
			continue
		}
		lo, hi := s.OutputOffset, segEnd
		if lo < pos {
			lo = pos
		}
		if hi > end {
			hi = end
		}
		if lo >= hi {
			continue
		}

		switch s.Kind {
		case trigger.Audio:
			inputOff := headerSize + s.InputOffset + (lo - s.OutputOffset)
			if _, err := io.Copy(out, io.NewSectionReader(src, inputOff, hi-lo)); err != nil {
				return errkind.Wrap(errkind.OutputWriteFailed, err, "copying audio segment")
			}
		case trigger.Silent:
			remaining := hi - lo
			for remaining > 0 {
				n := int64(len(zero))
				if n > remaining {
					n = remaining
				}
				if _, err := out.Write(zero[:n]); err != nil {
					return errkind.Wrap(errkind.OutputWriteFailed, err, "writing silent segment")
				}
				remaining -= n
			}
		}
		pos = hi
		if pos >= end {
			break
		}
	}

	if guano != nil {
		if _, err := wav.WriteGuano(out, guano); err != nil {
			return err
		}
	}
	return nil
}

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

// outputFilename builds the output name for an expand slice following the
// [prefix_][existingPrefix]timestring[_mmm].WAV grammar: a caller-given
// prefix is prepended ahead of, not instead of, any prefix the input
// filename already carried.
func outputFilename(prefix string, t time.Time, msOffset int, withMillis bool, vr *filename.Result) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('_')
	}
	if vr.Prefix != "" {
		b.WriteString(vr.Prefix)
		b.WriteByte('_')
	}
	b.WriteString(t.Format("20060102_150405"))
	if withMillis {
		fmt.Fprintf(&b, "_%03d", msOffset)
	}
	b.WriteString(".WAV")
	return b.String()
}

func minInt(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
