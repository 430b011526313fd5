/*
NAME
  downsample.go

DESCRIPTION
  downsample.go implements the Downsampler operation: it streams an input
  WAV's data payload through the fixed-point integer-ratio averaging engine
  and writes a new WAV at the requested sample rate, preserving any trailing
  GUANO chunk.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package downsample implements the Downsampler operation.
package downsample

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fieldrec/loggertools/codec/pcm"
	"github.com/fieldrec/loggertools/codec/wav"
	"github.com/fieldrec/loggertools/errkind"
	"github.com/fieldrec/loggertools/filename"
	"github.com/fieldrec/loggertools/opkit"

	"github.com/ausocean/utils/logging"
)

// Options configures a Downsample call.
type Options struct {
	InputPath           string
	OutputDir           string
	Prefix              string // prepended ahead of any prefix carried by the input filename.
	RequestedSampleRate uint32
	Progress            opkit.Progress
	Logger              logging.Logger
}

// Downsample reads opts.InputPath and writes a single WAV file under
// opts.OutputDir resampled to opts.RequestedSampleRate. It returns the path
// written.
func Downsample(opts Options) (string, error) {
	log := opkit.OrNop(opts.Logger)
	progress := opkit.OrNoop(opts.Progress)

	f, err := os.Open(opts.InputPath)
	if err != nil {
		return "", errkind.Wrap(errkind.InputReadFailed, err, "opening input")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errkind.Wrap(errkind.InputReadFailed, err, "stat input")
	}
	if info.Size() == 0 {
		return "", errkind.New(errkind.FileSizeZero, "input file is empty")
	}

	head := make([]byte, minInt(info.Size(), 64*1024))
	if _, err := f.ReadAt(head, 0); err != nil && err != io.EOF {
		return "", errkind.Wrap(errkind.InputReadFailed, err, "reading header")
	}
	header, err := wav.ReadHeader(head, info.Size())
	if err != nil {
		return "", err
	}

	base := filepath.Base(opts.InputPath)
	vr, err := filename.Validate(filename.Downsample, base, nil)
	if err != nil {
		return "", err
	}

	sourceRate := header.Format.SamplesPerSecond
	sampler, err := pcm.NewDownsampler(sourceRate, opts.RequestedSampleRate)
	if err != nil {
		return "", err
	}

	guano, err := readTrailingGuano(f, header, info.Size())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", errkind.Wrap(errkind.OutputWriteFailed, err, "creating output directory")
	}
	outPath := filepath.Join(opts.OutputDir, outputFilename(opts.Prefix, vr))
	out, err := os.Create(outPath)
	if err != nil {
		return "", errkind.Wrap(errkind.OutputWriteFailed, err, "creating output file")
	}
	defer out.Close()

	outHeader := header.Clone()
	outHeader.UpdateSampleRate(opts.RequestedSampleRate)
	// Sizes from the expected output sample count; UpdateSizes is called
	// again below if the true count differs.
	inputSamples := int64(header.Data.Size) / 2
	outputSamples := pcm.OutputLength(inputSamples, sourceRate, opts.RequestedSampleRate)
	outHeader.UpdateSizes(guano, uint32(outputSamples*2))

	if _, err := wav.WriteHeader(out, outHeader); err != nil {
		return "", err
	}

	dataOffset := int64(header.Size)
	dataSize := int64(header.Data.Size)
	tracker := opkit.NewPercentTracker(dataSize, progress)

	var written int64
	reader := io.NewSectionReader(f, dataOffset, dataSize)
	buf := make([]byte, 4096)
	var read int64
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			for i := 0; i+1 < n; i += 2 {
				sample := int16(binary.LittleEndian.Uint16(buf[i : i+2]))
				for _, s := range sampler.Push(sample) {
					if err := writeSample(out, s); err != nil {
						return "", err
					}
					written++
				}
			}
			read += int64(n)
			tracker.Update(read)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", errkind.Wrap(errkind.InputReadFailed, rerr, "reading data payload")
		}
	}
	if v, ok := sampler.Flush(); ok {
		if err := writeSample(out, v); err != nil {
			return "", err
		}
		written++
	}
	tracker.Done()

	if written != outputSamples {
		outHeader.UpdateSizes(guano, uint32(written*2))
		if _, err := out.Seek(0, io.SeekStart); err != nil {
			return "", errkind.Wrap(errkind.OutputWriteFailed, err, "rewriting header")
		}
		if _, err := wav.WriteHeader(out, outHeader); err != nil {
			return "", err
		}
		if _, err := out.Seek(0, io.SeekEnd); err != nil {
			return "", errkind.Wrap(errkind.OutputWriteFailed, err, "seeking to end")
		}
	}

	if guano != nil {
		if _, err := wav.WriteGuano(out, guano); err != nil {
			return "", err
		}
	}

	log.Info("downsample: wrote output file", "path", outPath, "sourceRate", sourceRate, "requestedRate", opts.RequestedSampleRate, "samples", written)
	return outPath, nil
}

// outputFilename builds the output name for a downsampled file following
// the [prefix_][existingPrefix]timestring[_SYNC].WAV grammar: a
// caller-given prefix is prepended ahead of, not instead of, any prefix
// the input filename already carried. The "_SYNC" postfix is preserved
// per the filename validator's rule that SPLIT and DOWNSAMPLE outputs
// keep it.
func outputFilename(prefix string, vr *filename.Result) string {
	ts := vr.Timestamp.Format("20060102_150405")
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

func writeSample(w io.Writer, s int16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(s))
	if _, err := w.Write(b[:]); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "writing sample")
	}
	return nil
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

func minInt(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
