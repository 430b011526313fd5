/*
NAME
  sync.go

DESCRIPTION
  sync.go implements the Sync top-level operation: it reconciles a
  recording against its PPS event CSV, optionally resamples it, streams
  the corrected sample payload to a new file, and, when the plan carries
  unusual intervals under autoResolve, writes a companion report.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package sync

import (
	"fmt"
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
	"gonum.org/v1/gonum/stat"
)

const maxOutputBytes = 1<<32 - 1

// Options configures a Sync call.
type Options struct {
	InputPath    string
	CSVPath      string
	OutputDir    string
	Prefix       string
	ResampleRate uint32 // 0 means "do not resample".
	AutoResolve  bool
	FixPPSEvents bool
	AlignSamples bool
	Progress     opkit.Progress
	Logger       logging.Logger
}

// Sync runs the Sync operation end to end and returns the output WAV path.
func Sync(opts Options) (string, error) {
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
	vr, err := filename.Validate(filename.Sync, base, header)
	if err != nil {
		return "", err
	}

	csvFile, err := os.Open(opts.CSVPath)
	if err != nil {
		return "", errkind.Wrap(errkind.InputReadFailed, err, "opening PPS event CSV")
	}
	defer csvFile.Close()

	plan, err := BuildPlan(csvFile, header.Format.SamplesPerSecond, vr.OriginalTimestampMs, opts.AutoResolve, opts.FixPPSEvents, opts.AlignSamples)
	if err != nil {
		return "", err
	}

	plan.TargetSampleRate = header.Format.SamplesPerSecond
	if opts.ResampleRate != 0 && opts.ResampleRate != header.Format.SamplesPerSecond {
		if opts.ResampleRate < header.Format.SamplesPerSecond {
			return "", errkind.New(errkind.InvalidArgument, "resampleRate must be greater than or equal to the reconciled sample rate")
		}
		plan.TargetSampleRate = opts.ResampleRate
	}

	totalInputSamples := int64(header.Data.Size) / 2
	numberOfSamplesToWrite := outputLength(totalInputSamples, header.Format.SamplesPerSecond, plan.TargetSampleRate)
	if numberOfSamplesToWrite*2 > maxOutputBytes {
		return "", errkind.New(errkind.FileSizeExceedsLimit, "sync output would exceed the 2^32-1 byte RIFF size limit")
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
	if plan.TargetSampleRate != header.Format.SamplesPerSecond {
		outHeader.UpdateSampleRate(plan.TargetSampleRate)
	}
	outHeader.UpdateSizes(guano, uint32(numberOfSamplesToWrite*2))
	if _, err := wav.WriteHeader(out, outHeader); err != nil {
		return "", err
	}

	dataReader := io.NewSectionReader(f, int64(header.Size), int64(header.Data.Size))
	progress(0)
	written, err := Run(dataReader, out, plan, numberOfSamplesToWrite)
	if err != nil {
		return "", err
	}
	progress(100)

	if guano != nil {
		if _, err := wav.WriteGuano(out, guano); err != nil {
			return "", err
		}
	}

	if len(plan.UnusualIntervals) > 0 && opts.AutoResolve {
		if err := writeUnusualRateReport(outPath, plan); err != nil {
			return "", err
		}
	}

	log.Info("sync: wrote output file", "path", outPath, "samples", written, "targetRate", plan.TargetSampleRate)
	return outPath, nil
}

func writeUnusualRateReport(outPath string, plan *Plan) error {
	reportPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".TXT"

	rates := make([]float64, len(plan.Intervals))
	for i, iv := range plan.Intervals {
		rates[i] = iv.SampleRate
	}
	stdDev := stat.StdDev(rates, nil)

	var b strings.Builder
	fmt.Fprintf(&b, "Unusual sample rate intervals (average %.3f Hz, stddev %.3f Hz):\n", plan.AverageSampleRate, stdDev)
	for _, idx := range plan.UnusualIntervals {
		iv := plan.Intervals[idx]
		fmt.Fprintf(&b, "interval %d: rate=%.3f Hz, duration=%.0fs\n", idx, iv.SampleRate, iv.TimeInterval)
	}
	if err := os.WriteFile(reportPath, []byte(b.String()), 0o644); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "writing unusual rate report")
	}
	return nil
}

func outputFilename(prefix string, vr *filename.Result) string {
	p := prefix
	if p == "" {
		p = vr.Prefix
	}
	var b strings.Builder
	if p != "" {
		b.WriteString(p)
		b.WriteByte('_')
	}
	b.WriteString(vr.Timestamp.Format("20060102_150405"))
	b.WriteString("_SYNC.WAV")
	return b.String()
}

func outputLength(inputSamples int64, sourceRate, requestedRate uint32) int64 {
	if sourceRate == requestedRate {
		return inputSamples
	}
	return pcm.OutputLength(inputSamples, sourceRate, requestedRate)
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
