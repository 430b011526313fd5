/*
NAME
  align.go

DESCRIPTION
  align.go implements the three-step Align lifecycle: initialise loads a
  GPS log into a session of committed fixes, align reconciles and
  resamples one recording against that session, and finalise writes the
  combined GPS.CSV of fixes and recordings.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package align

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fieldrec/loggertools/codec/wav"
	"github.com/fieldrec/loggertools/errkind"
	"github.com/fieldrec/loggertools/filename"
	"github.com/fieldrec/loggertools/opkit"

	"github.com/ausocean/utils/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var zonePattern = regexp.MustCompile(`\(UTC([+-]\d{1,2})(?::(\d{2}))?\)`)
var localTimePattern = regexp.MustCompile(`Recorded at (\d{2}):(\d{2}):(\d{2}) (\d{2})/(\d{2})/(\d{4})`)
var guanoPositionPattern = regexp.MustCompile(`(?m)^Loc Position:\s*(-?\d+(?:\.\d+)?)\s+(-?\d+(?:\.\d+)?)`)

// Session holds the committed fixes loaded by Initialise, plus the
// accumulated recording entries to be written by Finalise.
type Session struct {
	Fixes      []Fix
	MedianRate float64
	RateMean   float64 // mHz, across all committed fixes.
	RateStdDev float64 // mHz.
	RateMin    float64 // mHz.
	RateMax    float64 // mHz.
	entries    []recordingEntry
}

type recordingEntry struct {
	timestampMs int64
	filename    string
	latitude    float64
	longitude   float64
	calculation Calculation
}

// Initialise streams gpsTxtPath and returns a ready-to-use Session.
func Initialise(gpsTxtPath string) (*Session, error) {
	f, err := os.Open(gpsTxtPath)
	if err != nil {
		return nil, errkind.Wrap(errkind.InputReadFailed, err, "opening GPS log")
	}
	defer f.Close()

	fixes, err := ParseFixes(f)
	if err != nil {
		return nil, err
	}
	if len(fixes) < 2 {
		return nil, errkind.New(errkind.InsufficientFixes, "GPS log produced fewer than two committed fixes")
	}
	sort.Slice(fixes, func(i, j int) bool { return fixes[i].TimestampMs < fixes[j].TimestampMs })

	rates := make([]float64, len(fixes))
	for i, fx := range fixes {
		rates[i] = fx.SampleRate
	}
	mean, stdDev := stat.MeanStdDev(rates, nil)

	return &Session{
		Fixes:      fixes,
		MedianRate: MedianSampleRate(fixes),
		RateMean:   mean,
		RateStdDev: stdDev,
		RateMin:    floats.Min(rates),
		RateMax:    floats.Max(rates),
	}, nil
}

// Options configures one Align call.
type Options struct {
	InputPath        string
	OutputDir        string
	Prefix           string
	OnlyBetweenFixes bool
	Progress         opkit.Progress
	Logger           logging.Logger
}

// Align reconciles and resamples opts.InputPath against s, recording the
// result for the session's eventual Finalise call. It returns the output
// path.
func (s *Session) Align(opts Options) (string, error) {
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

	recordingUTCMs, err := recordingUTCTime(header)
	if err != nil {
		return "", err
	}

	plan, err := BuildPlan(s.Fixes, recordingUTCMs, opts.OnlyBetweenFixes, s.MedianRate)
	if err != nil {
		return "", err
	}
	if err := CheckAgainstHeader(plan, header.Format.SamplesPerSecond); err != nil {
		return "", err
	}

	leading := LeadingSampleAdjustment(plan.TimeOffset, plan.SampleRateStart)
	inputSamples := int64(header.Data.Size)/2 - leading
	if inputSamples < 0 {
		inputSamples = 0
	}

	guano, err := readTrailingGuano(f, header, info.Size())
	if err != nil {
		return "", err
	}
	var lat, lon float64
	if guano != nil {
		if m := guanoPositionPattern.FindStringSubmatch(guano.Text); m != nil {
			lat, _ = strconv.ParseFloat(m[1], 64)
			lon, _ = strconv.ParseFloat(m[2], 64)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", errkind.Wrap(errkind.OutputWriteFailed, err, "creating output directory")
	}
	outName := outputFilename(opts.Prefix, vr)
	outPath := filepath.Join(opts.OutputDir, outName)
	out, err := os.Create(outPath)
	if err != nil {
		return "", errkind.Wrap(errkind.OutputWriteFailed, err, "creating output file")
	}
	defer out.Close()

	outHeader := header.Clone()
	outHeader.UpdateSizes(guano, uint32(inputSamples*2))
	if _, err := wav.WriteHeader(out, outHeader); err != nil {
		return "", err
	}

	dataReader := io.NewSectionReader(f, int64(header.Size), int64(header.Data.Size))
	progress(0)
	if _, err := Run(dataReader, out, plan, leading, inputSamples); err != nil {
		return "", err
	}
	progress(100)

	if guano != nil {
		if _, err := wav.WriteGuano(out, guano); err != nil {
			return "", err
		}
	}

	s.entries = append(s.entries, recordingEntry{
		timestampMs: recordingUTCMs,
		filename:    outName,
		latitude:    lat,
		longitude:   lon,
		calculation: plan.Calculation,
	})

	log.Info("align: wrote output file", "path", outPath, "calculation", plan.Calculation,
		"sessionRateMean", s.RateMean, "sessionRateStdDev", s.RateStdDev,
		"sessionRateMin", s.RateMin, "sessionRateMax", s.RateMax)
	return outPath, nil
}

// Finalise sorts recordings by timestamp, interleaves them with fixes, and
// writes the combined GPS.CSV.
func (s *Session) Finalise(outputPath string) error {
	sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].timestampMs < s.entries[j].timestampMs })

	f, err := os.Create(outputPath)
	if err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "creating GPS.CSV")
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("TIMESTAMP,TYPE,LATITUDE,LONGITUDE,TIME_OFFSET,SAMPLE_RATE,FILENAME,CALCULATION\n")

	type row struct {
		ts  int64
		txt string
	}
	var rows []row
	for _, fx := range s.Fixes {
		rows = append(rows, row{fx.TimestampMs, fmt.Sprintf("%d,FIX,%f,%f,%f,%f,,\n", fx.TimestampMs, fx.Latitude, fx.Longitude, fx.TimeOffset, fx.SampleRate)})
	}
	for _, e := range s.entries {
		rows = append(rows, row{e.timestampMs, fmt.Sprintf("%d,RECORDING,%f,%f,,,%s,%s\n", e.timestampMs, e.latitude, e.longitude, e.filename, e.calculation)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ts < rows[j].ts })
	for _, r := range rows {
		b.WriteString(r.txt)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "writing GPS.CSV")
	}
	return nil
}

// recordingUTCTime derives a recording's UTC start time from its comment's
// local time and timezone suffix.
func recordingUTCTime(header *wav.Header) (int64, error) {
	comment := header.Comment()
	zm := zonePattern.FindStringSubmatch(comment)
	offsetMinutes := 0
	if zm != nil {
		hours, _ := strconv.Atoi(zm[1])
		mins := 0
		if zm[2] != "" {
			mins, _ = strconv.Atoi(zm[2])
			if hours < 0 {
				mins = -mins
			}
		}
		offsetMinutes = hours*60 + mins
	}

	lm := localTimePattern.FindStringSubmatch(comment)
	if lm == nil {
		return 0, errkind.New(errkind.MetadataMismatch, "comment does not carry a \"Recorded at\" timestamp")
	}
	hh, _ := strconv.Atoi(lm[1])
	mm, _ := strconv.Atoi(lm[2])
	ss, _ := strconv.Atoi(lm[3])
	day, _ := strconv.Atoi(lm[4])
	month, _ := strconv.Atoi(lm[5])
	year, _ := strconv.Atoi(lm[6])

	local := time.Date(year, time.Month(month), day, hh, mm, ss, 0, time.UTC)
	utc := local.Add(-time.Duration(offsetMinutes) * time.Minute)

	return utc.UnixMilli(), nil
}

// outputFilename builds the output name for an aligned recording following
// the [prefix_][existingPrefix]timestring_SYNC.WAV grammar: a caller-given
// prefix is prepended ahead of, not instead of, any prefix the input
// filename already carried.
func outputFilename(prefix string, vr *filename.Result) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('_')
	}
	if vr.Prefix != "" {
		b.WriteString(vr.Prefix)
		b.WriteByte('_')
	}
	b.WriteString(vr.Timestamp.Format("20060102_150405"))
	b.WriteString("_SYNC.WAV")
	return b.String()
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
