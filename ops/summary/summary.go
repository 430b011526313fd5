/*
NAME
  summary.go

DESCRIPTION
  summary.go implements the Summariser accumulator: initialise clears it,
  summarise appends a best-effort row for one recognised file, and
  finalise sorts and writes the accumulated rows to SUMMARY.CSV.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package summary implements the Summariser: it walks a caller-supplied
// file enumeration and emits a CSV describing every recognised recording.
package summary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fieldrec/loggertools/codec/trigger"
	"github.com/fieldrec/loggertools/codec/wav"
	"github.com/fieldrec/loggertools/errkind"
	"github.com/fieldrec/loggertools/filename"
	"github.com/fieldrec/loggertools/opkit"
)

// Row is one summarised recording.
type Row struct {
	Folder      string
	Filename    string
	TimestampMs int64
	SampleRate  uint32
	Samples     int64
	Latitude    float64
	Longitude   float64
	HasPosition bool
	Temperature float64
	HasTemp     bool
	Voltage     string // "X.XV", "greater than 4.9V", "less than 2.5V", or "" if unknown
	Readable    bool   // false for a best-effort row built from partial data
}

// Accumulator collects Rows between matching Initialise and Finalise calls.
type Accumulator struct {
	rows []Row
}

// Initialise returns a fresh Accumulator.
func Initialise() *Accumulator {
	return &Accumulator{}
}

var operations = []filename.Operation{filename.Split, filename.Downsample, filename.Expand, filename.Sync}

// Summarise appends a row for filePath (relative to rootPath's folder)
// to a, recognising the filename against the union of the four operation
// grammars. Unreadable or partially unreadable files still produce a
// best-effort row rather than aborting the walk.
func (a *Accumulator) Summarise(rootPath, filePath string, progress opkit.Progress) error {
	notify := opkit.OrNoop(progress)
	notify(0)
	defer notify(100)

	folder := filepath.Dir(filePath)
	base := filepath.Base(filePath)

	row := Row{Folder: folder, Filename: base}

	f, err := os.Open(filepath.Join(rootPath, filePath))
	if err != nil {
		a.rows = append(a.rows, row)
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		a.rows = append(a.rows, row)
		return nil
	}

	head := make([]byte, minInt(info.Size(), 32*1024))
	if _, err := f.ReadAt(head, 0); err != nil && err != io.EOF {
		a.rows = append(a.rows, row)
		return nil
	}
	header, err := wav.ReadHeader(head, info.Size())
	if err != nil {
		a.rows = append(a.rows, row)
		return nil
	}
	row.SampleRate = header.Format.SamplesPerSecond

	vr := matchAnyOperation(base, header)
	if vr != nil {
		row.TimestampMs = vr.OriginalTimestampMs
		row.Readable = true
	}

	row.Samples = int64(header.Data.Size) / 2
	if vr != nil && strings.Contains(strings.ToUpper(vr.Postfix), "T") {
		if n, err := decompressedSampleCount(f, header); err == nil {
			row.Samples = n
		}
	}

	comment := header.Comment()
	if temp, ok := parseTemperature(comment); ok {
		row.Temperature, row.HasTemp = temp, true
	}
	if v, ok := parseVoltage(comment); ok {
		row.Voltage = v
	}

	guano, err := readTrailingGuano(f, header, info.Size())
	if err == nil && guano != nil {
		if lat, lon, ok := parseGuanoPosition(guano.Text); ok {
			row.Latitude, row.Longitude, row.HasPosition = lat, lon, true
		}
		if !row.HasTemp {
			if temp, ok := parseGuanoTemperature(guano.Text); ok {
				row.Temperature, row.HasTemp = temp, true
			}
		}
		if row.Voltage == "" {
			if v, ok := parseGuanoVoltage(guano.Text); ok {
				row.Voltage = v
			}
		}
	}

	a.rows = append(a.rows, row)
	return nil
}

// Finalise sorts the accumulated rows by (folder, filename) ascending and
// writes the fixed-header SUMMARY.CSV to outputPath.
func (a *Accumulator) Finalise(outputPath string) error {
	sort.SliceStable(a.rows, func(i, j int) bool {
		if a.rows[i].Folder != a.rows[j].Folder {
			return a.rows[i].Folder < a.rows[j].Folder
		}
		return a.rows[i].Filename < a.rows[j].Filename
	})

	f, err := os.Create(outputPath)
	if err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "creating SUMMARY.CSV")
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("FOLDER,FILENAME,TIMESTAMP,SAMPLE_RATE,SAMPLES,LATITUDE,LONGITUDE,TEMPERATURE,VOLTAGE\n")
	for _, r := range a.rows {
		lat, lon := "", ""
		if r.HasPosition {
			lat = strconv.FormatFloat(r.Latitude, 'f', 6, 64)
			lon = strconv.FormatFloat(r.Longitude, 'f', 6, 64)
		}
		temp := ""
		if r.HasTemp {
			temp = strconv.FormatFloat(r.Temperature, 'f', 1, 64)
		}
		fmt.Fprintf(&b, "%s,%s,%d,%d,%d,%s,%s,%s,%s\n",
			r.Folder, r.Filename, r.TimestampMs, r.SampleRate, r.Samples, lat, lon, temp, r.Voltage)
	}

	if _, err := f.WriteString(b.String()); err != nil {
		return errkind.Wrap(errkind.OutputWriteFailed, err, "writing SUMMARY.CSV")
	}
	return nil
}

func matchAnyOperation(base string, header *wav.Header) *filename.Result {
	for _, op := range operations {
		if vr, err := filename.Validate(op, base, header); err == nil {
			return vr
		}
	}
	return nil
}

func decompressedSampleCount(f *os.File, header *wav.Header) (int64, error) {
	dataReader := io.NewSectionReader(f, int64(header.Size), int64(header.Data.Size))
	segs, err := trigger.Segments(dataReader, int64(header.Size), int64(header.Data.Size))
	if err != nil {
		return 0, err
	}
	var total int64
	for _, s := range segs {
		total += s.OutputBytes
	}
	return total / 2, nil
}

var (
	temperaturePattern      = regexp.MustCompile(`(-?\d+(?:\.\d+)?)C`)
	voltageExactPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)V`)
	voltageGreaterPattern   = regexp.MustCompile(`greater than (\d+(?:\.\d+)?)V`)
	voltageLessPattern      = regexp.MustCompile(`less than (\d+(?:\.\d+)?)V`)
	guanoPositionPattern    = regexp.MustCompile(`(?m)^Loc Position:\s*(-?\d+(?:\.\d+)?)\s+(-?\d+(?:\.\d+)?)`)
	guanoTemperaturePattern = regexp.MustCompile(`(?m)^Temperature Int:\s*(-?\d+(?:\.\d+)?)`)
	guanoVoltagePattern     = regexp.MustCompile(`(?m)^Battery:\s*(\S+)`)
)

func parseTemperature(comment string) (float64, bool) {
	m := temperaturePattern.FindStringSubmatch(comment)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}

func parseVoltage(comment string) (string, bool) {
	if m := voltageGreaterPattern.FindStringSubmatch(comment); m != nil {
		return "greater than " + m[1] + "V", true
	}
	if m := voltageLessPattern.FindStringSubmatch(comment); m != nil {
		return "less than " + m[1] + "V", true
	}
	if m := voltageExactPattern.FindStringSubmatch(comment); m != nil {
		return m[1] + "V", true
	}
	return "", false
}

func parseGuanoPosition(text string) (float64, float64, bool) {
	m := guanoPositionPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[2], 64)
	return lat, lon, err1 == nil && err2 == nil
}

func parseGuanoTemperature(text string) (float64, bool) {
	m := guanoTemperaturePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	return v, err == nil
}

func parseGuanoVoltage(text string) (string, bool) {
	m := guanoVoltagePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
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
