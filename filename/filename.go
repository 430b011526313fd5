/*
NAME
  filename.go

DESCRIPTION
  filename.go validates and decomposes the filenames produced and consumed
  by the logger-tools operations, and cross-checks the extracted timestring
  against the WAV header's ICMT comment and IART artist fields.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package filename validates AudioMoth-style recording filenames against
// the timestamp, artist and comment metadata carried in a WAV header.
package filename

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fieldrec/loggertools/codec/wav"
	"github.com/fieldrec/loggertools/errkind"
)

// Operation identifies which of the four filename shapes to validate
// against.
type Operation int

const (
	Split Operation = iota
	Downsample
	Expand
	Sync
)

func (o Operation) String() string {
	switch o {
	case Split:
		return "SPLIT"
	case Downsample:
		return "DOWNSAMPLE"
	case Expand:
		return "EXPAND"
	case Sync:
		return "SYNC"
	default:
		return "UNKNOWN"
	}
}

// artistTag is the literal prefix AudioMoth writes into the IART chunk
// ahead of the device identifier.
const artistTag = "AudioMoth "

const timeLayout = "20060102_150405"

var (
	fullPattern   = regexp.MustCompile(`^(.*?)(\d{8}_\d{6})(.*?)\.(?i:wav)$`)
	legacyPattern = regexp.MustCompile(`^(.*?)(\d{6})(.*?)\.(?i:wav)$`)

	commentPattern = regexp.MustCompile(`Recorded at (\d{2}):(\d{2}):(\d{2}) (\d{2})/(\d{2})/(\d{4})`)
)

// Result is the outcome of a successful Validate call.
type Result struct {
	Prefix              string
	Postfix             string
	Timestamp           time.Time // UTC
	OriginalTimestampMs int64     // Timestamp as a UTC epoch-millisecond integer.
	LegacyTimeOnly      bool      // true if the filename carried the bare HHMMSS form.
}

// HasSyncPostfix reports whether the existing postfix is the "_SYNC" marker
// that SPLIT and DOWNSAMPLE outputs must preserve.
func (r *Result) HasSyncPostfix() bool {
	return strings.EqualFold(r.Postfix, "SYNC")
}

// Validate decomposes filename into (prefix, timestring, postfix) per op's
// rules and cross-checks the result against header's metadata. header may
// be nil for Downsample, which performs no metadata cross-check.
func Validate(op Operation, filename string, header *wav.Header) (*Result, error) {
	prefix, ts, postfix, legacy, err := decompose(op, filename)
	if err != nil {
		return nil, err
	}

	var timestamp time.Time
	if legacy {
		timestamp, err = legacyTimestamp(ts, header)
	} else {
		timestamp, err = time.ParseInLocation(timeLayout, ts, time.UTC)
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.FilenameInvalid, err, "parsing timestring "+ts)
	}

	if requiresArtistCheck(op) && prefix != "" {
		if err := checkArtist(prefix, header); err != nil {
			return nil, err
		}
	}

	if requiresCommentCheck(op) {
		if err := checkComment(timestamp, header); err != nil {
			return nil, err
		}
	}

	return &Result{
		Prefix:              prefix,
		Postfix:             postfix,
		Timestamp:           timestamp,
		OriginalTimestampMs: timestamp.UnixMilli(),
		LegacyTimeOnly:      legacy,
	}, nil
}

func requiresArtistCheck(op Operation) bool {
	return op == Expand || op == Sync
}

func requiresCommentCheck(op Operation) bool {
	return op == Split || op == Expand || op == Sync
}

// decompose applies op's filename pattern and trims the underscore that
// conventionally separates the timestring from its neighbouring prefix and
// postfix text.
func decompose(op Operation, filename string) (prefix, ts, postfix string, legacy bool, err error) {
	pattern := fullPattern
	if op == Expand {
		// EXPAND additionally accepts the legacy bare-HHMMSS form; try the
		// full form first so a filename that happens to contain six digits
		// inside an otherwise-full timestring is not misparsed.
		if m := fullPattern.FindStringSubmatch(filename); m != nil {
			return trimUnderscore(m[1]), m[2], trimUnderscoreLeading(m[3]), false, nil
		}
		pattern = legacyPattern
		legacy = true
	}

	m := pattern.FindStringSubmatch(filename)
	if m == nil {
		return "", "", "", false, errkind.New(errkind.FilenameInvalid, fmt.Sprintf("%s: filename %q does not match the expected pattern", op, filename))
	}
	return trimUnderscore(m[1]), m[2], trimUnderscoreLeading(m[3]), legacy, nil
}

func trimUnderscore(s string) string        { return strings.TrimSuffix(s, "_") }
func trimUnderscoreLeading(s string) string { return strings.TrimPrefix(s, "_") }

// legacyTimestamp resolves a bare HHMMSS timestring using the date fields
// of header's ICMT comment, since the legacy filename form carries no date.
func legacyTimestamp(ts string, header *wav.Header) (time.Time, error) {
	if header == nil {
		return time.Time{}, errkind.New(errkind.FilenameInvalid, "legacy HHMMSS timestring requires header metadata to resolve its date")
	}
	hh, err := strconv.Atoi(ts[0:2])
	if err != nil {
		return time.Time{}, err
	}
	mm, err := strconv.Atoi(ts[2:4])
	if err != nil {
		return time.Time{}, err
	}
	ss, err := strconv.Atoi(ts[4:6])
	if err != nil {
		return time.Time{}, err
	}

	fields := commentPattern.FindStringSubmatch(header.Comment())
	if fields == nil {
		return time.Time{}, errkind.New(errkind.MetadataMismatch, "comment does not carry a \"Recorded at\" timestamp to resolve legacy filename date")
	}
	if fields[1] != pad2(hh) || fields[2] != pad2(mm) || fields[3] != pad2(ss) {
		return time.Time{}, errkind.New(errkind.MetadataMismatch, "legacy filename time does not match comment time")
	}
	day := atoi(fields[4])
	month := atoi(fields[5])
	year := atoi(fields[6])
	return time.Date(year, time.Month(month), day, hh, mm, ss, 0, time.UTC), nil
}

func checkArtist(prefix string, header *wav.Header) error {
	if header == nil {
		return errkind.New(errkind.FilenameInvalid, "prefix present but no header metadata supplied to verify it")
	}
	want := strings.TrimPrefix(header.Artist(), artistTag)
	if prefix != want {
		return errkind.New(errkind.MetadataMismatch, fmt.Sprintf("filename prefix %q does not match artist-derived prefix %q", prefix, want))
	}
	return nil
}

func checkComment(ts time.Time, header *wav.Header) error {
	if header == nil {
		return errkind.New(errkind.FilenameInvalid, "no header metadata supplied to verify the comment timestamp")
	}
	fields := commentPattern.FindStringSubmatch(header.Comment())
	if fields == nil {
		return errkind.New(errkind.MetadataMismatch, "comment does not carry a \"Recorded at\" timestamp")
	}
	hh, mm, ss := atoi(fields[1]), atoi(fields[2]), atoi(fields[3])
	day, month, year := atoi(fields[4]), atoi(fields[5]), atoi(fields[6])
	if hh != ts.Hour() || mm != ts.Minute() || ss != ts.Second() ||
		day != ts.Day() || month != int(ts.Month()) || year != ts.Year() {
		return errkind.New(errkind.MetadataMismatch, "filename timestring does not reproduce the comment's \"Recorded at\" fields")
	}
	return nil
}

func pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
