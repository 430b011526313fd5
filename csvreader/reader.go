/*
NAME
  reader.go

DESCRIPTION
  reader.go implements a header-driven streaming CSV reader used only by
  Sync to load a PPS event log. The caller supplies the ordered columns it
  wants and a parser for each; the reader resolves each column's position
  from the header row once, then appends parsed values to per-column
  ordered sequences as it scans.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package csvreader implements a small header-driven CSV scanner built on
// top of a byte-level line scanner, for the fixed-column PPS event logs
// Sync consumes.
package csvreader

import (
	"fmt"
	"io"
	"strings"

	"github.com/fieldrec/loggertools/codec/codecutil"
	"github.com/fieldrec/loggertools/errkind"
)

// Parser converts one cell's text into a typed value.
type Parser func(cell string) (interface{}, error)

// Column names one field the caller wants extracted, by the exact header
// name it must match and the parser to apply to each of its cells.
type Column struct {
	Name   string
	Parser Parser
}

// Reader accumulates one ordered sequence of parsed values per requested
// Column as it scans a CSV stream.
type Reader struct {
	columns []Column
	values  [][]interface{}
	rows    int
	skipped int
}

// New returns a Reader configured to extract columns, in the order given.
func New(columns []Column) *Reader {
	return &Reader{
		columns: columns,
		values:  make([][]interface{}, len(columns)),
	}
}

// Read scans r line by line. The first line is treated as the header and
// used to resolve each requested column's position; it is an error if any
// requested column is absent from the header. Every subsequent line is
// split on commas; a row whose cell count does not match the header's is
// skipped silently. Parsed values are appended to each column's ordered
// sequence in the order rows are read.
func (r *Reader) Read(src io.Reader) error {
	sc := codecutil.NewByteScanner(src, make([]byte, 4096))

	header, atEOF, err := readLine(sc)
	if err != nil {
		return errkind.Wrap(errkind.InputReadFailed, err, "reading CSV header")
	}
	if atEOF {
		return errkind.New(errkind.InvalidArgument, "CSV input is empty")
	}

	fields := splitLine(header)
	index := make(map[string]int, len(fields))
	for i, name := range fields {
		index[name] = i
	}

	fileIndex := make([]int, len(r.columns))
	for i, c := range r.columns {
		idx, ok := index[c.Name]
		if !ok {
			return errkind.New(errkind.InvalidArgument, fmt.Sprintf("CSV header is missing required column %q", c.Name))
		}
		fileIndex[i] = idx
	}
	want := len(fields)

	for {
		line, atEOF, err := readLine(sc)
		if err != nil {
			return errkind.Wrap(errkind.InputReadFailed, err, "reading CSV row")
		}
		if atEOF {
			break
		}
		if len(line) == 0 {
			continue
		}

		cells := splitLine(line)
		if len(cells) != want {
			r.skipped++
			continue
		}

		row := make([]interface{}, len(r.columns))
		for i, c := range r.columns {
			v, err := c.Parser(cells[fileIndex[i]])
			if err != nil {
				return errkind.Wrap(errkind.InvalidArgument, err, fmt.Sprintf("parsing column %q on row %d", c.Name, r.rows+1))
			}
			row[i] = v
		}
		for i, v := range row {
			r.values[i] = append(r.values[i], v)
		}
		r.rows++
	}

	return nil
}

// Rows returns the number of successfully parsed data rows.
func (r *Reader) Rows() int { return r.rows }

// Skipped returns the number of data rows discarded for a cell-count
// mismatch against the header.
func (r *Reader) Skipped() int { return r.skipped }

// Column returns the ordered sequence of parsed values for the requested
// column name, or nil if name was not one of the columns passed to New.
func (r *Reader) Column(name string) []interface{} {
	for i, c := range r.columns {
		if c.Name == name {
			return r.values[i]
		}
	}
	return nil
}

// readLine returns the next newline-delimited line from sc with its
// trailing "\r\n" or "\n" stripped. eof is true only once the stream is
// genuinely exhausted; the final line of a file with no trailing newline
// is still returned normally, with eof false, on the call that reads it.
func readLine(sc *codecutil.ByteScanner) (line string, eof bool, err error) {
	buf, _, scanErr := sc.ScanUntil(nil, '\n')
	if scanErr != nil && scanErr != io.EOF {
		return "", false, scanErr
	}
	if len(buf) == 0 && scanErr == io.EOF {
		return "", true, nil
	}
	return strings.TrimRight(string(buf), "\r\n"), false, nil
}

// splitLine splits a CSV line on commas and trims surrounding whitespace
// from each cell. These logs carry no quoted or comma-containing fields.
func splitLine(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
