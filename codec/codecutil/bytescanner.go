/*
NAME
  bytescanner.go

DESCRIPTION
  bytescanner.go implements a small buffered byte scanner used by
  csvreader to split a PPS event log into lines without pulling the
  whole file into memory.

AUTHOR
  Dan Kortschak <dan@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codecutil collects small decoding helpers shared across the
// codec packages that are too narrow to warrant a package of their own.
package codecutil

import "io"

// ByteScanner scans an io.Reader a buffer at a time, supporting both a
// single-byte read and a scan up to (and including) a delimiter byte.
type ByteScanner struct {
	buf []byte
	off int

	r io.Reader
}

// NewByteScanner returns a scanner reading from r, using buf as its
// working buffer. buf's capacity sets how much is read per underlying
// Read call.
func NewByteScanner(r io.Reader, buf []byte) *ByteScanner {
	return &ByteScanner{r: r, buf: buf[:0]}
}

// ScanUntil reads from the scanner until it encounters delim, appending
// everything read, delim included, to dst. It returns the appended
// result, the last byte read, and any error from the underlying reader
// (io.EOF if the stream ended before delim was seen).
func (c *ByteScanner) ScanUntil(dst []byte, delim byte) (res []byte, last byte, err error) {
	for {
		for i, b := range c.buf[c.off:] {
			if b != delim {
				continue
			}
			end := c.off + i + 1
			dst = append(dst, c.buf[c.off:end]...)
			c.off = end
			return dst, b, nil
		}
		dst = append(dst, c.buf[c.off:]...)
		if len(c.buf) > 0 {
			last = c.buf[len(c.buf)-1]
		}
		if err = c.reload(); err != nil {
			return dst, last, err
		}
	}
}

// ReadByte returns the next byte from the underlying reader, reloading
// the working buffer as needed.
func (c *ByteScanner) ReadByte() (byte, error) {
	if c.off >= len(c.buf) {
		if err := c.reload(); err != nil {
			return 0, err
		}
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// reload replaces the working buffer with a fresh read from the
// underlying reader.
func (c *ByteScanner) reload() error {
	n, err := c.r.Read(c.buf[:cap(c.buf)])
	c.buf = c.buf[:n]
	c.off = 0
	if err != nil {
		if err != io.EOF || n == 0 {
			return err
		}
	}
	return nil
}
