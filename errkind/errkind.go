/*
NAME
  errkind.go

DESCRIPTION
  errkind.go defines the closed set of error categories returned across
  package boundaries by the logger-tools operations.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package errkind provides a small, closed error-kind taxonomy shared by
// every operation in the logger-tools module, so callers can branch on
// failure category rather than parsing error text.
package errkind

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind enumerates the categories of failure an operation can report.
type Kind int

const (
	// Unknown is the zero value; it should never be returned deliberately.
	Unknown Kind = iota

	InvalidArgument
	FilenameInvalid
	HeaderInvalid
	MetadataMismatch
	InputReadFailed
	OutputWriteFailed
	FileSizeZero
	FileSizeExceedsLimit
	TimeSourceInvalid
	InsufficientFixes
	InsufficientEvents
	PPSAnomalyMissed
	PPSAnomalyMisaligned
	PPSAnomalyUnusualRate
	RecordingOutsideFixes
	SampleRateMismatch
)

var names = map[Kind]string{
	Unknown:               "unknown",
	InvalidArgument:       "invalid argument",
	FilenameInvalid:       "filename invalid",
	HeaderInvalid:         "header invalid",
	MetadataMismatch:      "metadata mismatch",
	InputReadFailed:       "input read failed",
	OutputWriteFailed:     "output write failed",
	FileSizeZero:          "file size zero",
	FileSizeExceedsLimit:  "file size exceeds limit",
	TimeSourceInvalid:     "time source invalid",
	InsufficientFixes:     "insufficient fixes",
	InsufficientEvents:    "insufficient events",
	PPSAnomalyMissed:      "pps anomaly: missed pulse",
	PPSAnomalyMisaligned:  "pps anomaly: misaligned interval",
	PPSAnomalyUnusualRate: "pps anomaly: unusual rate",
	RecordingOutsideFixes: "recording outside fixes",
	SampleRateMismatch:    "sample rate mismatch",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Error is the concrete error type returned by logger-tools operations. It
// carries a Kind so that callers can use errors.As to recover the category,
// plus an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New returns an *Error of the given kind with no wrapped cause.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message}
}

// Wrap returns an *Error of the given kind wrapping cause. cause is
// annotated with a stack trace via pkg/errors so that a top-level handler
// formatting with %+v can see where the failure originated, without
// changing cause's Error() text or breaking errors.Is/errors.As through it.
func Wrap(k Kind, cause error, message string) *Error {
	if cause != nil {
		cause = pkgerrors.WithStack(cause)
	}
	return &Error{Kind: k, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
