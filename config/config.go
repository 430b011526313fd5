/*
NAME
  config.go

DESCRIPTION
  config.go defines the optional TOML defaults file every cmd/* binary
  reads after parsing its flags, so a field technician can drop one
  logger-tools.toml next to a batch of recordings instead of repeating
  the same prefix/duration/verbosity flags on every invocation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config loads the logger-tools.toml defaults file shared by the
// cmd/* binaries. It does not replace an operation's Options struct; a flag
// left at its zero value takes the file's setting, and a boolean set to
// true in the file cannot be turned off by a flag.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults holds the subset of per-operation options a technician
// commonly wants to fix for a whole batch of recordings, plus the shared
// logging settings every cmd/* binary applies before running its operation.
type Defaults struct {
	// Prefix is prepended to every output filename, e.g. a device ID.
	Prefix string

	// MaximumFileDuration is the split/expand duration in seconds.
	MaximumFileDuration int

	// RequestedSampleRate is the downsample target rate in Hz.
	RequestedSampleRate uint32

	// ResampleRate is the sync target rate in Hz; 0 means "do not resample".
	ResampleRate uint32

	GenerateSilentFiles      bool
	AlignToSecondTransitions bool
	AutoResolve              bool
	FixPPSEvents             bool
	AlignSamples             bool
	OnlyBetweenFixes         bool

	// Logging configures the shared rotating log file every cmd/* binary
	// writes to via gopkg.in/natefinch/lumberjack.v2.
	Logging LoggingDefaults
}

// LoggingDefaults configures the rotated log file a cmd/* binary writes to.
type LoggingDefaults struct {
	Path       string // rotated log file path; empty disables file logging.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Verbosity  string // one of "debug", "info", "warning", "error", "fatal".
	Suppress   bool
}

var defaultLogging = LoggingDefaults{
	MaxSizeMB:  500,
	MaxBackups: 10,
	MaxAgeDays: 28,
	Verbosity:  "info",
	Suppress:   true,
}

// Default returns the Defaults a cmd/* binary falls back to when no TOML
// file is found: a one-day MaximumFileDuration and the default logging
// settings, with every other field at its zero value.
func Default() Defaults {
	return Defaults{
		MaximumFileDuration: 24 * 60 * 60,
		Logging:             defaultLogging,
	}
}

// Load reads path as a TOML defaults file. A missing file is not an
// error: it returns Default() unchanged, since every field a cmd/*
// binary needs also has a flag.
func Load(path string) (Defaults, error) {
	d := Default()
	if path == "" {
		return d, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return d, nil
	}

	if _, err := toml.DecodeFile(path, &d); err != nil {
		return Defaults{}, err
	}
	return d, nil
}
