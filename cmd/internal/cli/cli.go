/*
NAME
  cli.go

DESCRIPTION
  cli.go holds the small set of things every cmd/* binary shares: turning
  a config.LoggingDefaults into a real rotated-file logging.Logger, and
  printing the operation's integer-percent progress to stderr.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package cli holds the logging and progress-reporting glue shared by the
// split, downsample, expand, sync, align and summarise command-line
// binaries, so that CLI-specific boilerplate is written once rather than
// six times.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fieldrec/loggertools/config"

	"github.com/ausocean/utils/logging"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds a logging.Logger from cfg, writing to a rotated log
// file via lumberjack. An empty cfg.Path logs to stderr instead, for
// interactive runs.
func NewLogger(cfg config.LoggingDefaults) logging.Logger {
	var w io.Writer
	if cfg.Path == "" {
		w = os.Stderr
	} else {
		w = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
	}
	return logging.New(verbosityLevel(cfg.Verbosity), w, cfg.Suppress)
}

// verbosityLevel maps a config verbosity name to one of logging's level
// constants, defaulting to logging.Info for an unrecognised or empty name.
func verbosityLevel(name string) int8 {
	switch name {
	case "debug":
		return logging.Debug
	case "warning":
		return logging.Warning
	case "error":
		return logging.Error
	case "fatal":
		return logging.Fatal
	default:
		return logging.Info
	}
}

// Progress returns an opkit.Progress-compatible callback that prints each
// percent transition to stderr, prefixed with label.
func Progress(label string) func(int) {
	return func(percent int) {
		fmt.Fprintf(os.Stderr, "%s: %d%%\n", label, percent)
	}
}
