/*
NAME
  main.go

DESCRIPTION
  main.go is the align command-line front end: it loads a GPS fix log
  once, aligns every WAV file matching a glob against it, and writes the
  combined GPS.CSV session report.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the align command.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/fieldrec/loggertools/cmd/internal/cli"
	"github.com/fieldrec/loggertools/config"
	"github.com/fieldrec/loggertools/ops/align"
)

func main() {
	configPath := flag.String("config", "logger-tools.toml", "path to the shared TOML defaults file")
	gpsPath := flag.String("gps", "", "GPS.TXT fix log path")
	glob := flag.String("in", "", "glob matching the WAV files to align, e.g. recordings/*.WAV")
	out := flag.String("out", ".", "output directory")
	report := flag.String("report", "GPS.CSV", "combined fix/recording report output path")
	prefix := flag.String("prefix", "", "prefix prepended to output filenames")
	onlyBetweenFixes := flag.Bool("only-between-fixes", false, "reject recordings after the last fix instead of extrapolating")
	flag.Parse()

	if *gpsPath == "" {
		log.Fatal("missing required -gps flag")
	}
	if *glob == "" {
		log.Fatal("missing required -in flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *prefix == "" {
		*prefix = cfg.Prefix
	}

	session, err := align.Initialise(*gpsPath)
	if err != nil {
		log.Fatalf("align: initialise: %v", err)
	}

	matches, err := filepath.Glob(*glob)
	if err != nil {
		log.Fatalf("align: invalid -in glob: %v", err)
	}

	logger := cli.NewLogger(cfg.Logging)
	progress := cli.Progress("align")
	for _, path := range matches {
		written, err := session.Align(align.Options{
			InputPath:        path,
			OutputDir:        *out,
			Prefix:           *prefix,
			OnlyBetweenFixes: *onlyBetweenFixes || cfg.OnlyBetweenFixes,
			Progress:         progress,
			Logger:           logger,
		})
		if err != nil {
			log.Printf("align: %s: %v", path, err)
			continue
		}
		log.Println("wrote", written)
	}

	if err := session.Finalise(*report); err != nil {
		log.Fatalf("align: finalise: %v", err)
	}
	log.Println("wrote", *report)
}
