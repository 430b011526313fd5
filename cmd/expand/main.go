/*
NAME
  main.go

DESCRIPTION
  main.go is the expand command-line front end: it decodes one
  trigger-compressed recording into a conventional PCM timeline, cut
  either on fixed-duration or per-event boundaries.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the expand command.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/fieldrec/loggertools/cmd/internal/cli"
	"github.com/fieldrec/loggertools/config"
	"github.com/fieldrec/loggertools/ops/expand"
)

func main() {
	configPath := flag.String("config", "logger-tools.toml", "path to the shared TOML defaults file")
	in := flag.String("in", "", "input WAV file path")
	out := flag.String("out", ".", "output directory")
	prefix := flag.String("prefix", "", "prefix prepended to output filenames")
	duration := flag.Int("duration", 0, "output file duration in seconds")
	expansionType := flag.String("type", "duration", "expansion strategy: duration or event")
	generateSilent := flag.Bool("silent", false, "emit silent-only files (duration mode only)")
	alignSeconds := flag.Bool("align-seconds", false, "coalesce events within the same whole second (event mode only)")
	flag.Parse()

	if *in == "" {
		log.Fatal("missing required -in flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *prefix == "" {
		*prefix = cfg.Prefix
	}
	if *duration == 0 {
		*duration = cfg.MaximumFileDuration
	}

	var et expand.Type
	switch strings.ToLower(*expansionType) {
	case "duration":
		et = expand.Duration
	case "event":
		et = expand.Event
	default:
		log.Fatalf("unrecognised -type %q: want duration or event", *expansionType)
	}

	logger := cli.NewLogger(cfg.Logging)
	written, err := expand.Expand(expand.Options{
		InputPath:                *in,
		OutputDir:                *out,
		Prefix:                   *prefix,
		ExpansionType:            et,
		MaximumFileDuration:      *duration,
		GenerateSilentFiles:      *generateSilent || cfg.GenerateSilentFiles,
		AlignToSecondTransitions: *alignSeconds || cfg.AlignToSecondTransitions,
		Progress:                 cli.Progress("expand"),
		Logger:                   logger,
	})
	if err != nil {
		log.Fatalf("expand: %v", err)
	}

	for _, path := range written {
		log.Println("wrote", path)
	}
}
