/*
NAME
  main.go

DESCRIPTION
  main.go is the downsample command-line front end: it resamples one WAV
  recording down to a lower, firmware-recognised sample rate.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the downsample command.
package main

import (
	"flag"
	"log"

	"github.com/fieldrec/loggertools/cmd/internal/cli"
	"github.com/fieldrec/loggertools/config"
	"github.com/fieldrec/loggertools/ops/downsample"
)

func main() {
	configPath := flag.String("config", "logger-tools.toml", "path to the shared TOML defaults file")
	in := flag.String("in", "", "input WAV file path")
	out := flag.String("out", ".", "output directory")
	prefix := flag.String("prefix", "", "prefix prepended to the output filename")
	rate := flag.Uint("rate", 0, "requested output sample rate in Hz (one of 8000, 16000, 32000, 48000, 96000, 192000, 250000, 384000)")
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
	requestedRate := uint32(*rate)
	if requestedRate == 0 {
		requestedRate = cfg.RequestedSampleRate
	}

	logger := cli.NewLogger(cfg.Logging)
	written, err := downsample.Downsample(downsample.Options{
		InputPath:           *in,
		OutputDir:           *out,
		Prefix:              *prefix,
		RequestedSampleRate: requestedRate,
		Progress:            cli.Progress("downsample"),
		Logger:              logger,
	})
	if err != nil {
		log.Fatalf("downsample: %v", err)
	}

	log.Println("wrote", written)
}
