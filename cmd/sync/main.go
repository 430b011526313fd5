/*
NAME
  main.go

DESCRIPTION
  main.go is the sync command-line front end: it reconciles one recording
  against its companion PPS event CSV and, optionally, resamples it.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the sync command.
package main

import (
	"flag"
	"log"

	"github.com/fieldrec/loggertools/cmd/internal/cli"
	"github.com/fieldrec/loggertools/config"
	"github.com/fieldrec/loggertools/ops/sync"
)

func main() {
	configPath := flag.String("config", "logger-tools.toml", "path to the shared TOML defaults file")
	in := flag.String("in", "", "input WAV file path")
	csvPath := flag.String("csv", "", "companion PPS event CSV path")
	out := flag.String("out", ".", "output directory")
	prefix := flag.String("prefix", "", "prefix prepended to the output filename")
	resampleRate := flag.Uint("resample", 0, "resample output to this rate in Hz; 0 keeps the reconciled source rate")
	autoResolve := flag.Bool("auto-resolve", false, "tolerate missed/misaligned PPS intervals and report unusual rates instead of failing")
	fixPPSEvents := flag.Bool("fix-pps-events", false, "apply the PPS-straddle sample correction")
	alignSamples := flag.Bool("align-samples", false, "apply the sample-boundary alignment correction")
	flag.Parse()

	if *in == "" {
		log.Fatal("missing required -in flag")
	}
	if *csvPath == "" {
		log.Fatal("missing required -csv flag")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *prefix == "" {
		*prefix = cfg.Prefix
	}
	resample := uint32(*resampleRate)
	if resample == 0 {
		resample = cfg.ResampleRate
	}

	logger := cli.NewLogger(cfg.Logging)
	written, err := sync.Sync(sync.Options{
		InputPath:    *in,
		CSVPath:      *csvPath,
		OutputDir:    *out,
		Prefix:       *prefix,
		ResampleRate: resample,
		AutoResolve:  *autoResolve || cfg.AutoResolve,
		FixPPSEvents: *fixPPSEvents || cfg.FixPPSEvents,
		AlignSamples: *alignSamples || cfg.AlignSamples,
		Progress:     cli.Progress("sync"),
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("sync: %v", err)
	}

	log.Println("wrote", written)
}
