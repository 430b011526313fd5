/*
NAME
  main.go

DESCRIPTION
  main.go is the split command-line front end: it parses flags for one
  input recording, falls back to an optional TOML defaults file for any
  flag left unset, and runs the Splitter operation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the split command: it cuts one WAV recording into
// several, each no longer than a given maximum duration.
package main

import (
	"flag"
	"log"

	"github.com/fieldrec/loggertools/cmd/internal/cli"
	"github.com/fieldrec/loggertools/config"
	"github.com/fieldrec/loggertools/ops/split"
)

func main() {
	configPath := flag.String("config", "logger-tools.toml", "path to the shared TOML defaults file")
	in := flag.String("in", "", "input WAV file path")
	out := flag.String("out", ".", "output directory")
	prefix := flag.String("prefix", "", "prefix prepended to output filenames")
	duration := flag.Int("duration", 0, "maximum output file duration in seconds")
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

	logger := cli.NewLogger(cfg.Logging)
	written, err := split.Split(split.Options{
		InputPath:           *in,
		OutputDir:           *out,
		Prefix:              *prefix,
		MaximumFileDuration: *duration,
		Progress:            cli.Progress("split"),
		Logger:              logger,
	})
	if err != nil {
		log.Fatalf("split: %v", err)
	}

	for _, path := range written {
		log.Println("wrote", path)
	}
}
