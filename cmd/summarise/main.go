/*
NAME
  main.go

DESCRIPTION
  main.go is the summarise command-line front end: it walks a directory
  tree of recordings and writes SUMMARY.CSV describing every recognised
  file found.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package main is the summarise command.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/fieldrec/loggertools/cmd/internal/cli"
	"github.com/fieldrec/loggertools/config"
	"github.com/fieldrec/loggertools/opkit"
	"github.com/fieldrec/loggertools/ops/summary"
)

func main() {
	configPath := flag.String("config", "logger-tools.toml", "path to the shared TOML defaults file")
	root := flag.String("root", ".", "directory to walk for recordings")
	out := flag.String("out", "SUMMARY.CSV", "summary CSV output path")
	flag.Parse()

	if _, err := config.Load(*configPath); err != nil {
		log.Fatalf("loading config: %v", err)
	}

	var files []string
	if err := filepath.Walk(*root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		log.Fatalf("summarise: walking %s: %v", *root, err)
	}

	tracker := opkit.NewPercentTracker(int64(len(files)), cli.Progress("summarise"))
	acc := summary.Initialise()
	for i, path := range files {
		rel, err := filepath.Rel(*root, path)
		if err != nil {
			log.Fatalf("summarise: %v", err)
		}
		if err := acc.Summarise(*root, rel, nil); err != nil {
			log.Fatalf("summarise: %s: %v", rel, err)
		}
		tracker.Update(int64(i + 1))
	}
	tracker.Done()

	if err := acc.Finalise(*out); err != nil {
		log.Fatalf("summarise: %v", err)
	}
	log.Printf("summarised %d files, wrote %s", len(files), *out)
}
