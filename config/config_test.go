package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d != Default() {
		t.Errorf("got %+v, want %+v", d, Default())
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	d, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d != Default() {
		t.Errorf("got %+v, want %+v", d, Default())
	}
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logger-tools.toml")
	const body = `
Prefix = "AM001"
MaximumFileDuration = 3600
AutoResolve = true

[Logging]
Path = "/var/log/loggertools/loggertools.log"
Verbosity = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if d.Prefix != "AM001" {
		t.Errorf("Prefix = %q, want AM001", d.Prefix)
	}
	if d.MaximumFileDuration != 3600 {
		t.Errorf("MaximumFileDuration = %d, want 3600", d.MaximumFileDuration)
	}
	if !d.AutoResolve {
		t.Error("AutoResolve = false, want true")
	}
	if d.Logging.Path != "/var/log/loggertools/loggertools.log" {
		t.Errorf("Logging.Path = %q", d.Logging.Path)
	}
	if d.Logging.Verbosity != "debug" {
		t.Errorf("Logging.Verbosity = %q, want debug", d.Logging.Verbosity)
	}
	// MaxSizeMB was not present in the file; the loader's own default
	// (carried through from Default()'s Logging) must survive the decode.
	if d.Logging.MaxSizeMB != defaultLogging.MaxSizeMB {
		t.Errorf("Logging.MaxSizeMB = %d, want %d (untouched default)", d.Logging.MaxSizeMB, defaultLogging.MaxSizeMB)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load: want error for malformed TOML, got nil")
	}
}
