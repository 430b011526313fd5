package downsample

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldrec/loggertools/codec/wav"
)

func TestDownsampleWorkedExample(t *testing.T) {
	// 48kHz, 96000 samples, requestedRate=16000 -> 32000 output samples,
	// each the integer-rounded mean of 3 consecutive input samples.
	const (
		sourceRate    = 48000
		requestedRate = 16000
		numSamples    = 96000
	)
	data := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		putSample(data, i, int16(i%2000-1000))
	}
	wavBytes := buildWAV(sourceRate, data)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "20230101_000000.WAV")
	if err := os.WriteFile(inputPath, wavBytes, 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	outPath, err := Downsample(Options{
		InputPath:           inputPath,
		OutputDir:           filepath.Join(dir, "out"),
		RequestedSampleRate: requestedRate,
	})
	if err != nil {
		t.Fatalf("Downsample() error = %v", err)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	h, err := wav.ReadHeader(raw, int64(len(raw)))
	if err != nil {
		t.Fatal(err)
	}
	if h.Format.SamplesPerSecond != requestedRate {
		t.Errorf("output sample rate = %d, want %d", h.Format.SamplesPerSecond, requestedRate)
	}
	wantSamples := numSamples / 3
	if int(h.Data.Size)/2 != wantSamples {
		t.Fatalf("output sample count = %d, want %d", h.Data.Size/2, wantSamples)
	}

	outData := raw[h.Size : h.Size+int(h.Data.Size)]
	for k := 0; k < 5; k++ {
		var sum int
		for j := 0; j < 3; j++ {
			sum += int(getSample(data, 3*k+j))
		}
		want := int16(round(float64(sum) / 3))
		got := getSample(outData, k)
		if got != want {
			t.Errorf("output sample %d = %d, want %d", k, got, want)
		}
	}
}

func round(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

func TestDownsampleRejectsRequestedExceedingSource(t *testing.T) {
	data := make([]byte, 2000)
	wavBytes := buildWAV(16000, data)
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "20230101_000000.WAV")
	if err := os.WriteFile(inputPath, wavBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Downsample(Options{
		InputPath:           inputPath,
		OutputDir:           filepath.Join(dir, "out"),
		RequestedSampleRate: 48000,
	})
	if err == nil {
		t.Fatal("Downsample() error = nil, want error for requested > source")
	}
}
