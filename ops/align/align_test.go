package align

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func buildGPSLog(fix0Ms, fix1Ms int64) string {
	var b strings.Builder
	b.WriteString("Received GPS fix: ")
	writeInt(&b, fix0Ms)
	b.WriteString(", -34.0, 151.0\n")
	b.WriteString("Time was set to: ")
	writeInt(&b, fix0Ms)
	b.WriteString("\n")
	b.WriteString("Actual sample rate: 48000000 mHz\n")

	b.WriteString("Received GPS fix: ")
	writeInt(&b, fix1Ms)
	b.WriteString(", -34.0, 151.0\n")
	b.WriteString("Time was updated by 120ms slow\n")
	b.WriteString("Actual sample rate: 48000000 mHz\n")
	return b.String()
}

func writeInt(b *strings.Builder, v int64) {
	var buf [20]byte
	n := len(buf)
	neg := v < 0
	if neg {
		v = -v
	}
	if v == 0 {
		n--
		buf[n] = '0'
	}
	for v > 0 {
		n--
		buf[n] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		n--
		buf[n] = '-'
	}
	b.Write(buf[n:])
}

func TestParseFixesAndBuildPlanWorkedExample(t *testing.T) {
	fix0 := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC).UnixMilli()
	fix1 := time.Date(2026, 8, 3, 12, 10, 0, 0, time.UTC).UnixMilli()

	fixes, err := ParseFixes(strings.NewReader(buildGPSLog(fix0, fix1)))
	if err != nil {
		t.Fatalf("ParseFixes: %v", err)
	}
	if len(fixes) != 2 {
		t.Fatalf("got %d fixes, want 2", len(fixes))
	}
	if fixes[1].TimeOffset != 1200 {
		t.Errorf("fixes[1].TimeOffset = %v, want 1200 (120ms slow)", fixes[1].TimeOffset)
	}

	median := MedianSampleRate(fixes)
	recordingUTCMs := fix0 + 300000 // midpoint

	plan, err := BuildPlan(fixes, recordingUTCMs, true, median)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if plan.TimeOffset != 600 {
		t.Errorf("plan.TimeOffset = %v, want 600 (midpoint of 0 and 1200)", plan.TimeOffset)
	}
	if plan.SampleRateStart != 48000000 || plan.SampleRateEnd != 48000000 {
		t.Errorf("plan rates = %v/%v, want 48000000/48000000", plan.SampleRateStart, plan.SampleRateEnd)
	}
	if plan.Calculation != Interpolation {
		t.Errorf("plan.Calculation = %v, want INTERPOLATION", plan.Calculation)
	}

	if err := CheckAgainstHeader(plan, 48000); err != nil {
		t.Errorf("CheckAgainstHeader: %v", err)
	}
}

func TestLeadingSampleAdjustmentDropsWhenSlow(t *testing.T) {
	got := LeadingSampleAdjustment(600, 48000000)
	if got != 2880 {
		t.Errorf("LeadingSampleAdjustment(600, 48000000) = %d, want 2880", got)
	}
}

func TestLeadingSampleAdjustmentPadsWhenFast(t *testing.T) {
	got := LeadingSampleAdjustment(-600, 48000000)
	if got != -2880 {
		t.Errorf("LeadingSampleAdjustment(-600, 48000000) = %d, want -2880", got)
	}
}

func TestSessionAlignAndFinalise(t *testing.T) {
	fix0 := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC).UnixMilli()
	fix1 := time.Date(2026, 8, 3, 12, 10, 0, 0, time.UTC).UnixMilli()

	dir := t.TempDir()
	gpsPath := filepath.Join(dir, "GPS.TXT")
	if err := os.WriteFile(gpsPath, []byte(buildGPSLog(fix0, fix1)), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Initialise(gpsPath)
	if err != nil {
		t.Fatalf("Initialise: %v", err)
	}

	numSamples := 4000
	data := make([]byte, numSamples*2)
	for i := 0; i < numSamples; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(i%100-50)))
	}
	wavBytes := buildWAV("Recorded at 12:05:00 03/08/2026", 32, 48000, data)

	inPath := filepath.Join(dir, "20260803_120500.WAV")
	if err := os.WriteFile(inPath, wavBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(dir, "out")
	outPath, err := s.Align(Options{
		InputPath:        inPath,
		OutputDir:        outDir,
		OnlyBetweenFixes: true,
	})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}

	outBytes, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	wantSamples := numSamples - 2880
	wantDataBytes := wantSamples * 2
	if len(outBytes) < wantDataBytes {
		t.Fatalf("output file too short: %d bytes, want at least %d", len(outBytes), wantDataBytes)
	}

	gpsCSVPath := filepath.Join(dir, "GPS.CSV")
	if err := s.Finalise(gpsCSVPath); err != nil {
		t.Fatalf("Finalise: %v", err)
	}
	csvBytes, err := os.ReadFile(gpsCSVPath)
	if err != nil {
		t.Fatal(err)
	}
	csv := string(csvBytes)
	if !strings.Contains(csv, "TIMESTAMP,TYPE,LATITUDE,LONGITUDE,TIME_OFFSET,SAMPLE_RATE,FILENAME,CALCULATION") {
		t.Errorf("GPS.CSV missing header row: %s", csv)
	}
	if !strings.Contains(csv, "RECORDING") {
		t.Errorf("GPS.CSV missing RECORDING row: %s", csv)
	}
	if strings.Count(csv, "FIX") != 2 {
		t.Errorf("GPS.CSV should carry two FIX rows: %s", csv)
	}
}
