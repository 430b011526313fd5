package expand

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldrec/loggertools/codec/trigger"
	"github.com/fieldrec/loggertools/codec/wav"
)

func sentinelBlock(count uint32) []byte {
	buf := make([]byte, trigger.BlockSize)
	for i := 0; i < trigger.CountBits; i++ {
		var v int16 = -1
		if count&(1<<uint(i)) != 0 {
			v = 1
		}
		binary.LittleEndian.PutUint16(buf[i*2:i*2+2], uint16(v))
	}
	return buf
}

func audioBlock(seed byte) []byte {
	buf := make([]byte, trigger.BlockSize)
	for i := range buf {
		buf[i] = seed + byte(i)
	}
	// Make sure this doesn't accidentally decode as a sentinel: seed a
	// non +-1 value into the leading count bytes.
	binary.LittleEndian.PutUint16(buf[0:2], 12345)
	return buf
}

// TestExpandDurationWorkedExample matches the literal EXPAND DURATION
// scenario: AUDIO(512) SILENT-sentinel(count=7) AUDIO(1024)
// SILENT-sentinel(count=2), sampleRate=48000, maximumFileDuration=1,
// generateSilentFiles=false -> two output files, one per AUDIO run, with
// the trailing silent run dropped.
func TestExpandDurationWorkedExample(t *testing.T) {
	const sampleRate = 48000

	var data []byte
	data = append(data, audioBlock(1)...)           // 512 bytes AUDIO
	data = append(data, sentinelBlock(7)...)         // expands to 7*512 SILENT bytes
	data = append(data, audioBlock(2)...)            // 512 bytes AUDIO
	data = append(data, audioBlock(3)...)            // 512 bytes AUDIO (2 blocks -> 1024 bytes)
	data = append(data, sentinelBlock(2)...)         // expands to 2*512 SILENT bytes

	wavBytes := buildWAV("Recorded at 00:00:00 01/01/2023.", 448, sampleRate, data)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "20230101_000000.WAV")
	if err := os.WriteFile(inputPath, wavBytes, 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	outputs, err := Expand(Options{
		InputPath:           inputPath,
		OutputDir:           filepath.Join(dir, "out"),
		ExpansionType:       Duration,
		MaximumFileDuration: 1,
		GenerateSilentFiles: false,
	})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs, want 2: %v", len(outputs), outputs)
	}

	for _, path := range outputs {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		h, err := wav.ReadHeader(raw, int64(len(raw)))
		if err != nil {
			t.Fatalf("parsing output header: %v", err)
		}
		if h.Data.Size == 0 {
			t.Errorf("output %s has zero-length data", path)
		}
	}
}

// TestExpandEventWorkedExample checks that EVENT mode emits one file per
// AUDIO segment, with the audio bytes copied verbatim and the surrounding
// SILENT run excluded.
func TestExpandEventWorkedExample(t *testing.T) {
	const sampleRate = 48000

	audio1 := audioBlock(1)
	audio2 := audioBlock(2)

	var data []byte
	data = append(data, audio1...)
	data = append(data, sentinelBlock(5)...)
	data = append(data, audio2...)

	wavBytes := buildWAV("Recorded at 00:00:00 01/01/2023.", 448, sampleRate, data)

	dir := t.TempDir()
	inputPath := filepath.Join(dir, "20230101_000000.WAV")
	if err := os.WriteFile(inputPath, wavBytes, 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	outputs, err := Expand(Options{
		InputPath:                inputPath,
		OutputDir:                filepath.Join(dir, "out"),
		ExpansionType:            Event,
		MaximumFileDuration:      3600,
		AlignToSecondTransitions: false,
	})
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("got %d outputs, want 2: %v", len(outputs), outputs)
	}

	wantPayloads := [][]byte{audio1, audio2}
	for i, path := range outputs {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading output %d: %v", i, err)
		}
		h, err := wav.ReadHeader(raw, int64(len(raw)))
		if err != nil {
			t.Fatalf("parsing output %d header: %v", i, err)
		}
		payload := raw[h.Size : h.Size+int(h.Data.Size)]
		if !bytes.Equal(payload, wantPayloads[i]) {
			t.Errorf("output %d payload does not match source audio segment %d", i, i)
		}
	}
}

func TestExpandRejectsNonPositiveDuration(t *testing.T) {
	_, err := Expand(Options{InputPath: "unused", OutputDir: "unused", ExpansionType: Duration, MaximumFileDuration: 0})
	if err == nil {
		t.Fatal("Expand() error = nil, want InvalidArgument")
	}
}
