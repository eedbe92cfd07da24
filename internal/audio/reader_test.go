package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTestWAV writes a 16-bit PCM WAV with the given mono samples.
func writeTestWAV(t *testing.T, samples []int, sampleRate, channels int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "take.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test WAV: %v", err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Failed to write samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Failed to close encoder: %v", err)
	}
	f.Close()

	return path
}

func TestReadWAVMono(t *testing.T) {
	samples := []int{0, 16384, -16384, 32767}
	path := writeTestWAV(t, samples, 44100, 1)

	got, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}

	if rate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(got))
	}
	if math.Abs(got[1]-0.5) > 0.001 {
		t.Errorf("Expected sample ~0.5, got %f", got[1])
	}
	if math.Abs(got[2]+0.5) > 0.001 {
		t.Errorf("Expected sample ~-0.5, got %f", got[2])
	}
	for _, s := range got {
		if s < -1 || s > 1 {
			t.Errorf("Sample %f outside normalized range", s)
		}
	}
}

func TestReadWAVStereoDownmix(t *testing.T) {
	// Interleaved L/R frames; downmix averages the channels.
	samples := []int{16384, -16384, 16384, 16384}
	path := writeTestWAV(t, samples, 22050, 2)

	got, rate, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV failed: %v", err)
	}

	if rate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", rate)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 mono frames, got %d", len(got))
	}
	if math.Abs(got[0]) > 0.001 {
		t.Errorf("Expected opposite channels to cancel, got %f", got[0])
	}
	if math.Abs(got[1]-0.5) > 0.001 {
		t.Errorf("Expected averaged frame ~0.5, got %f", got[1])
	}
}

func TestReadWAVInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.wav")
	if err := os.WriteFile(path, []byte("definitely not RIFF data"), 0o644); err != nil {
		t.Fatalf("Failed to write bogus file: %v", err)
	}

	if _, _, err := ReadWAV(path); err == nil {
		t.Error("Expected error for invalid WAV data")
	}
}

func TestReadWAVMissingFile(t *testing.T) {
	if _, _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Expected error for missing file")
	}
}
