package vocal

import "testing"

// These tests exercise the Analyzer without opening a real audio device:
// everything except the capture loop must behave on an uninitialized handle.

func TestDetectPitchUninitialized(t *testing.T) {
	a := NewAnalyzer()

	if got := a.DetectPitch(); got != 0 {
		t.Errorf("Expected 0 from uninitialized DetectPitch, got %f", got)
	}
	if a.pitch.Len() != 0 {
		t.Errorf("Uninitialized DetectPitch should not record history, got %d entries", a.pitch.Len())
	}
}

func TestRecordTimingAccumulates(t *testing.T) {
	a := NewAnalyzer()

	a.RecordTiming(10, 10)
	a.RecordTiming(10, 12)

	values := a.timing.Values()
	if len(values) != 2 {
		t.Fatalf("Expected 2 timing entries, got %d", len(values))
	}
	if values[0] != 100 || values[1] != 80 {
		t.Errorf("Unexpected timing scores: %v", values)
	}
}

func TestRecordTimingFIFOEviction(t *testing.T) {
	a := NewAnalyzer()

	for i := 0; i < HistoryCapacity+20; i++ {
		a.RecordTiming(0, float64(i))
	}

	if got := a.timing.Len(); got != HistoryCapacity {
		t.Errorf("Expected history capped at %d, got %d", HistoryCapacity, got)
	}
}

func TestCalculateScoresDefaults(t *testing.T) {
	a := NewAnalyzer()

	b := a.CalculateScores()
	if b.PitchScore != 70 || b.TimingScore != 75 {
		t.Errorf("Expected default scores 70/75, got %d/%d", b.PitchScore, b.TimingScore)
	}
}

func TestResetClearsHistories(t *testing.T) {
	a := NewAnalyzer()
	a.RecordTiming(5, 5)

	a.Reset()

	if a.timing.Len() != 0 || a.pitch.Len() != 0 {
		t.Error("Expected empty histories after Reset")
	}
}

func TestMonitoringTogglesRequireInit(t *testing.T) {
	a := NewAnalyzer()

	a.EnableMonitoring()
	if a.IsMonitoring() {
		t.Error("EnableMonitoring must be a no-op before initialization")
	}

	a.DisableMonitoring()
	if a.IsMonitoring() {
		t.Error("DisableMonitoring left monitoring on")
	}
}

func TestSetMonitoringVolumeClamps(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		in, expected float64
	}{
		{0.5, 0.5},
		{-1, 0},
		{2, 1},
		{0, 0},
		{1, 1},
	}

	for _, tc := range tests {
		a.SetMonitoringVolume(tc.in)
		if a.gain != tc.expected {
			t.Errorf("SetMonitoringVolume(%f): expected gain %f, got %f", tc.in, tc.expected, a.gain)
		}
	}
}

func TestCleanupSafeWithoutInit(t *testing.T) {
	a := NewAnalyzer()

	// Must not panic, and must stay safe on repeat calls.
	a.Cleanup()
	a.Cleanup()

	if got := a.DetectPitch(); got != 0 {
		t.Errorf("Expected 0 after cleanup, got %f", got)
	}
}
