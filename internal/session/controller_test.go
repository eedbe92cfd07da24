package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/internal/vocal"
)

type fakeClock struct {
	mu      sync.Mutex
	time    float64
	playing bool
}

func (f *fakeClock) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

func (f *fakeClock) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeClock) set(t float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.time = t
}

type timingCall struct {
	expected, actual float64
}

type fakeSampler struct {
	mu          sync.Mutex
	initErr     error
	initialized bool
	monitoring  bool
	pitchCalls  int
	timings     []timingCall
	cleanups    int
	resets      int
}

func (f *fakeSampler) Initialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return f.initErr
	}
	f.initialized = true
	return nil
}

func (f *fakeSampler) EnableMonitoring() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		f.monitoring = true
	}
}

func (f *fakeSampler) DisableMonitoring() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitoring = false
}

func (f *fakeSampler) IsMonitoring() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.monitoring
}

func (f *fakeSampler) SetMonitoringVolume(float64) {}

func (f *fakeSampler) DetectPitch() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pitchCalls++
	return 42
}

func (f *fakeSampler) RecordTiming(expected, actual float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timings = append(f.timings, timingCall{expected, actual})
}

func (f *fakeSampler) CalculateScores() vocal.Breakdown {
	return vocal.Breakdown{PitchScore: 80, TimingScore: 85, RhythmScore: 82, TotalScore: 82}
}

func (f *fakeSampler) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeSampler) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
}

func (f *fakeSampler) snapshot() (pitchCalls int, timings []timingCall, cleanups int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pitchCalls, append([]timingCall(nil), f.timings...), f.cleanups
}

func newTestController(t *testing.T, clock Clock, sampler *fakeSampler) *Controller {
	t.Helper()
	c := NewController(clock,
		WithPollInterval(5*time.Millisecond),
		WithSamplerFactory(func() Sampler { return sampler }),
	)
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Condition not reached before deadline")
}

func TestStartStopLifecycle(t *testing.T) {
	clock := &fakeClock{time: 3, playing: true}
	sampler := &fakeSampler{}
	c := newTestController(t, clock, sampler)
	c.SetSong([]lyrics.Line{{Time: 0, Text: "a"}, {Time: 5, Text: "b"}}, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if c.State() != StateRecording {
		t.Fatalf("Expected recording state, got %v", c.State())
	}

	waitFor(t, func() bool {
		pitchCalls, timings, _ := sampler.snapshot()
		return pitchCalls >= 3 && len(timings) >= 3
	})

	scores, err := c.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if scores.TotalScore != 82 {
		t.Errorf("Expected breakdown from sampler, got %+v", scores)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle state after stop, got %v", c.State())
	}

	_, timings, cleanups := sampler.snapshot()
	if cleanups != 1 {
		t.Errorf("Expected exactly one cleanup, got %d", cleanups)
	}
	for _, tc := range timings {
		if tc.expected != 0 {
			t.Errorf("Expected timing against line at t=0, got %f", tc.expected)
		}
		if tc.actual != 3 {
			t.Errorf("Expected adjusted clock 3, got %f", tc.actual)
		}
	}
}

func TestNoTickAfterStop(t *testing.T) {
	clock := &fakeClock{playing: true}
	sampler := &fakeSampler{}
	c := newTestController(t, clock, sampler)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool {
		pitchCalls, _, _ := sampler.snapshot()
		return pitchCalls >= 2
	})

	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	pitchAfterStop, _, _ := sampler.snapshot()
	time.Sleep(30 * time.Millisecond)
	pitchLater, _, _ := sampler.snapshot()
	if pitchLater != pitchAfterStop {
		t.Errorf("Polling continued after stop: %d -> %d pitch calls", pitchAfterStop, pitchLater)
	}
}

func TestStartMicrophoneFailureStaysIdle(t *testing.T) {
	sampler := &fakeSampler{initErr: errors.New("permission denied")}
	c := newTestController(t, &fakeClock{}, sampler)

	err := c.Start()
	if err == nil {
		t.Fatal("Expected error from failed initialization")
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle state after failed start, got %v", c.State())
	}

	// Failure is recoverable: a retry after the error clears must succeed.
	sampler.mu.Lock()
	sampler.initErr = nil
	sampler.mu.Unlock()
	if err := c.Start(); err != nil {
		t.Fatalf("Retry after recoverable failure should succeed: %v", err)
	}
}

func TestStartWhileRecording(t *testing.T) {
	sampler := &fakeSampler{}
	c := newTestController(t, &fakeClock{}, sampler)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("Expected ErrAlreadyRecording, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	c := newTestController(t, &fakeClock{}, &fakeSampler{})

	if _, err := c.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording, got %v", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	sampler := &fakeSampler{}
	c := newTestController(t, &fakeClock{}, sampler)

	if err := c.Start(); err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	if _, err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if c.State() != StateRecording {
		t.Errorf("Expected recording after restart, got %v", c.State())
	}
}

func TestNoTimingBeforeFirstLine(t *testing.T) {
	clock := &fakeClock{time: 1, playing: true}
	sampler := &fakeSampler{}
	c := newTestController(t, clock, sampler)
	c.SetSong([]lyrics.Line{{Time: 10, Text: "late"}}, 0)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool {
		pitchCalls, _, _ := sampler.snapshot()
		return pitchCalls >= 3
	})
	c.Stop()

	_, timings, _ := sampler.snapshot()
	if len(timings) != 0 {
		t.Errorf("Expected no timing samples before the first line, got %d", len(timings))
	}
}

func TestTimingUsesOffsetAdjustedClock(t *testing.T) {
	clock := &fakeClock{time: 4, playing: true}
	sampler := &fakeSampler{}
	c := newTestController(t, clock, sampler)
	// Offset pushes the adjusted clock past the second line.
	c.SetSong([]lyrics.Line{{Time: 0, Text: "a"}, {Time: 5, Text: "b"}}, 1.5)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, func() bool {
		_, timings, _ := sampler.snapshot()
		return len(timings) >= 1
	})
	c.Stop()

	_, timings, _ := sampler.snapshot()
	if timings[0].expected != 5 {
		t.Errorf("Expected scan against line at t=5, got %f", timings[0].expected)
	}
	if timings[0].actual != 5.5 {
		t.Errorf("Expected adjusted clock 5.5, got %f", timings[0].actual)
	}
}

func TestToggleMonitoringLazyInit(t *testing.T) {
	sampler := &fakeSampler{}
	c := newTestController(t, &fakeClock{}, sampler)

	on, err := c.ToggleMonitoring()
	if err != nil {
		t.Fatalf("ToggleMonitoring failed: %v", err)
	}
	if !on {
		t.Error("Expected monitoring enabled")
	}

	off, err := c.ToggleMonitoring()
	if err != nil {
		t.Fatalf("ToggleMonitoring failed: %v", err)
	}
	if off {
		t.Error("Expected monitoring disabled on second toggle")
	}
}

func TestToggleMonitoringInitFailure(t *testing.T) {
	sampler := &fakeSampler{initErr: errors.New("no device")}
	c := newTestController(t, &fakeClock{}, sampler)

	if _, err := c.ToggleMonitoring(); err == nil {
		t.Fatal("Expected error from failed lazy initialization")
	}
	if c.State() != StateIdle {
		t.Errorf("Controller should stay idle, got %v", c.State())
	}
}

func TestCloseCancelsActiveSession(t *testing.T) {
	sampler := &fakeSampler{}
	c := NewController(&fakeClock{},
		WithPollInterval(5*time.Millisecond),
		WithSamplerFactory(func() Sampler { return sampler }),
	)

	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	c.Close()

	_, _, cleanups := sampler.snapshot()
	if cleanups != 1 {
		t.Errorf("Expected cleanup on close, got %d", cleanups)
	}
	if c.State() != StateIdle {
		t.Errorf("Expected idle after close, got %v", c.State())
	}
}
