package vocal

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/karaokestage/KaraokeStage/pkg/logger"
)

const (
	// SampleRate is the capture rate for the microphone stream.
	SampleRate = 44100
	// WindowSize is the fixed analysis window, in samples.
	WindowSize = 2048
	// HistoryCapacity bounds the pitch and timing FIFO histories.
	HistoryCapacity = 100
)

// Analyzer owns the microphone capture resources for one scoring session:
// a duplex portaudio stream (input for analysis, output for optional live
// monitoring), the current analysis window, and the two score histories.
//
// Exactly one Analyzer may hold the microphone at a time; the session
// controller enforces single ownership. All methods are safe for concurrent
// use with the internal capture goroutine.
type Analyzer struct {
	mu          sync.Mutex
	stream      *portaudio.Stream
	in          []float32
	out         []float32
	window      []float32
	gain        float64
	monitoring  bool
	initialized bool

	pitch  *History
	timing *History

	done chan struct{}
	wg   sync.WaitGroup
	log  *logger.Logger
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		gain:   1.0,
		pitch:  NewHistory(HistoryCapacity),
		timing: NewHistory(HistoryCapacity),
		log:    logger.GetLogger(),
	}
}

// Initialize acquires the microphone and starts the capture loop. Failure
// (permission denied, no device) is recoverable: the caller should report it
// and may retry; no other method will crash on an uninitialized Analyzer.
// Monitoring starts disabled with full output gain.
func (a *Analyzer) Initialize() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("microphone unavailable: %w", err)
	}

	a.in = make([]float32, WindowSize)
	a.out = make([]float32, WindowSize)
	a.window = make([]float32, WindowSize)

	stream, err := portaudio.OpenDefaultStream(1, 1, float64(SampleRate), WindowSize, a.in, a.out)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening microphone stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting microphone stream: %w", err)
	}

	a.stream = stream
	a.monitoring = false
	a.gain = 1.0
	a.initialized = true
	a.done = make(chan struct{})

	a.wg.Add(1)
	go a.pump(stream, a.done)

	a.log.Debugf("vocal analyzer initialized (%d Hz, %d-sample window)", SampleRate, WindowSize)
	return nil
}

// pump keeps the duplex stream moving: it reads capture windows into the
// analysis buffer and writes the monitoring output (scaled input, or silence
// when monitoring is off).
func (a *Analyzer) pump(stream *portaudio.Stream, done chan struct{}) {
	defer a.wg.Done()

	for {
		select {
		case <-done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			a.log.Debugf("microphone read: %v", err)
			select {
			case <-done:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		a.mu.Lock()
		copy(a.window, a.in)
		monitoring := a.monitoring
		gain := float32(a.gain)
		a.mu.Unlock()

		for i, s := range a.in {
			if monitoring {
				a.out[i] = s * gain
			} else {
				a.out[i] = 0
			}
		}

		if err := stream.Write(); err != nil {
			a.log.Debugf("monitor write: %v", err)
		}
	}
}

// EnableMonitoring routes the live microphone signal to the output. Idempotent;
// no-op when uninitialized.
func (a *Analyzer) EnableMonitoring() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized || a.monitoring {
		return
	}
	a.monitoring = true
}

// DisableMonitoring silences the output path. Idempotent; no-op when
// uninitialized.
func (a *Analyzer) DisableMonitoring() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized || !a.monitoring {
		return
	}
	a.monitoring = false
}

func (a *Analyzer) IsMonitoring() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.monitoring
}

// SetMonitoringVolume clamps v to [0, 1] and applies it as the output gain,
// whether or not monitoring is currently enabled.
func (a *Analyzer) SetMonitoringVolume(v float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	a.gain = v
}

// DetectPitch reads the current analysis window, converts its RMS amplitude
// to a [0, 100] loudness score, appends it to the pitch history, and returns
// it. Returns 0 when uninitialized. Polled at the sampling cadence by the
// session controller.
func (a *Analyzer) DetectPitch() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return 0
	}

	samples := make([]float64, len(a.window))
	for i, s := range a.window {
		samples[i] = float64(s)
	}

	score := LoudnessScore(samples)
	a.pitch.Append(score)
	return score
}

// RecordTiming scores the lag between the active lyric line's timestamp and
// the playback clock and appends it to the timing history.
func (a *Analyzer) RecordTiming(expectedTime, actualTime float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timing.Append(TimingScore(expectedTime, actualTime))
}

// CalculateScores reduces the session histories to the final breakdown.
func (a *Analyzer) CalculateScores() Breakdown {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Aggregate(a.pitch, a.timing)
}

// Reset clears both histories without releasing audio resources.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pitch.Reset()
	a.timing.Reset()
}

// Cleanup disables monitoring, stops the capture loop, and releases the
// stream and the audio host. Safe to call repeatedly and when Initialize
// never ran or never succeeded. The capture goroutine is joined before the
// stream is closed, so no read or write can land on released resources.
func (a *Analyzer) Cleanup() {
	a.mu.Lock()
	if !a.initialized {
		a.mu.Unlock()
		return
	}
	a.monitoring = false
	a.initialized = false
	done := a.done
	stream := a.stream
	a.stream = nil
	a.done = nil
	a.mu.Unlock()

	close(done)
	a.wg.Wait()

	if err := stream.Stop(); err != nil {
		a.log.Debugf("stopping microphone stream: %v", err)
	}
	if err := stream.Close(); err != nil {
		a.log.Debugf("closing microphone stream: %v", err)
	}
	if err := portaudio.Terminate(); err != nil {
		a.log.Debugf("terminating audio host: %v", err)
	}
}
