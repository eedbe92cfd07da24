package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/karaokestage/KaraokeStage/internal/lyrics"
	"github.com/karaokestage/KaraokeStage/internal/vocal"
	"github.com/karaokestage/KaraokeStage/pkg/logger"
)

// DefaultPollInterval is the sampling cadence during a recording session.
const DefaultPollInterval = 100 * time.Millisecond

var (
	ErrAlreadyRecording = errors.New("a recording session is already active")
	ErrNotRecording     = errors.New("no recording session is active")
)

// Clock reports the playback position of the external video collaborator.
// It is polled, never pushed.
type Clock interface {
	CurrentTime() float64
	IsPlaying() bool
}

// Sampler is the microphone analyzer a session drives. *vocal.Analyzer is
// the production implementation.
type Sampler interface {
	Initialize() error
	EnableMonitoring()
	DisableMonitoring()
	IsMonitoring() bool
	SetMonitoringVolume(v float64)
	DetectPitch() float64
	RecordTiming(expectedTime, actualTime float64)
	CalculateScores() vocal.Breakdown
	Reset()
	Cleanup()
}

type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Controller coordinates one performance session: it owns the single live
// Sampler, runs the sampling poll while recording, and produces the final
// breakdown on stop. A Controller is reusable: after Stop it returns to idle
// and a new session may start.
type Controller struct {
	mu         sync.Mutex
	clock      Clock
	newSampler func() Sampler
	sampler    Sampler
	state      State
	interval   time.Duration
	lines      []lyrics.Line
	offset     float64
	log        *logger.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

type Option func(*Controller)

// WithPollInterval overrides the sampling cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.interval = d
	}
}

// WithSamplerFactory overrides how the controller constructs its Sampler.
func WithSamplerFactory(f func() Sampler) Option {
	return func(c *Controller) {
		c.newSampler = f
	}
}

func NewController(clock Clock, opts ...Option) *Controller {
	c := &Controller{
		clock:      clock,
		interval:   DefaultPollInterval,
		newSampler: func() Sampler { return vocal.NewAnalyzer() },
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSong installs the lyric lines and timing offset used for per-tick
// timing scoring. The offset is clamped to the allowed range. May be called
// between sessions; changing songs mid-recording is a caller bug but only
// affects subsequent ticks.
func (c *Controller) SetSong(lines []lyrics.Line, offset float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = lines
	c.offset = lyrics.ClampOffset(offset)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start acquires the microphone and begins the sampling poll. On microphone
// failure the controller stays idle and the error is returned for the caller
// to surface; the user may retry.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		return ErrAlreadyRecording
	}

	if c.sampler == nil {
		c.sampler = c.newSampler()
	}
	if err := c.sampler.Initialize(); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	c.state = StateRecording
	c.done = make(chan struct{})
	c.wg.Add(1)
	go c.poll(c.done)

	c.log.Infof("recording session started (%v cadence)", c.interval)
	return nil
}

func (c *Controller) poll(done chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick runs one sampling step: pitch first, then timing against the lyric
// line the adjusted clock has reached.
func (c *Controller) tick() {
	c.mu.Lock()
	sampler := c.sampler
	lines := c.lines
	offset := c.offset
	c.mu.Unlock()

	if sampler == nil {
		return
	}

	sampler.DetectPitch()

	if len(lines) == 0 {
		return
	}

	adjusted := c.clock.CurrentTime() + offset

	// Greatest line not exceeded by the clock; a prefix rule, deliberately
	// not the right-open interval containment the highlight lookup uses.
	active := -1
	for i := range lines {
		if lines[i].Time <= adjusted {
			active = i
		}
	}
	if active >= 0 {
		sampler.RecordTiming(lines[active].Time, adjusted)
	}
}

// Stop cancels the sampling poll, reduces the histories to the final
// breakdown, and releases the microphone. The poll goroutine is joined
// before the sampler is touched, so no tick can fire once cleanup begins.
func (c *Controller) Stop() (vocal.Breakdown, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return vocal.Breakdown{}, ErrNotRecording
	}
	done := c.done
	c.done = nil
	sampler := c.sampler
	c.mu.Unlock()

	close(done)
	c.wg.Wait()

	scores := sampler.CalculateScores()
	sampler.Cleanup()

	c.mu.Lock()
	c.sampler = nil
	c.state = StateIdle
	c.mu.Unlock()

	c.log.Infof("recording session stopped: total=%d pitch=%d timing=%d rhythm=%d",
		scores.TotalScore, scores.PitchScore, scores.TimingScore, scores.RhythmScore)
	return scores, nil
}

// ToggleMonitoring flips live microphone monitoring on or off, lazily
// initializing the sampler so a user can hear themselves without starting a
// scored session. Returns the resulting monitoring state.
func (c *Controller) ToggleMonitoring() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sampler == nil {
		c.sampler = c.newSampler()
	}
	if err := c.sampler.Initialize(); err != nil {
		return false, fmt.Errorf("enabling monitoring: %w", err)
	}

	if c.sampler.IsMonitoring() {
		c.sampler.DisableMonitoring()
		return false, nil
	}
	c.sampler.EnableMonitoring()
	return true, nil
}

// SetMonitoringVolume adjusts the monitoring gain when a sampler is live.
func (c *Controller) SetMonitoringVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sampler != nil {
		c.sampler.SetMonitoringVolume(v)
	}
}

// Close tears the controller down (navigation away, process exit): any
// active poll is cancelled and the sampler released. No breakdown is
// produced.
func (c *Controller) Close() {
	c.mu.Lock()
	done := c.done
	c.done = nil
	sampler := c.sampler
	c.sampler = nil
	c.state = StateIdle
	c.mu.Unlock()

	if done != nil {
		close(done)
		c.wg.Wait()
	}
	if sampler != nil {
		sampler.Cleanup()
	}
}
