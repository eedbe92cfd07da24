package vocal

import (
	"math"
	"math/rand"
)

// Breakdown is the final per-session score summary. Each field is an integer
// in [0, 100].
type Breakdown struct {
	PitchScore  int `json:"pitchScore"`
	TimingScore int `json:"timingScore"`
	RhythmScore int `json:"rhythmScore"`
	TotalScore  int `json:"totalScore"`
}

// Fallback scores for sessions where a history never received a sample.
const (
	defaultPitchScore  = 70.0
	defaultTimingScore = 75.0
)

// RMS computes the root-mean-square amplitude of samples normalized to
// [-1, 1]. Returns 0 for an empty window.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// LoudnessScore maps a window of normalized samples to a [0, 100] score via
// min(100, rms*200). Instantaneous loudness stands in as the pitch-accuracy
// proxy for scoring.
func LoudnessScore(samples []float64) float64 {
	return math.Min(100, RMS(samples)*200)
}

// TimingScore scores how close the singer tracks the lyric line: 10 points
// lost per 0.1 s of lag, floored at 0.
func TimingScore(expected, actual float64) float64 {
	return math.Max(0, 100-math.Abs(expected-actual)*10)
}

// Aggregate reduces the session histories to a Breakdown. This is the single
// authority on the final numbers: each field is rounded first, then clamped
// to [0, 100] independently.
//
// The rhythm score is the documented placeholder: the pitch/timing midpoint
// plus uniform noise in [-5, +5]. It is intentionally not a genuine rhythm
// signal.
func Aggregate(pitch, timing *History) Breakdown {
	pitchScore := defaultPitchScore
	if mean, ok := pitch.Mean(); ok {
		pitchScore = math.Round(mean)
	}

	timingScore := defaultTimingScore
	if mean, ok := timing.Mean(); ok {
		timingScore = math.Round(mean)
	}

	rhythmScore := math.Round((pitchScore+timingScore)/2 + rand.Float64()*10 - 5)
	totalScore := math.Round((pitchScore + timingScore + rhythmScore) / 3)

	return Breakdown{
		PitchScore:  clampScore(pitchScore),
		TimingScore: clampScore(timingScore),
		RhythmScore: clampScore(rhythmScore),
		TotalScore:  clampScore(totalScore),
	}
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
