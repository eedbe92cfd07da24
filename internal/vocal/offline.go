package vocal

// ScoreSamples runs a recorded take through the same reduction a live
// session uses: the samples are cut into analysis windows, each window's
// loudness score goes into a pitch history, and the histories are
// aggregated. There is no playback clock for a recorded take, so the timing
// history stays empty and falls back to its default.
func ScoreSamples(samples []float64) Breakdown {
	pitch := NewHistory(HistoryCapacity)
	timing := NewHistory(HistoryCapacity)

	for start := 0; start < len(samples); start += WindowSize {
		end := start + WindowSize
		if end > len(samples) {
			end = len(samples)
		}
		pitch.Append(LoudnessScore(samples[start:end]))
	}

	return Aggregate(pitch, timing)
}
