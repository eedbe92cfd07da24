package lyrics

import "strings"

// Line is one synced lyric line: the playback time (seconds) at which the
// line becomes active, and its text. A song's lines are sorted ascending by
// time, ties broken by source order.
type Line struct {
	Time float64 `json:"time"`
	Text string  `json:"text"`
}

// Word is a single lyric word with an estimated timestamp, derived from the
// line-level timing. LineIndex points back into the source line slice.
type Word struct {
	Time      float64 `json:"time"`
	Word      string  `json:"word"`
	LineIndex int     `json:"lineIndex"`
}

// Offset bounds for the per-song lyric timing adjustment, in seconds.
const (
	OffsetMin = -20.0
	OffsetMax = 20.0
)

// lastLineWindow is the implied duration of the final line, which has no
// successor to bound it.
const lastLineWindow = 5.0

// ClampOffset forces a timing offset into the allowed [-20, 20] range.
func ClampOffset(offset float64) float64 {
	if offset < OffsetMin {
		return OffsetMin
	}
	if offset > OffsetMax {
		return OffsetMax
	}
	return offset
}

// BuildWordTimeline converts line-level lyrics to word-level entries with
// estimated timestamps. Each line's duration (up to the next line's start, or
// 5 seconds for the final line) is distributed evenly across its words. Lines
// with no words contribute nothing. A non-positive duration collapses the
// line to zero width: every word sits at the line start.
func BuildWordTimeline(lines []Line) []Word {
	var words []Word

	for i, line := range lines {
		lineWords := strings.Fields(line.Text)
		if len(lineWords) == 0 {
			continue
		}

		lineEnd := line.Time + lastLineWindow
		if i+1 < len(lines) {
			lineEnd = lines[i+1].Time
		}

		timePerWord := 0.0
		if duration := lineEnd - line.Time; duration > 0 {
			timePerWord = duration / float64(len(lineWords))
		}

		for k, w := range lineWords {
			words = append(words, Word{
				Time:      line.Time + float64(k)*timePerWord,
				Word:      w,
				LineIndex: i,
			})
		}
	}

	return words
}

// ActiveLineIndex returns the index of the line whose interval contains t.
// Intervals are right-open: a boundary time belongs to the later line. The
// final line extends indefinitely. Returns -1 when t precedes the first line
// or lines is empty.
func ActiveLineIndex(lines []Line, t float64) int {
	active := -1
	for i := range lines {
		if t >= lines[i].Time && (i == len(lines)-1 || t < lines[i+1].Time) {
			active = i
		}
	}
	return active
}

// ActiveWordIndex returns the greatest index whose word time does not exceed
// t, or -1 when t precedes every word. Unlike line lookup this is a prefix
// condition, not interval containment: once a word is reached it stays
// active, so the highlight never jumps backwards even on malformed input.
func ActiveWordIndex(words []Word, t float64) int {
	active := -1
	for i := range words {
		if words[i].Time <= t {
			active = i
		}
	}
	return active
}
