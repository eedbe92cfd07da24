package lyrics

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LRC timestamps look like [mm:ss.xx] or [mm:ss], with 2-3 fraction digits.
var lrcTimeRe = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{2,3}))?\]`)

// ParseLRC parses LRC-format lyric content into sorted time/text lines.
//
// Lines without a timestamp tag are skipped. When a line carries several
// tags, the last one wins and the text is whatever follows it. Lines whose
// text is empty after trimming are dropped. The result is sorted ascending
// by time, ties keeping source order.
func ParseLRC(content string) []Line {
	var out []Line

	for _, raw := range strings.Split(content, "\n") {
		matches := lrcTimeRe.FindAllStringSubmatchIndex(raw, -1)
		if len(matches) == 0 {
			continue
		}

		m := matches[len(matches)-1]
		minutes, _ := strconv.Atoi(raw[m[2]:m[3]])
		seconds, _ := strconv.Atoi(raw[m[4]:m[5]])

		centis := 0
		if m[6] != -1 {
			frac := raw[m[6]:m[7]]
			// Normalize to centiseconds: pad "5" -> "50", truncate "123" -> "12".
			if len(frac) < 2 {
				frac = frac + strings.Repeat("0", 2-len(frac))
			}
			centis, _ = strconv.Atoi(frac[:2])
		}

		text := strings.TrimSpace(raw[m[1]:])
		if text == "" {
			continue
		}

		out = append(out, Line{
			Time: float64(minutes*60+seconds) + float64(centis)/100,
			Text: text,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	return out
}

// FormatLRC serializes lines back to LRC format. Formatting is canonical
// ([mm:ss.xx]) rather than byte-identical to any source; re-parsing the
// output yields the same times.
func FormatLRC(lines []Line) string {
	var b strings.Builder
	for _, line := range lines {
		total := line.Time
		minutes := int(total) / 60
		seconds := int(total) % 60
		centis := int((total-float64(int(total)))*100 + 0.5)
		if centis >= 100 {
			centis -= 100
			seconds++
			if seconds >= 60 {
				seconds -= 60
				minutes++
			}
		}
		fmt.Fprintf(&b, "[%02d:%02d.%02d] %s\n", minutes, seconds, centis, line.Text)
	}
	return b.String()
}
