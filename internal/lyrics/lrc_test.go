package lyrics

import (
	"math"
	"testing"
)

func TestParseLRC(t *testing.T) {
	content := "[00:17.12] First line of lyrics\n[00:21.50] Second line\nnot a lyric line\n[01:02.50] hello world"

	lines := ParseLRC(content)

	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	if !almostEqual(lines[0].Time, 17.12) {
		t.Errorf("Expected time 17.12, got %f", lines[0].Time)
	}
	if lines[0].Text != "First line of lyrics" {
		t.Errorf("Unexpected text: %q", lines[0].Text)
	}
	if !almostEqual(lines[2].Time, 62.5) {
		t.Errorf("Expected time 62.5, got %f", lines[2].Time)
	}
	if lines[2].Text != "hello world" {
		t.Errorf("Unexpected text: %q", lines[2].Text)
	}
}

func TestParseLRCNoFraction(t *testing.T) {
	lines := ParseLRC("[02:05] plain seconds")

	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if !almostEqual(lines[0].Time, 125) {
		t.Errorf("Expected time 125, got %f", lines[0].Time)
	}
}

func TestParseLRCMillisecondFraction(t *testing.T) {
	// Three fraction digits are truncated to centiseconds.
	lines := ParseLRC("[00:10.123] three digits")

	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if !almostEqual(lines[0].Time, 10.12) {
		t.Errorf("Expected time 10.12, got %f", lines[0].Time)
	}
}

func TestParseLRCMultipleTimestamps(t *testing.T) {
	// Repeated-chorus lines carry several tags; the last one wins.
	lines := ParseLRC("[00:10.00][00:40.00] chorus text")

	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if !almostEqual(lines[0].Time, 40) {
		t.Errorf("Expected time 40, got %f", lines[0].Time)
	}
	if lines[0].Text != "chorus text" {
		t.Errorf("Unexpected text: %q", lines[0].Text)
	}
}

func TestParseLRCSkipsEmptyText(t *testing.T) {
	lines := ParseLRC("[00:05.00]\n[00:06.00]    \n[00:07.00] kept")

	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "kept" {
		t.Errorf("Unexpected text: %q", lines[0].Text)
	}
}

func TestParseLRCSortsByTime(t *testing.T) {
	lines := ParseLRC("[00:30.00] later\n[00:10.00] earlier")

	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0].Text != "earlier" || lines[1].Text != "later" {
		t.Errorf("Lines not sorted by time: %+v", lines)
	}
}

func TestParseLRCEmpty(t *testing.T) {
	if lines := ParseLRC(""); len(lines) != 0 {
		t.Errorf("Expected no lines from empty content, got %d", len(lines))
	}
}

func TestLRCRoundTrip(t *testing.T) {
	original := []Line{
		{Time: 17.12, Text: "First line"},
		{Time: 62.5, Text: "hello world"},
		{Time: 125, Text: "plain seconds"},
	}

	parsed := ParseLRC(FormatLRC(original))

	if len(parsed) != len(original) {
		t.Fatalf("Expected %d lines after round trip, got %d", len(original), len(parsed))
	}
	for i := range original {
		if math.Abs(parsed[i].Time-original[i].Time) > 0.005 {
			t.Errorf("Line %d: time %f changed to %f", i, original[i].Time, parsed[i].Time)
		}
		if parsed[i].Text != original[i].Text {
			t.Errorf("Line %d: text %q changed to %q", i, original[i].Text, parsed[i].Text)
		}
	}
}
