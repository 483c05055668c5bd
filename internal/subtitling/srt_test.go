package subtitling_test

import (
	"strings"
	"testing"
	"time"

	"slidecast/internal/subtitling"
)

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00,000"},
		{1500 * time.Millisecond, "00:00:01,500"},
		{90 * time.Second, "00:01:30,000"},
		{time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, "01:02:03,045"},
		{-time.Second, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := subtitling.FormatTimestamp(tc.in); got != tc.want {
			t.Errorf("FormatTimestamp(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestWrapTextBreaksOnWords(t *testing.T) {
	lines := subtitling.WrapText("the quick brown fox jumps over the lazy dog", 15)
	for _, line := range lines {
		if len([]rune(line)) > 15 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
	if strings.Join(lines, " ") != "the quick brown fox jumps over the lazy dog" {
		t.Fatalf("wrap lost words: %v", lines)
	}
}

func TestWrapTextKeepsOversizedWordWhole(t *testing.T) {
	lines := subtitling.WrapText("short pneumonoultramicroscopic end", 10)
	found := false
	for _, line := range lines {
		if line == "pneumonoultramicroscopic" {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversized word should sit on its own line: %v", lines)
	}
}

func TestRenderSRTDropsEmptyCues(t *testing.T) {
	out := subtitling.RenderSRT([]subtitling.Cue{
		{Start: 0, End: time.Second, Text: "one"},
		{Start: time.Second, End: 2 * time.Second, Text: "   "},
		{Start: 2 * time.Second, End: 3 * time.Second, Text: "three"},
	}, 42)
	if strings.Count(out, " --> ") != 2 {
		t.Fatalf("cue count wrong:\n%s", out)
	}
	if !strings.HasPrefix(out, "1\n") || !strings.Contains(out, "\n2\n00:00:02,000") {
		t.Fatalf("numbering wrong:\n%s", out)
	}
}
