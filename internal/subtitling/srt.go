// Package subtitling implements the subtitle stage. Narration scripts become
// one SRT cue per slide, timed from the synthesized clip durations so the
// text tracks the audio in the merged video.
package subtitling

import (
	"fmt"
	"strings"
	"time"
)

// Cue is one subtitle entry covering a slide's narration window.
type Cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// FormatTimestamp renders a duration in the SRT HH:MM:SS,mmm form.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second
	millis := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// WrapText greedily wraps text into lines of at most width runes, breaking on
// spaces. Words longer than the width get their own line rather than being
// split mid-word.
func WrapText(text string, width int) []string {
	if width <= 0 {
		width = 42
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len([]rune(current))+1+len([]rune(word)) <= width {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// RenderSRT serializes cues into SRT text. Cues are numbered in order and
// empty-text cues are dropped.
func RenderSRT(cues []Cue, width int) string {
	var builder strings.Builder
	number := 0
	for _, cue := range cues {
		lines := WrapText(cue.Text, width)
		if len(lines) == 0 {
			continue
		}
		number++
		fmt.Fprintf(&builder, "%d\n%s --> %s\n%s\n\n",
			number,
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End),
			strings.Join(lines, "\n"),
		)
	}
	return builder.String()
}
