package tts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/language"
)

// CleanText strips glyphs that trip up speech backends while leaving the
// spoken content intact. Control characters, zero-width marks, and private-use
// glyphs from slide templates are removed; runs of whitespace collapse to a
// single space.
func CleanText(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	lastSpace := true
	for _, r := range text {
		switch {
		case r == '\uFEFF' || r == '\u200B' || r == '\u200C' || r == '\u200D':
			continue
		case unicode.IsControl(r) && !unicode.IsSpace(r):
			continue
		case unicode.IsSpace(r):
			if !lastSpace {
				builder.WriteByte(' ')
				lastSpace = true
			}
			continue
		case unicode.In(r, unicode.Co):
			continue
		}
		builder.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(builder.String())
}

// NormalizeLanguage canonicalizes a BCP 47 tag, falling back to the provided
// default when the tag is empty or malformed.
func NormalizeLanguage(tag, fallback string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fallback
	}
	parsed, err := language.Parse(tag)
	if err != nil {
		return fallback
	}
	return parsed.String()
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func parseSeconds(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration seconds: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
