package tts

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
	"unicode/utf8"
)

// SilenceDuration estimates how long a silence clip should run for a unit of
// text that could not be synthesized. The estimate assumes a nominal speaking
// pace and never drops below the configured floor.
func SilenceDuration(text string, minSeconds, charsPerSecond float64) time.Duration {
	if minSeconds <= 0 {
		minSeconds = 1.0
	}
	if charsPerSecond <= 0 {
		charsPerSecond = 3.5
	}
	seconds := minSeconds
	if chars := utf8.RuneCountInString(text); chars > 0 {
		if estimated := float64(chars) / charsPerSecond; estimated > seconds {
			seconds = estimated
		}
	}
	return time.Duration(seconds * float64(time.Second))
}

// WriteSilenceWAV writes a 16-bit mono PCM WAV file containing pure silence.
func WriteSilenceWAV(path string, duration time.Duration, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 22050
	}
	if duration < 0 {
		duration = 0
	}
	samples := int(math.Round(duration.Seconds() * float64(sampleRate)))
	dataLen := samples * 2

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create silence clip: %w", err)
	}
	defer file.Close()

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := file.Write(header); err != nil {
		return fmt.Errorf("write silence header: %w", err)
	}

	zeros := make([]byte, 32*1024)
	remaining := dataLen
	for remaining > 0 {
		chunk := len(zeros)
		if remaining < chunk {
			chunk = remaining
		}
		if _, err := file.Write(zeros[:chunk]); err != nil {
			return fmt.Errorf("write silence samples: %w", err)
		}
		remaining -= chunk
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close silence clip: %w", err)
	}
	return nil
}
