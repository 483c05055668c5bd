package tts_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidecast/internal/tts"
)

func TestSilenceDurationFloorsAndScales(t *testing.T) {
	if got := tts.SilenceDuration("", 1.0, 3.5); got != time.Second {
		t.Fatalf("empty text duration = %s, want 1s", got)
	}
	if got := tts.SilenceDuration("ab", 1.0, 3.5); got != time.Second {
		t.Fatalf("short text should hit the floor, got %s", got)
	}

	text := "a long narration that should scale with character count over the pace"
	got := tts.SilenceDuration(text, 1.0, 3.5)
	want := time.Duration(float64(len([]rune(text))) / 3.5 * float64(time.Second))
	if got != want {
		t.Fatalf("duration = %s, want %s", got, want)
	}

	// Zero config falls back to the built-in constants.
	if got := tts.SilenceDuration("", 0, 0); got != time.Second {
		t.Fatalf("zero config duration = %s, want 1s", got)
	}
}

func TestWriteSilenceWAVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	if err := tts.WriteSilenceWAV(path, 2*time.Second, 22050); err != nil {
		t.Fatalf("WriteSilenceWAV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q %q", data[0:4], data[8:12])
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 22050 {
		t.Fatalf("sample rate = %d", rate)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Fatalf("channels = %d", channels)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Fatalf("bits per sample = %d", bits)
	}

	wantSamples := 2 * 22050
	dataLen := binary.LittleEndian.Uint32(data[40:44])
	if int(dataLen) != wantSamples*2 {
		t.Fatalf("data length = %d, want %d", dataLen, wantSamples*2)
	}
	if len(data) != 44+wantSamples*2 {
		t.Fatalf("file size = %d, want %d", len(data), 44+wantSamples*2)
	}
	for _, b := range data[44:] {
		if b != 0 {
			t.Fatal("silence samples must be zero")
		}
	}
}
