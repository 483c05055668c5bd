package openaitts_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/services"
	"slidecast/internal/services/openaitts"
)

func TestSynthesizeWritesAudio(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/speech" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer oai-key" {
			t.Fatalf("auth = %q", r.Header.Get("Authorization"))
		}
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &captured)
		_, _ = w.Write([]byte("RIFFwavdata"))
	}))
	defer server.Close()

	client := openaitts.NewClient(openaitts.Config{
		APIKey:  "oai-key",
		BaseURL: server.URL,
		Model:   "tts-1-hd",
		Voice:   "nova",
	})
	output := filepath.Join(t.TempDir(), "slide_001.wav")
	if err := client.Synthesize(context.Background(), "hello there", "", output); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if captured["model"] != "tts-1-hd" || captured["voice"] != "nova" {
		t.Fatalf("body = %v", captured)
	}
	if captured["input"] != "hello there" || captured["response_format"] != "wav" {
		t.Fatalf("body = %v", captured)
	}
	if data, err := os.ReadFile(output); err != nil || string(data) != "RIFFwavdata" {
		t.Fatalf("output = %q, err %v", data, err)
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &captured)
		_, _ = w.Write([]byte("x"))
	}))
	defer server.Close()

	client := openaitts.NewClient(openaitts.Config{APIKey: "k", BaseURL: server.URL, Voice: "alloy"})
	if err := client.Synthesize(context.Background(), "hi", "shimmer", filepath.Join(t.TempDir(), "o.wav")); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if captured["voice"] != "shimmer" {
		t.Fatalf("voice = %v, want override", captured["voice"])
	}
}

func TestSynthesizeErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := openaitts.NewClient(openaitts.Config{APIKey: "k", BaseURL: server.URL})
	err := client.Synthesize(context.Background(), "hi", "", filepath.Join(t.TempDir(), "o.wav"))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("429 should be transient, got %v", err)
	}

	client = openaitts.NewClient(openaitts.Config{})
	if err := client.Synthesize(context.Background(), "hi", "", "/tmp/o.wav"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing key error = %v", err)
	}
}
