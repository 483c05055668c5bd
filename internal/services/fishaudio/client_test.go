package fishaudio_test

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
	"slidecast/internal/services/fishaudio"
)

func TestSynthesizeWritesAudio(t *testing.T) {
	var captured struct {
		auth string
		body map[string]any
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		captured.auth = r.Header.Get("Authorization")
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &captured.body)
		_, _ = w.Write([]byte("RIFFfakeaudio"))
	}))
	defer server.Close()

	client := fishaudio.NewClient(fishaudio.Config{
		APIKey:  "fish-key",
		BaseURL: server.URL,
		ModelID: "voice-123",
	})
	output := filepath.Join(t.TempDir(), "slide_001.wav")
	if err := client.Synthesize(context.Background(), "hello", output); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if captured.auth != "Bearer fish-key" {
		t.Fatalf("auth header = %q", captured.auth)
	}
	if captured.body["text"] != "hello" || captured.body["format"] != "wav" {
		t.Fatalf("request body = %v", captured.body)
	}
	if captured.body["reference_id"] != "voice-123" {
		t.Fatalf("reference_id = %v", captured.body["reference_id"])
	}
	data, err := os.ReadFile(output)
	if err != nil || string(data) != "RIFFfakeaudio" {
		t.Fatalf("output = %q, err %v", data, err)
	}
}

func TestSynthesizeStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		marker error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusUnprocessableEntity, services.ErrValidation},
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusInternalServerError, services.ErrTransient},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		client := fishaudio.NewClient(fishaudio.Config{APIKey: "k", BaseURL: server.URL})
		err := client.Synthesize(context.Background(), "hello", filepath.Join(t.TempDir(), "out.wav"))
		server.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: error %v, want marker %v", tc.status, err, tc.marker)
		}
	}
}

func TestSynthesizeRequiresKeyAndText(t *testing.T) {
	client := fishaudio.NewClient(fishaudio.Config{})
	if err := client.Synthesize(context.Background(), "hello", "/tmp/out.wav"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("missing key error = %v", err)
	}
	client = fishaudio.NewClient(fishaudio.Config{APIKey: "k"})
	if err := client.Synthesize(context.Background(), "  ", "/tmp/out.wav"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty text error = %v", err)
	}
}
