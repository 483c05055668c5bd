package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "slidecast.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.TTS.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.TTS.MaxAttempts)
	}
	if cfg.TTS.SilenceMinSeconds != 1.0 {
		t.Fatalf("silence floor = %v, want 1.0", cfg.TTS.SilenceMinSeconds)
	}
	if cfg.Video.Width != 1920 || cfg.Video.Height != 1080 {
		t.Fatalf("video geometry = %dx%d", cfg.Video.Width, cfg.Video.Height)
	}
	if got := cfg.TTS.EngineOrder; len(got) != 4 || got[0] != "edge" {
		t.Fatalf("engine order = %v", got)
	}
}

func TestLoadNormalizesEngineOrder(t *testing.T) {
	path := writeConfig(t, `
[tts]
engine_order = ["Edge", "edge", " FISH "]
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"edge", "fish"}
	if len(cfg.TTS.EngineOrder) != len(want) {
		t.Fatalf("engine order = %v, want %v", cfg.TTS.EngineOrder, want)
	}
	for i := range want {
		if cfg.TTS.EngineOrder[i] != want[i] {
			t.Fatalf("engine order = %v, want %v", cfg.TTS.EngineOrder, want)
		}
	}
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	path := writeConfig(t, `
[tts]
engine_order = ["espeak"]
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestLoadRejectsBadHeartbeat(t *testing.T) {
	path := writeConfig(t, `
[workflow]
heartbeat_interval = 60
heartbeat_timeout = 30
`)
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for heartbeat timeout <= interval")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SLIDECAST_LOG_LEVEL", "debug")
	t.Setenv("SLIDECAST_TTS_FISH_API_KEY", "secret")
	path := writeConfig(t, `
[logging]
level = "info"
`)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.TTS.Fish.APIKey != "secret" {
		t.Fatalf("fish api key = %q", cfg.TTS.Fish.APIKey)
	}
}

func TestCredentialEnvFallback(t *testing.T) {
	t.Setenv("AZURE_SPEECH_KEY", "azkey")
	t.Setenv("AZURE_SPEECH_REGION", "eastus")
	path := writeConfig(t, "")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TTS.Azure.SubscriptionKey != "azkey" || cfg.TTS.Azure.Region != "eastus" {
		t.Fatalf("azure = %+v", cfg.TTS.Azure)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
