package tts_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/services"
	"slidecast/internal/testsupport"
	"slidecast/internal/tts"
)

type recordingEngine struct {
	name     string
	calls    int
	failures int
	err      error
	duration time.Duration
}

func (e *recordingEngine) Synthesize(ctx context.Context, req tts.Request) (tts.Clip, error) {
	e.calls++
	if e.err != nil && (e.failures == 0 || e.calls <= e.failures) {
		return tts.Clip{}, e.err
	}
	if err := os.WriteFile(req.OutputPath, []byte(e.name), 0o644); err != nil {
		return tts.Clip{}, err
	}
	duration := e.duration
	if duration == 0 {
		duration = 2 * time.Second
	}
	return tts.Clip{Path: req.OutputPath, Duration: duration}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func dispatcherFixture(t *testing.T, cfg *config.Config, engines map[string]tts.Engine) *tts.Dispatcher {
	t.Helper()
	cfg.TTS.RequestsPerSecond = 0
	registry := tts.NewRegistry(cfg)
	for name, engine := range engines {
		registry.Register(name, engine)
	}
	return tts.NewDispatcher(cfg, registry, tts.WithSleeper(noSleep))
}

func speechUnit(t *testing.T, text string) tts.SpeechUnit {
	t.Helper()
	return tts.SpeechUnit{
		Index:      1,
		Text:       text,
		OutputPath: filepath.Join(t.TempDir(), "slide_001.wav"),
	}
}

func TestDispatcherFirstEngineWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Fish.APIKey = "key"
	edge := &recordingEngine{name: "edge"}
	fish := &recordingEngine{name: "fish"}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge, "fish": fish})

	outcome := dispatcher.Synthesize(context.Background(), speechUnit(t, "Hello slides"))
	if outcome.Engine != "edge" {
		t.Fatalf("engine = %s, want edge", outcome.Engine)
	}
	if outcome.FallbackChain != 0 {
		t.Fatalf("fallback chain = %d, want 0", outcome.FallbackChain)
	}
	if outcome.Degraded {
		t.Fatal("successful synthesis should not be degraded")
	}
	if fish.calls != 0 {
		t.Fatalf("fish should not be consulted, calls = %d", fish.calls)
	}
}

func TestDispatcherPreferredEngineFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Fish.APIKey = "key"
	cfg.TTS.PreferredEngine = "fish"
	edge := &recordingEngine{name: "edge"}
	fish := &recordingEngine{name: "fish"}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge, "fish": fish})

	outcome := dispatcher.Synthesize(context.Background(), speechUnit(t, "Hello slides"))
	if outcome.Engine != "fish" {
		t.Fatalf("engine = %s, want fish", outcome.Engine)
	}
	if edge.calls != 0 {
		t.Fatalf("edge should not be consulted, calls = %d", edge.calls)
	}
}

func TestDispatcherUnitEnginePreferenceWins(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Fish.APIKey = "key"
	cfg.TTS.PreferredEngine = "edge"
	edge := &recordingEngine{name: "edge"}
	fish := &recordingEngine{name: "fish"}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge, "fish": fish})

	unit := speechUnit(t, "Hello slides")
	unit.Engine = "fish"
	outcome := dispatcher.Synthesize(context.Background(), unit)
	if outcome.Engine != "fish" {
		t.Fatalf("engine = %s, want unit preference fish", outcome.Engine)
	}
	if edge.calls != 0 {
		t.Fatalf("edge should not be consulted, calls = %d", edge.calls)
	}

	// A preference for a disabled engine falls back to the configured order.
	unit = speechUnit(t, "Hello slides")
	unit.Engine = "openai"
	outcome = dispatcher.Synthesize(context.Background(), unit)
	if outcome.Engine != "edge" {
		t.Fatalf("engine = %s, want edge fallback", outcome.Engine)
	}
}

func TestDispatcherTransientRetriesSameEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	edge := &recordingEngine{
		name:     "edge",
		failures: 2,
		err:      services.Wrap(services.ErrTransient, "synthesize", "edge", "socket reset", nil),
	}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge})

	outcome := dispatcher.Synthesize(context.Background(), speechUnit(t, "Hello slides"))
	if outcome.Engine != "edge" {
		t.Fatalf("engine = %s, want edge after retries", outcome.Engine)
	}
	if edge.calls != 3 {
		t.Fatalf("edge calls = %d, want 3", edge.calls)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", outcome.Attempts)
	}
}

func TestDispatcherPermanentErrorAdvancesImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Fish.APIKey = "key"
	edge := &recordingEngine{
		name: "edge",
		err:  services.Wrap(services.ErrValidation, "synthesize", "edge", "unsupported voice", nil),
	}
	fish := &recordingEngine{name: "fish"}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge, "fish": fish})

	outcome := dispatcher.Synthesize(context.Background(), speechUnit(t, "Hello slides"))
	if outcome.Engine != "fish" {
		t.Fatalf("engine = %s, want fish", outcome.Engine)
	}
	if edge.calls != 1 {
		t.Fatalf("edge calls = %d, want 1 (no retry on permanent error)", edge.calls)
	}
	if outcome.FallbackChain != 1 {
		t.Fatalf("fallback chain = %d, want 1", outcome.FallbackChain)
	}
	if len(outcome.EngineErrors) != 1 {
		t.Fatalf("engine errors = %v", outcome.EngineErrors)
	}
}

func TestDispatcherSilenceFallbackWhenAllEnginesFail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Fish.APIKey = "key"
	transient := services.Wrap(services.ErrTransient, "synthesize", "", "backend down", nil)
	edge := &recordingEngine{name: "edge", err: transient}
	fish := &recordingEngine{name: "fish", err: transient}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge, "fish": fish})

	text := "This narration is exactly long enough to exceed the silence floor."
	unit := speechUnit(t, text)
	outcome := dispatcher.Synthesize(context.Background(), unit)

	if outcome.Engine != tts.SilenceEngine {
		t.Fatalf("engine = %s, want silence", outcome.Engine)
	}
	if !outcome.Degraded {
		t.Fatal("silence fallback must be flagged degraded")
	}
	if outcome.FallbackChain != 2 {
		t.Fatalf("fallback chain = %d, want 2", outcome.FallbackChain)
	}

	want := tts.SilenceDuration(text, cfg.TTS.SilenceMinSeconds, cfg.TTS.SilenceCharsPerSecond)
	if outcome.Duration.Duration() != want {
		t.Fatalf("duration = %s, want %s", outcome.Duration.Duration(), want)
	}
	info, err := os.Stat(unit.OutputPath)
	if err != nil {
		t.Fatalf("silence clip missing: %v", err)
	}
	if info.Size() <= 44 {
		t.Fatalf("silence clip has no samples, size = %d", info.Size())
	}
}

func TestDispatcherEmptyTextShortCircuits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	edge := &recordingEngine{name: "edge"}
	dispatcher := dispatcherFixture(t, cfg, map[string]tts.Engine{"edge": edge})

	unit := speechUnit(t, "  \n\t ")
	outcome := dispatcher.Synthesize(context.Background(), unit)
	if outcome.Engine != tts.SilenceEngine {
		t.Fatalf("engine = %s, want silence", outcome.Engine)
	}
	if !outcome.Degraded {
		t.Fatal("empty text silence must be a degraded outcome")
	}
	if edge.calls != 0 {
		t.Fatalf("no engine should be consulted for empty text, calls = %d", edge.calls)
	}
	want := time.Duration(cfg.TTS.SilenceMinSeconds * float64(time.Second))
	if outcome.Duration.Duration() != want {
		t.Fatalf("duration = %s, want floor %s", outcome.Duration.Duration(), want)
	}
}

func TestDispatcherDeterministicCandidates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.Fish.APIKey = "key"
	cfg.TTS.OpenAI.APIKey = "key"
	cfg.TTS.PreferredEngine = "openai"
	cfg.TTS.RequestsPerSecond = 0
	registry := tts.NewRegistry(cfg)
	dispatcher := tts.NewDispatcher(cfg, registry, tts.WithSleeper(noSleep))

	first := dispatcher.Candidates()
	for i := 0; i < 10; i++ {
		again := dispatcher.Candidates()
		if len(again) != len(first) {
			t.Fatalf("candidate count changed: %v vs %v", again, first)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("candidate order changed: %v vs %v", again, first)
			}
		}
	}
	if first[0] != "openai" {
		t.Fatalf("candidates = %v, want preferred openai first", first)
	}
}
