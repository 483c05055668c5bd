package synthesis_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/stage"
	"slidecast/internal/synthesis"
	"slidecast/internal/testsupport"
	"slidecast/internal/tts"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	units    []tts.SpeechUnit
	degraded map[int]bool
	failAt   map[int]string
	onUnit   func(unit tts.SpeechUnit)
}

func (f *fakeDispatcher) Synthesize(ctx context.Context, unit tts.SpeechUnit) tts.Outcome {
	f.mu.Lock()
	f.units = append(f.units, unit)
	f.mu.Unlock()
	if f.onUnit != nil {
		f.onUnit(unit)
	}

	outcome := tts.Outcome{
		SlideIndex: unit.Index,
		Engine:     "edge",
		Path:       unit.OutputPath,
		Duration:   tts.Seconds(2 * time.Second),
		Attempts:   1,
	}
	if f.failAt != nil {
		if message, ok := f.failAt[unit.Index]; ok {
			outcome.Error = message
			return outcome
		}
	}
	if f.degraded != nil && f.degraded[unit.Index] {
		outcome.Engine = tts.SilenceEngine
		outcome.Degraded = true
	}
	_ = os.WriteFile(unit.OutputPath, []byte("RIFFwav"), 0o644)
	return outcome
}

func (f *fakeDispatcher) seen() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	indexes := make([]int, 0, len(f.units))
	for _, unit := range f.units {
		indexes = append(indexes, unit.Index)
	}
	return indexes
}

func stageExtraction(t *testing.T, cfg *config.Config, job *queue.Job, slideCount int) queue.StagingLayout {
	t.Helper()
	layout := queue.LayoutFor(cfg, job.ID)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	manifest := deck.Manifest{
		SourceFile: job.SourcePath,
		Title:      "Test Deck",
		SlideCount: slideCount,
	}
	for i := 1; i <= slideCount; i++ {
		scriptName := fmt.Sprintf("script_%03d.txt", i)
		scriptPath := filepath.Join(layout.Scripts, scriptName)
		if err := os.WriteFile(scriptPath, []byte(fmt.Sprintf("Narration for slide %d.\n", i)), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
		manifest.Slides = append(manifest.Slides, deck.ManifestSlide{
			Index:      i,
			ScriptFile: filepath.Join("scripts", scriptName),
			ImageFile:  filepath.Join("slides", fmt.Sprintf("slide_%03d.png", i)),
		})
	}
	if err := deck.WriteManifest(layout.Manifest, manifest); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return layout
}

func newFixture(t *testing.T, dispatcher synthesis.Dispatcher, opts ...testsupport.ConfigOption) (*synthesis.Handler, *config.Config, *queue.Store, *queue.Job) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, filepath.Join(testsupport.BaseDir(cfg), "deck.pptx"), "Test Deck")
	handler := synthesis.NewHandlerWithDependencies(cfg, store, logging.NewNop(), dispatcher, notifications.NewService(cfg))
	return handler, cfg, store, job
}

func TestExecuteSynthesizesEveryUnit(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler, cfg, _, job := newFixture(t, dispatcher, testsupport.WithUnitWorkers(2))
	layout := stageExtraction(t, cfg, job, 3)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	outcomes, err := tts.LoadOutcomes(filepath.Join(layout.Audio, "outcomes.json"))
	if err != nil {
		t.Fatalf("load outcomes: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcome count = %d", len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.SlideIndex != i+1 {
			t.Fatalf("outcomes not ordered by slide: %+v", outcomes)
		}
	}
	if job.AudioDir != layout.Audio {
		t.Fatalf("audio dir = %q", job.AudioDir)
	}
	if job.ProgressPercent != 100 {
		t.Fatalf("progress = %v", job.ProgressPercent)
	}
	artifacts := handler.Artifacts()
	if len(artifacts) != 1 || filepath.Base(artifacts[0]) != "outcomes.json" {
		t.Fatalf("artifacts = %v", artifacts)
	}
}

func TestExecuteSkipsUnitsWithExistingOutcomes(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler, cfg, _, job := newFixture(t, dispatcher, testsupport.WithUnitWorkers(1))
	layout := stageExtraction(t, cfg, job, 3)

	donePath := filepath.Join(layout.Audio, "slide_001.wav")
	if err := os.WriteFile(donePath, []byte("RIFFwav"), 0o644); err != nil {
		t.Fatalf("seed wav: %v", err)
	}
	seed := []tts.Outcome{{SlideIndex: 1, Engine: "edge", Path: donePath, Duration: tts.Seconds(time.Second), Attempts: 1}}
	if err := tts.SaveOutcomes(filepath.Join(layout.Audio, "outcomes.json"), seed); err != nil {
		t.Fatalf("seed outcomes: %v", err)
	}

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	seen := dispatcher.seen()
	if len(seen) != 2 {
		t.Fatalf("dispatched units = %v, want slides 2 and 3 only", seen)
	}
	for _, index := range seen {
		if index == 1 {
			t.Fatalf("slide 1 should have been skipped, dispatched %v", seen)
		}
	}
	outcomes, err := tts.LoadOutcomes(filepath.Join(layout.Audio, "outcomes.json"))
	if err != nil || len(outcomes) != 3 {
		t.Fatalf("outcomes = %v, err %v", outcomes, err)
	}
}

func TestExecuteThreadsEnginePreference(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler, cfg, store, job := newFixture(t, dispatcher, testsupport.WithUnitWorkers(1))
	job.VoiceParamsJSON = `{"engine":"fish","voice":"fish-warm"}`
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("update job: %v", err)
	}
	stageExtraction(t, cfg, job, 2)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(dispatcher.units) != 2 {
		t.Fatalf("dispatched units = %d", len(dispatcher.units))
	}
	for _, unit := range dispatcher.units {
		if unit.Engine != "fish" || unit.Voice != "fish-warm" {
			t.Fatalf("unit = %+v, want engine and voice from job params", unit)
		}
	}
}

func TestExecuteReportsDegradedUnits(t *testing.T) {
	dispatcher := &fakeDispatcher{degraded: map[int]bool{2: true}}
	handler, cfg, _, job := newFixture(t, dispatcher, testsupport.WithUnitWorkers(1))
	stageExtraction(t, cfg, job, 3)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(job.ProgressMessage, "1 silent") {
		t.Fatalf("progress message = %q", job.ProgressMessage)
	}
}

func TestExecutePausePersistsPartialOutcomes(t *testing.T) {
	var handlerStore *queue.Store
	var jobID int64
	dispatcher := &fakeDispatcher{}
	dispatcher.onUnit = func(unit tts.SpeechUnit) {
		if unit.Index == 1 {
			if _, err := handlerStore.RequestPause(context.Background(), jobID); err != nil {
				panic(err)
			}
		}
	}
	handler, cfg, store, job := newFixture(t, dispatcher, testsupport.WithUnitWorkers(1))
	handlerStore = store
	jobID = job.ID
	layout := stageExtraction(t, cfg, job, 3)

	// Mirror the executor: the job is in its processing status while the
	// stage runs, so a pause request becomes a control flag.
	job.Status = queue.StatusSynthesizing
	if err := store.Update(context.Background(), job); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, stage.ErrPauseRequested) {
		t.Fatalf("expected pause sentinel, got %v", err)
	}

	outcomes, loadErr := tts.LoadOutcomes(filepath.Join(layout.Audio, "outcomes.json"))
	if loadErr != nil {
		t.Fatalf("load outcomes: %v", loadErr)
	}
	if len(outcomes) == 0 || len(outcomes) == 3 {
		t.Fatalf("expected partial outcomes, got %d", len(outcomes))
	}
}

func TestExecuteRequiresManifest(t *testing.T) {
	handler, _, _, job := newFixture(t, &fakeDispatcher{})
	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteFailsWhenSilenceWriteFails(t *testing.T) {
	dispatcher := &fakeDispatcher{failAt: map[int]string{2: "write silence clip: disk full"}}
	handler, cfg, _, job := newFixture(t, dispatcher, testsupport.WithUnitWorkers(1))
	layout := stageExtraction(t, cfg, job, 2)

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	outcomes, loadErr := tts.LoadOutcomes(filepath.Join(layout.Audio, "outcomes.json"))
	if loadErr != nil || len(outcomes) != 2 {
		t.Fatalf("outcomes should still persist, got %v err %v", outcomes, loadErr)
	}
}
