package merging_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/merging"
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/testsupport"
)

type fakeMedia struct {
	concatList string
	muxed      bool
	remuxed    bool
}

func (f *fakeMedia) AudioDuration(ctx context.Context, path string) (time.Duration, error) {
	return time.Second, nil
}

func (f *fakeMedia) RenderClip(ctx context.Context, spec ffmpeg.RenderSpec) error {
	return os.WriteFile(spec.OutputPath, []byte("mp4"), 0o644)
}

func (f *fakeMedia) ColorCard(ctx context.Context, outputPath string, width, height int, color string) error {
	return os.WriteFile(outputPath, []byte("png"), 0o644)
}

func (f *fakeMedia) Concat(ctx context.Context, listPath, outputPath string) error {
	data, err := os.ReadFile(listPath)
	if err != nil {
		return err
	}
	f.concatList = string(data)
	return os.WriteFile(outputPath, []byte("merged"), 0o644)
}

func (f *fakeMedia) MuxSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	f.muxed = true
	return os.WriteFile(outputPath, []byte("merged+subs"), 0o644)
}

func (f *fakeMedia) Remux(ctx context.Context, inputPath, outputPath string) error {
	f.remuxed = true
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func stagePriorStages(t *testing.T, cfg *config.Config, job *queue.Job, clipCount int, withSubtitles bool) queue.StagingLayout {
	t.Helper()
	layout := queue.LayoutFor(cfg, job.ID)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	manifest := deck.Manifest{Title: "Test Deck", SlideCount: clipCount}
	for i := 1; i <= clipCount; i++ {
		manifest.Slides = append(manifest.Slides, deck.ManifestSlide{Index: i})
		clip := filepath.Join(layout.Clips, fmt.Sprintf("clip_%03d.mp4", i))
		if err := os.WriteFile(clip, []byte("mp4"), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}
	if err := deck.WriteManifest(layout.Manifest, manifest); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	job.ClipsDir = layout.Clips
	if withSubtitles {
		srt := filepath.Join(layout.Subtitles, "deck.srt")
		if err := os.WriteFile(srt, []byte("1\n00:00:00,000 --> 00:00:01,000\nhi\n\n"), 0o644); err != nil {
			t.Fatalf("write srt: %v", err)
		}
		job.SubtitleFile = srt
	}
	return layout
}

func newFixture(t *testing.T, media ffmpeg.Client) (*merging.Handler, *config.Config, *queue.Job) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, filepath.Join(testsupport.BaseDir(cfg), "deck.pptx"), "Quarterly: Review?")
	handler := merging.NewHandlerWithDependencies(cfg, store, logging.NewNop(), media, notifications.NewService(cfg))
	return handler, cfg, job
}

func TestExecuteMergesClipsAndDeliversFinalVideo(t *testing.T) {
	media := &fakeMedia{}
	handler, cfg, job := newFixture(t, media)
	stagePriorStages(t, cfg, job, 3, true)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(media.concatList), "\n")
	if len(lines) != 3 {
		t.Fatalf("concat list = %q", media.concatList)
	}
	if !strings.Contains(lines[0], "clip_001.mp4") || !strings.Contains(lines[2], "clip_003.mp4") {
		t.Fatalf("concat list order wrong: %v", lines)
	}
	if !media.muxed {
		t.Fatal("subtitles should have been muxed")
	}

	wantName := "Quarterly Review.mp4"
	if filepath.Base(job.FinalFile) != wantName {
		t.Fatalf("final file = %q, want sanitized %q", job.FinalFile, wantName)
	}
	if filepath.Dir(job.FinalFile) != cfg.Paths.OutputDir {
		t.Fatalf("final file should land in output dir, got %q", job.FinalFile)
	}
	if _, err := os.Stat(job.FinalFile); err != nil {
		t.Fatalf("delivered file missing: %v", err)
	}
	if artifacts := handler.Artifacts(); len(artifacts) != 1 || artifacts[0] != job.FinalFile {
		t.Fatalf("artifacts = %v", artifacts)
	}
}

func TestExecuteRemuxesWhenSubtitlesDisabled(t *testing.T) {
	media := &fakeMedia{}
	handler, cfg, job := newFixture(t, media)
	cfg.Subtitles.MuxIntoVideo = false
	stagePriorStages(t, cfg, job, 2, true)

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if media.muxed || !media.remuxed {
		t.Fatalf("muxed=%v remuxed=%v, want remux only", media.muxed, media.remuxed)
	}
}

func TestExecuteOrdersClipsBySlideIndex(t *testing.T) {
	media := &fakeMedia{}
	handler, cfg, job := newFixture(t, media)
	layout := queue.LayoutFor(cfg, job.ID)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}

	// Lexical filename sorting would put slide 1000 before slide 999.
	manifest := deck.Manifest{Title: "Big Deck", SlideCount: 2}
	for _, index := range []int{999, 1000} {
		manifest.Slides = append(manifest.Slides, deck.ManifestSlide{Index: index})
		clip := filepath.Join(layout.Clips, fmt.Sprintf("clip_%03d.mp4", index))
		if err := os.WriteFile(clip, []byte("mp4"), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}
	if err := deck.WriteManifest(layout.Manifest, manifest); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if err := handler.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(media.concatList), "\n")
	if len(lines) != 2 {
		t.Fatalf("concat list = %q", media.concatList)
	}
	if !strings.Contains(lines[0], "clip_999.mp4") || !strings.Contains(lines[1], "clip_1000.mp4") {
		t.Fatalf("concat list order wrong: %v", lines)
	}
}

func TestExecuteRequiresRenderedClips(t *testing.T) {
	media := &fakeMedia{}
	handler, cfg, job := newFixture(t, media)
	layout := queue.LayoutFor(cfg, job.ID)
	if err := layout.Ensure(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	if err := deck.WriteManifest(layout.Manifest, deck.Manifest{Title: "T", SlideCount: 2, Slides: []deck.ManifestSlide{{Index: 1}, {Index: 2}}}); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteRejectsClipCountMismatch(t *testing.T) {
	media := &fakeMedia{}
	handler, cfg, job := newFixture(t, media)
	layout := stagePriorStages(t, cfg, job, 2, false)
	if err := os.Remove(filepath.Join(layout.Clips, "clip_002.mp4")); err != nil {
		t.Fatalf("remove clip: %v", err)
	}

	err := handler.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSafeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Team Update", "Team Update"},
		{"a/b\\c:d", "a b c d"},
		{"  spaced   out  ", "spaced out"},
		{"", "deck"},
	}
	for _, tc := range cases {
		if got := merging.SafeFilename(tc.in); got != tc.want {
			t.Errorf("SafeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
