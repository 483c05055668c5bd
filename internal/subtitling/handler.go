package subtitling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/stage"
	"slidecast/internal/tts"
)

// Handler builds the deck subtitle track from the synthesis outcomes.
type Handler struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	artifacts []string
}

// NewHandler constructs the subtitle stage.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "subtitling"))
	}
	return &Handler{cfg: cfg, store: store, logger: stageLogger}
}

// SetLogger installs the job-scoped logger supplied by the executor.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "subtitling"))
	}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Subtitling"
	}
	job.ProgressMessage = "Preparing subtitle generation"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting subtitle preparation", logging.Bool("enabled", h.cfg.Subtitles.Enabled))
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	h.artifacts = nil

	if !h.cfg.Subtitles.Enabled {
		job.ProgressPercent = 100
		job.ProgressMessage = "Subtitles disabled"
		logger.Info("subtitles disabled, skipping generation")
		return nil
	}

	layout := queue.LayoutFor(h.cfg, job.ID)
	manifest, err := deck.LoadManifest(layout.Manifest)
	if err != nil {
		return services.Wrap(services.ErrValidation, "subtitle", "load manifest",
			"extraction manifest missing or unreadable", err)
	}
	outcomes, err := tts.LoadOutcomes(filepath.Join(layout.Audio, "outcomes.json"))
	if err != nil || len(outcomes) == 0 {
		return services.Wrap(services.ErrValidation, "subtitle", "load outcomes",
			"synthesis outcomes missing, synthesize must run first", err)
	}
	durationByIndex := make(map[int]time.Duration, len(outcomes))
	for _, outcome := range outcomes {
		durationByIndex[outcome.SlideIndex] = time.Duration(outcome.Duration)
	}
	if err := layout.Ensure(); err != nil {
		return err
	}

	cues := make([]Cue, 0, len(manifest.Slides))
	clock := time.Duration(0)
	for _, slide := range manifest.Slides {
		duration, ok := durationByIndex[slide.Index]
		if !ok {
			return services.Wrap(services.ErrValidation, "subtitle", "match outcomes",
				fmt.Sprintf("no synthesis outcome for slide %d", slide.Index), nil)
		}
		text, err := os.ReadFile(filepath.Join(layout.Root, slide.ScriptFile))
		if err != nil {
			return services.Wrap(services.ErrValidation, "subtitle", "read script",
				fmt.Sprintf("script missing for slide %d", slide.Index), err)
		}
		cues = append(cues, Cue{
			Start: clock,
			End:   clock + duration,
			Text:  strings.TrimSpace(string(text)),
		})
		clock += duration
	}

	subtitlePath := filepath.Join(layout.Subtitles, "deck.srt")
	content := RenderSRT(cues, h.cfg.Subtitles.MaxLineLength)
	if err := os.WriteFile(subtitlePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write subtitle file: %w", err)
	}

	job.SubtitleFile = subtitlePath
	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Generated subtitles spanning %s", FormatTimestamp(clock))
	h.artifacts = []string{subtitlePath}
	logger.Info("subtitles generated",
		logging.Int("cues", len(cues)),
		logging.Duration("span", clock),
	)
	return nil
}

// HealthCheck reports readiness. Subtitle generation has no external
// dependencies.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("subtitle")
}

// Artifacts returns the subtitle file written by the last Execute call.
func (h *Handler) Artifacts() []string {
	return append([]string(nil), h.artifacts...)
}
