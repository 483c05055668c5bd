// Package merging implements the merge stage. The per-slide clips are joined
// with the ffmpeg concat demuxer, the subtitle track is muxed in when
// configured, and the finished video lands in the output directory.
package merging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"log/slog"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/fileutil"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/stage"
)

// Handler merges rendered clips into the final narrated video.
type Handler struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	media    ffmpeg.Client
	notifier notifications.Service

	artifacts []string
}

// NewHandler constructs the merge stage with the default ffmpeg client.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	media := ffmpeg.NewCLI(ffmpeg.WithBinaries(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
	return NewHandlerWithDependencies(cfg, store, logger, media, notifications.NewService(cfg))
}

// NewHandlerWithDependencies allows injecting collaborators (used in tests).
func NewHandlerWithDependencies(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	media ffmpeg.Client,
	notifier notifications.Service,
) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "merging"))
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		logger:   stageLogger,
		media:    media,
		notifier: notifier,
	}
}

// SetLogger installs the job-scoped logger supplied by the executor.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "merging"))
	}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Merging"
	}
	job.ProgressMessage = "Preparing final merge"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting merge preparation", logging.String("clips_dir", job.ClipsDir))
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	h.artifacts = nil
	layout := queue.LayoutFor(h.cfg, job.ID)

	manifest, err := deck.LoadManifest(layout.Manifest)
	if err != nil {
		return services.Wrap(services.ErrValidation, "merge", "load manifest",
			"extraction manifest missing or unreadable", err)
	}
	clips, err := collectClips(layout.Clips, manifest)
	if err != nil {
		return err
	}

	if err := h.updateProgress(ctx, job, 10, "Concatenating clips"); err != nil {
		return err
	}
	listPath := filepath.Join(layout.Clips, "concat.txt")
	if err := writeConcatList(listPath, clips); err != nil {
		return err
	}
	mergedPath := filepath.Join(layout.Final, "merged.mp4")
	if err := h.media.Concat(ctx, listPath, mergedPath); err != nil {
		return err
	}

	if err := stage.CheckControl(ctx, h.store, job); err != nil {
		return err
	}

	title := strings.TrimSpace(job.Title)
	if title == "" {
		title = manifest.Title
	}
	finalName := SafeFilename(title) + ".mp4"
	finalPath := filepath.Join(layout.Final, finalName)

	subtitlePath := strings.TrimSpace(job.SubtitleFile)
	muxSubtitles := h.cfg.Subtitles.Enabled && h.cfg.Subtitles.MuxIntoVideo && subtitlePath != ""
	if muxSubtitles {
		if _, err := os.Stat(subtitlePath); err != nil {
			logger.Warn("subtitle file missing, merging without subtitles", logging.String("path", subtitlePath))
			muxSubtitles = false
		}
	}
	if err := h.updateProgress(ctx, job, 60, "Writing final video"); err != nil {
		return err
	}
	if muxSubtitles {
		if err := h.media.MuxSubtitles(ctx, mergedPath, subtitlePath, finalPath); err != nil {
			return err
		}
	} else {
		if err := h.media.Remux(ctx, mergedPath, finalPath); err != nil {
			return err
		}
	}
	_ = os.Remove(mergedPath)

	if err := os.MkdirAll(h.cfg.Paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	outputPath := filepath.Join(h.cfg.Paths.OutputDir, finalName)
	if err := fileutil.CopyFileVerified(finalPath, outputPath); err != nil {
		return fmt.Errorf("deliver final video: %w", err)
	}

	job.FinalFile = outputPath
	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Final video at %s", outputPath)
	h.artifacts = []string{outputPath}

	if h.notifier != nil {
		if err := h.notifier.NotifyJobComplete(ctx, title, outputPath); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	logger.Info("merge complete",
		logging.Int("clips", len(clips)),
		logging.Bool("subtitled", muxSubtitles),
		logging.String("final_file", outputPath),
	)
	return nil
}

// HealthCheck reports readiness based on the media client being configured.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.media == nil {
		return stage.Unhealthy("merge", "ffmpeg client not configured")
	}
	return stage.Healthy("merge")
}

// Artifacts returns the delivered video from the last Execute call.
func (h *Handler) Artifacts() []string {
	return append([]string(nil), h.artifacts...)
}

func (h *Handler) updateProgress(ctx context.Context, job *queue.Job, percent float64, message string) error {
	job.ProgressPercent = percent
	job.ProgressMessage = message
	return h.store.Update(ctx, job)
}

// collectClips resolves each slide's rendered clip from the manifest, so the
// concat order follows slide indices rather than filename sorting.
func collectClips(clipsDir string, manifest deck.Manifest) ([]string, error) {
	if len(manifest.Slides) == 0 {
		return nil, services.Wrap(services.ErrValidation, "merge", "collect clips",
			"manifest lists no slides", nil)
	}
	slides := append([]deck.ManifestSlide(nil), manifest.Slides...)
	sort.Slice(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })

	clips := make([]string, 0, len(slides))
	var missing []int
	for _, slide := range slides {
		path := filepath.Join(clipsDir, fmt.Sprintf("clip_%03d.mp4", slide.Index))
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, slide.Index)
			continue
		}
		clips = append(clips, path)
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrValidation, "merge", "collect clips",
			fmt.Sprintf("missing rendered clips for slides %v, render must run first", missing), nil)
	}
	return clips, nil
}

// writeConcatList writes the ffmpeg concat demuxer input. Single quotes in
// paths are escaped the way the demuxer expects.
func writeConcatList(path string, clips []string) error {
	var builder strings.Builder
	for _, clip := range clips {
		escaped := strings.ReplaceAll(clip, "'", `'\''`)
		fmt.Fprintf(&builder, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(path, []byte(builder.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// SafeFilename strips characters that are unsafe in filenames and collapses
// whitespace, falling back to "deck" for empty titles.
func SafeFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '\x00':
			return ' '
		}
		return r
	}, title)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "deck"
	}
	return cleaned
}
