// Package extraction implements the extract stage. It parses the submitted
// deck, writes per-slide narration scripts and slide images into the job
// staging area, and records the manifest the downstream stages consume.
package extraction

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
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/services/soffice"
	"slidecast/internal/stage"
	"slidecast/internal/tts"
)

// Handler turns a source deck into staged extraction artifacts.
type Handler struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	parser   deck.Parser
	imager   SlideImager
	fallback SlideImager
	notifier notifications.Service
}

// NewHandler constructs the extract stage with default dependencies. When
// LibreOffice and poppler are installed the real slide images are rendered;
// otherwise color card placeholders stand in.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	media := ffmpeg.NewCLI()
	placeholder := NewPlaceholderImager(media, cfg.Video.Width, cfg.Video.Height)

	var imager SlideImager = placeholder
	var fallback SlideImager
	office := soffice.NewClient(soffice.WithBinaries(cfg.SofficeBinary(), ""))
	if office.Available() {
		imager = NewSofficeImager(office)
		fallback = placeholder
	}
	return NewHandlerWithDependencies(cfg, store, logger, deck.NewPPTXParser(), imager, fallback, notifications.NewService(cfg))
}

// NewHandlerWithDependencies allows injecting collaborators (used in tests).
func NewHandlerWithDependencies(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	parser deck.Parser,
	imager SlideImager,
	fallback SlideImager,
	notifier notifications.Service,
) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "extraction"))
	}
	return &Handler{
		cfg:      cfg,
		store:    store,
		logger:   stageLogger,
		parser:   parser,
		imager:   imager,
		fallback: fallback,
		notifier: notifier,
	}
}

// SetLogger installs the job-scoped logger supplied by the executor.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "extraction"))
	}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Extracting"
	}
	job.ProgressMessage = "Preparing deck extraction"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting extraction preparation", logging.String("source", job.SourcePath))
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)

	source := strings.TrimSpace(job.SourcePath)
	if source == "" {
		return services.Wrap(services.ErrValidation, "extract", "validate", "job has no source path", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrValidation, "extract", "validate",
			fmt.Sprintf("source deck missing at %s", source), err)
	}
	if ext := strings.ToLower(filepath.Ext(source)); ext != ".pptx" {
		return services.Wrap(services.ErrValidation, "extract", "validate",
			fmt.Sprintf("unsupported deck format %q", ext), nil)
	}

	parsed, err := h.parser.Parse(ctx, source)
	if err != nil {
		return err
	}
	slideCount := len(parsed.Slides)
	logger.Info("deck parsed",
		logging.String("title", parsed.Title),
		logging.Int("slides", slideCount),
	)

	layout := queue.LayoutFor(h.cfg, job.ID)
	if err := layout.Ensure(); err != nil {
		return err
	}

	if err := h.updateProgress(ctx, job, 10, "Writing narration scripts"); err != nil {
		return err
	}
	scripts, err := writeScripts(layout.Scripts, parsed.Slides)
	if err != nil {
		return err
	}

	if err := stage.CheckControl(ctx, h.store, job); err != nil {
		return err
	}
	if err := h.updateProgress(ctx, job, 30, "Rendering slide images"); err != nil {
		return err
	}
	images, err := h.exportImages(ctx, logger, source, layout.Slides, slideCount)
	if err != nil {
		return err
	}

	if err := stage.CheckControl(ctx, h.store, job); err != nil {
		return err
	}
	if err := h.updateProgress(ctx, job, 90, "Writing manifest"); err != nil {
		return err
	}
	manifest := buildManifest(source, parsed, scripts, images, layout.Root)
	if err := deck.WriteManifest(layout.Manifest, manifest); err != nil {
		return err
	}

	// The deck's own title beats the filename placeholder NewJob backfills,
	// but never a title the submitter chose.
	if title := strings.TrimSpace(parsed.Title); title != "" {
		current := strings.TrimSpace(job.Title)
		if current == "" || current == queue.TitleFromPath(job.SourcePath) {
			job.Title = title
		}
	}
	job.ScriptDir = layout.Scripts
	job.SlidesDir = layout.Slides
	job.SlideCount = slideCount
	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Extracted %d slides", slideCount)

	if h.notifier != nil {
		if err := h.notifier.NotifyExtractionComplete(ctx, job.Title, slideCount); err != nil {
			logger.Warn("extraction notification failed", logging.Error(err))
		}
	}
	logger.Info("extraction complete",
		logging.Int("slides", slideCount),
		logging.String("manifest", layout.Manifest),
	)
	return nil
}

// HealthCheck reports readiness. Extraction can always run because the
// placeholder imager has no external requirements beyond ffmpeg.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.parser == nil || h.imager == nil {
		return stage.Unhealthy("extract", "parser or imager not configured")
	}
	return stage.Healthy("extract")
}

func (h *Handler) updateProgress(ctx context.Context, job *queue.Job, percent float64, message string) error {
	job.ProgressPercent = percent
	job.ProgressMessage = message
	return h.store.Update(ctx, job)
}

// exportImages tries the primary imager and falls back to placeholder cards
// when deck rendering fails, so a broken LibreOffice install degrades the
// visuals instead of failing the job.
func (h *Handler) exportImages(ctx context.Context, logger *slog.Logger, source, slidesDir string, slideCount int) ([]string, error) {
	images, err := h.imager.ExportSlides(ctx, source, slidesDir, slideCount)
	if err == nil {
		return images, nil
	}
	if h.fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	logger.Warn("slide rendering failed, using placeholder images", logging.Error(err))
	return h.fallback.ExportSlides(ctx, source, slidesDir, slideCount)
}

func writeScripts(scriptsDir string, slides []deck.Slide) ([]string, error) {
	paths := make([]string, 0, len(slides))
	for _, slide := range slides {
		path := filepath.Join(scriptsDir, fmt.Sprintf("script_%03d.txt", slide.Index))
		text := tts.CleanText(slide.Notes)
		if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("write script for slide %d: %w", slide.Index, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func buildManifest(source string, parsed deck.Deck, scripts, images []string, root string) deck.Manifest {
	manifest := deck.Manifest{
		SourceFile: source,
		Title:      parsed.Title,
		SlideCount: len(parsed.Slides),
		Slides:     make([]deck.ManifestSlide, 0, len(parsed.Slides)),
	}
	manifest.GeneratedAt = nowUTC()
	for i, slide := range parsed.Slides {
		manifest.Slides = append(manifest.Slides, deck.ManifestSlide{
			Index:      slide.Index,
			Title:      slide.Title,
			ScriptFile: relativeTo(root, scripts[i]),
			ImageFile:  relativeTo(root, images[i]),
			NoteChars:  len([]rune(slide.Notes)),
		})
	}
	return manifest
}

var nowUTC = func() time.Time { return time.Now().UTC() }

func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
