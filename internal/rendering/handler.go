// Package rendering implements the render stage. Each slide image is paired
// with its narration clip and rendered into a short H.264 segment through
// ffmpeg, bounded by the configured unit worker pool.
package rendering

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"log/slog"

	"slidecast/internal/config"
	"slidecast/internal/deck"
	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/services/ffmpeg"
	"slidecast/internal/stage"
	"slidecast/internal/tts"
)

// Handler renders one video clip per slide.
type Handler struct {
	cfg      *config.Config
	store    *queue.Store
	logger   *slog.Logger
	media    ffmpeg.Client
	notifier notifications.Service

	mu        sync.Mutex
	artifacts []string
}

// NewHandler constructs the render stage with the default ffmpeg client.
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
		stageLogger = stageLogger.With(logging.String("component", "rendering"))
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
		h.logger = logger.With(logging.String("component", "rendering"))
	}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Rendering"
	}
	job.ProgressMessage = "Preparing clip rendering"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting render preparation", logging.Int("slides", job.SlideCount))
	return nil
}

// clipTask pairs one slide's inputs with its clip output path.
type clipTask struct {
	index      int
	imagePath  string
	audioPath  string
	outputPath string
}

type clipResult struct {
	index int
	path  string
	err   error
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	layout := queue.LayoutFor(h.cfg, job.ID)

	manifest, err := deck.LoadManifest(layout.Manifest)
	if err != nil {
		return services.Wrap(services.ErrValidation, "render", "load manifest",
			"extraction manifest missing or unreadable", err)
	}
	outcomes, err := tts.LoadOutcomes(filepath.Join(layout.Audio, "outcomes.json"))
	if err != nil || len(outcomes) == 0 {
		return services.Wrap(services.ErrValidation, "render", "load outcomes",
			"synthesis outcomes missing, synthesize must run first", err)
	}
	audioByIndex := make(map[int]string, len(outcomes))
	for _, outcome := range outcomes {
		audioByIndex[outcome.SlideIndex] = outcome.Path
	}
	if err := layout.Ensure(); err != nil {
		return err
	}

	tasks, clips, err := h.buildTasks(manifest, layout, audioByIndex)
	if err != nil {
		return err
	}
	total := len(manifest.Slides)
	skipped := total - len(tasks)
	if skipped > 0 {
		logger.Info("resuming render", logging.Int("already_done", skipped), logging.Int("remaining", len(tasks)))
	}

	controlErr, renderErr := h.runPool(ctx, job, tasks, skipped, total, logger)

	sort.Strings(clips)
	h.setArtifacts(clips)
	job.ClipsDir = layout.Clips

	if controlErr != nil {
		return controlErr
	}
	if renderErr != nil {
		return renderErr
	}

	job.ProgressPercent = 100
	job.ProgressMessage = fmt.Sprintf("Rendered %d clips", total)
	if h.notifier != nil {
		if err := h.notifier.NotifyRenderComplete(ctx, job.Title); err != nil {
			logger.Warn("render notification failed", logging.Error(err))
		}
	}
	logger.Info("render complete", logging.Int("clips", total))
	return nil
}

// HealthCheck reports readiness based on the media client being configured.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.media == nil {
		return stage.Unhealthy("render", "ffmpeg client not configured")
	}
	return stage.Healthy("render")
}

// Artifacts returns the clip paths produced by the last Execute call.
func (h *Handler) Artifacts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.artifacts...)
}

func (h *Handler) setArtifacts(paths []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.artifacts = paths
}

func (h *Handler) buildTasks(
	manifest deck.Manifest,
	layout queue.StagingLayout,
	audioByIndex map[int]string,
) ([]clipTask, []string, error) {
	tasks := make([]clipTask, 0, len(manifest.Slides))
	clips := make([]string, 0, len(manifest.Slides))
	for _, slide := range manifest.Slides {
		outputPath := filepath.Join(layout.Clips, fmt.Sprintf("clip_%03d.mp4", slide.Index))
		clips = append(clips, outputPath)
		if _, err := os.Stat(outputPath); err == nil {
			continue
		}
		audioPath, ok := audioByIndex[slide.Index]
		if !ok {
			return nil, nil, services.Wrap(services.ErrValidation, "render", "match audio",
				fmt.Sprintf("no synthesis outcome for slide %d", slide.Index), nil)
		}
		tasks = append(tasks, clipTask{
			index:      slide.Index,
			imagePath:  filepath.Join(layout.Root, slide.ImageFile),
			audioPath:  audioPath,
			outputPath: outputPath,
		})
	}
	return tasks, clips, nil
}

// runPool renders tasks with bounded workers. The first render error stops
// further dispatch; in-flight clips are allowed to finish so their files stay
// usable for a retry.
func (h *Handler) runPool(
	ctx context.Context,
	job *queue.Job,
	tasks []clipTask,
	skipped, total int,
	logger *slog.Logger,
) (controlErr, renderErr error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	workers := h.cfg.Workflow.UnitWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskCh := make(chan clipTask)
	resultCh := make(chan clipResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				err := h.media.RenderClip(ctx, ffmpeg.RenderSpec{
					ImagePath:  task.imagePath,
					AudioPath:  task.audioPath,
					OutputPath: task.outputPath,
					Width:      h.cfg.Video.Width,
					Height:     h.cfg.Video.Height,
					FPS:        h.cfg.Video.FPS,
					Bitrate:    h.cfg.Video.Bitrate,
					Preset:     h.cfg.Video.Preset,
				})
				resultCh <- clipResult{index: task.index, path: task.outputPath, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	failed := make(chan struct{})
	var failOnce sync.Once
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		defer close(taskCh)
		for _, task := range tasks {
			if err := stage.CheckControl(ctx, h.store, job); err != nil {
				controlErr = err
				return
			}
			select {
			case taskCh <- task:
			case <-failed:
				return
			case <-ctx.Done():
				controlErr = ctx.Err()
				return
			}
		}
	}()

	completed := 0
	for result := range resultCh {
		if result.err != nil {
			failOnce.Do(func() { close(failed) })
			if renderErr == nil {
				renderErr = result.err
			}
			logger.Error("clip render failed",
				logging.Int("slide", result.index),
				logging.Error(result.err),
			)
			continue
		}
		completed++
		logger.Info("clip rendered", logging.Int("slide", result.index))
		job.ProgressPercent = float64(skipped+completed) / float64(total) * 100
		job.ProgressMessage = fmt.Sprintf("Rendered clip %d of %d", skipped+completed, total)
		if err := h.store.Update(ctx, job); err != nil {
			logger.Warn("progress update failed", logging.Error(err))
		}
	}
	<-producerDone
	return controlErr, renderErr
}
