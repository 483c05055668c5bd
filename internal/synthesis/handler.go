// Package synthesis implements the synthesize stage. It turns the extracted
// narration scripts into per-slide audio clips through the engine dispatcher,
// running a bounded worker pool and persisting one outcome per slide so an
// interrupted job resumes with only the missing units.
package synthesis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
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

// Dispatcher is the synthesis capability the stage depends on.
type Dispatcher interface {
	Synthesize(ctx context.Context, unit tts.SpeechUnit) tts.Outcome
}

// Handler synthesizes narration audio for every slide in the manifest.
type Handler struct {
	cfg        *config.Config
	store      *queue.Store
	logger     *slog.Logger
	dispatcher Dispatcher
	notifier   notifications.Service

	mu        sync.Mutex
	artifacts []string
}

// NewHandler constructs the synthesize stage with the configured engines.
func NewHandler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Handler {
	registry := tts.BuildRegistry(cfg, ffmpeg.NewCLI())
	dispatcher := tts.NewDispatcher(cfg, registry)
	return NewHandlerWithDependencies(cfg, store, logger, dispatcher, notifications.NewService(cfg))
}

// NewHandlerWithDependencies allows injecting collaborators (used in tests).
func NewHandlerWithDependencies(
	cfg *config.Config,
	store *queue.Store,
	logger *slog.Logger,
	dispatcher Dispatcher,
	notifier notifications.Service,
) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "synthesis"))
	}
	return &Handler{
		cfg:        cfg,
		store:      store,
		logger:     stageLogger,
		dispatcher: dispatcher,
		notifier:   notifier,
	}
}

// SetLogger installs the job-scoped logger supplied by the executor.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "synthesis"))
	}
}

func (h *Handler) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	if job.ProgressStage == "" {
		job.ProgressStage = "Synthesizing"
	}
	job.ProgressMessage = "Preparing speech synthesis"
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	logger.Info("starting synthesis preparation", logging.Int("slides", job.SlideCount))
	return nil
}

func (h *Handler) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, h.logger)
	layout := queue.LayoutFor(h.cfg, job.ID)

	manifest, err := deck.LoadManifest(layout.Manifest)
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "load manifest",
			"extraction manifest missing or unreadable", err)
	}
	if len(manifest.Slides) == 0 {
		return services.Wrap(services.ErrValidation, "synthesize", "load manifest", "manifest lists no slides", nil)
	}
	if err := layout.Ensure(); err != nil {
		return err
	}

	outcomesPath := filepath.Join(layout.Audio, "outcomes.json")
	existing, err := tts.LoadOutcomes(outcomesPath)
	if err != nil {
		logger.Warn("discarding unreadable outcome file", logging.Error(err))
		existing = nil
	}
	byIndex := make(map[int]tts.Outcome, len(manifest.Slides))
	for _, outcome := range existing {
		byIndex[outcome.SlideIndex] = outcome
	}

	params, err := job.VoiceParams()
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "voice params", "invalid voice parameters", err)
	}

	units, err := h.buildUnits(manifest, layout, params, byIndex)
	if err != nil {
		return err
	}
	total := len(manifest.Slides)
	skipped := total - len(units)
	if skipped > 0 {
		logger.Info("resuming synthesis", logging.Int("already_done", skipped), logging.Int("remaining", len(units)))
	}

	controlErr := h.runPool(ctx, job, units, byIndex, skipped, total, logger)

	outcomes := make([]tts.Outcome, 0, len(byIndex))
	for _, outcome := range byIndex {
		outcomes = append(outcomes, outcome)
	}
	if err := tts.SaveOutcomes(outcomesPath, outcomes); err != nil {
		return err
	}
	job.AudioDir = layout.Audio
	h.setArtifacts([]string{outcomesPath})

	if controlErr != nil {
		return controlErr
	}
	if len(byIndex) != total {
		return services.Wrap(services.ErrExternalTool, "synthesize", "dispatch",
			fmt.Sprintf("produced %d of %d outcomes", len(byIndex), total), nil)
	}
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			return services.Wrap(services.ErrExternalTool, "synthesize", "dispatch",
				fmt.Sprintf("slide %d: %s", outcome.SlideIndex, outcome.Error), nil)
		}
	}

	degraded := 0
	engineCounts := make(map[string]int)
	for _, outcome := range outcomes {
		if outcome.Degraded {
			degraded++
		}
		engineCounts[outcome.Engine]++
	}

	job.ProgressPercent = 100
	if degraded > 0 {
		job.ProgressMessage = fmt.Sprintf("Synthesized %d slides (%d silent)", total, degraded)
		if h.notifier != nil {
			if err := h.notifier.NotifyDegradedAudio(ctx, job.Title, degraded); err != nil {
				logger.Warn("degraded audio notification failed", logging.Error(err))
			}
		}
	} else {
		job.ProgressMessage = fmt.Sprintf("Synthesized %d slides", total)
	}
	if h.notifier != nil {
		if err := h.notifier.NotifySynthesisComplete(ctx, job.Title, topEngine(engineCounts)); err != nil {
			logger.Warn("synthesis notification failed", logging.Error(err))
		}
	}
	logger.Info("synthesis complete",
		logging.Int("slides", total),
		logging.Int("degraded", degraded),
		logging.String("primary_engine", topEngine(engineCounts)),
	)
	return nil
}

// HealthCheck reports readiness based on the dispatcher being configured.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.dispatcher == nil {
		return stage.Unhealthy("synthesize", "dispatcher not configured")
	}
	return stage.Healthy("synthesize")
}

// Artifacts returns the durable outputs of the last Execute call.
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

// runPool feeds units to a bounded worker pool. A pending pause or cancel
// stops feeding and the sentinel is returned once in-flight units finish, so
// the partial outcome map is persisted before the executor acts on it.
func (h *Handler) runPool(
	ctx context.Context,
	job *queue.Job,
	units []tts.SpeechUnit,
	byIndex map[int]tts.Outcome,
	skipped, total int,
	logger *slog.Logger,
) error {
	if len(units) == 0 {
		return nil
	}
	workers := h.cfg.Workflow.UnitWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(units) {
		workers = len(units)
	}

	unitCh := make(chan tts.SpeechUnit)
	resultCh := make(chan tts.Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range unitCh {
				resultCh <- h.dispatcher.Synthesize(ctx, unit)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var controlErr error
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		defer close(unitCh)
		for _, unit := range units {
			if err := stage.CheckControl(ctx, h.store, job); err != nil {
				controlErr = err
				return
			}
			select {
			case unitCh <- unit:
			case <-ctx.Done():
				controlErr = ctx.Err()
				return
			}
		}
	}()

	completed := 0
	for outcome := range resultCh {
		byIndex[outcome.SlideIndex] = outcome
		completed++
		logger.Info("speech unit synthesized",
			logging.Int("slide", outcome.SlideIndex),
			logging.String("engine", outcome.Engine),
			logging.Bool("degraded", outcome.Degraded),
			logging.Int("attempts", outcome.Attempts),
		)
		job.ProgressPercent = float64(skipped+completed) / float64(total) * 100
		job.ProgressMessage = fmt.Sprintf("Synthesized slide %d of %d", skipped+completed, total)
		if err := h.store.Update(ctx, job); err != nil {
			logger.Warn("progress update failed", logging.Error(err))
		}
	}
	<-producerDone
	return controlErr
}

func (h *Handler) buildUnits(
	manifest deck.Manifest,
	layout queue.StagingLayout,
	params queue.VoiceParams,
	byIndex map[int]tts.Outcome,
) ([]tts.SpeechUnit, error) {
	units := make([]tts.SpeechUnit, 0, len(manifest.Slides))
	for _, slide := range manifest.Slides {
		if existing, ok := byIndex[slide.Index]; ok && existing.Error == "" {
			if _, err := os.Stat(existing.Path); err == nil {
				continue
			}
			delete(byIndex, slide.Index)
		}
		scriptPath := filepath.Join(layout.Root, slide.ScriptFile)
		text, err := os.ReadFile(scriptPath)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "synthesize", "read script",
				fmt.Sprintf("script missing for slide %d", slide.Index), err)
		}
		units = append(units, tts.SpeechUnit{
			Index:      slide.Index,
			Text:       strings.TrimSpace(string(text)),
			Engine:     params.Engine,
			Language:   params.Language,
			Voice:      params.Voice,
			Rate:       params.Rate,
			Pitch:      params.Pitch,
			OutputPath: filepath.Join(layout.Audio, fmt.Sprintf("slide_%03d.wav", slide.Index)),
		})
	}
	return units, nil
}

func topEngine(counts map[string]int) string {
	best := ""
	bestCount := 0
	for name, count := range counts {
		if count > bestCount || (count == bestCount && name < best) {
			best = name
			bestCount = count
		}
	}
	return best
}
