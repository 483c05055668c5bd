package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/extraction"
	"slidecast/internal/merging"
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/rendering"
	"slidecast/internal/stage"
	"slidecast/internal/subtitling"
	"slidecast/internal/synthesis"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Extractor   stage.Handler
	Synthesizer stage.Handler
	Renderer    stage.Handler
	Subtitler   stage.Handler
	Merger      stage.Handler
}

// DefaultStageSet builds the production stage handlers.
func DefaultStageSet(cfg *config.Config, store *queue.Store, logger *slog.Logger) StageSet {
	return StageSet{
		Extractor:   extraction.NewHandler(cfg, store, logger),
		Synthesizer: synthesis.NewHandler(cfg, store, logger),
		Renderer:    rendering.NewHandler(cfg, store, logger),
		Subtitler:   subtitling.NewHandler(cfg, store, logger),
		Merger:      merging.NewHandler(cfg, store, logger),
	}
}

// pipelineStage maps one handler onto its queue status transitions.
type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates queue processing using the registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	stageTimeout time.Duration
	workerCount  int

	heartbeat *HeartbeatMonitor
	stages    []pipelineStage

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a workflow manager with the default stage handlers.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	manager := NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
	manager.ConfigureStages(DefaultStageSet(cfg, store, logger))
	return manager
}

// NewManagerWithNotifier constructs a workflow manager without stages, with a
// custom notifier. Callers must ConfigureStages before Start (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	workers := cfg.Workflow.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		stageTimeout: time.Duration(cfg.Workflow.StageTimeout) * time.Second,
		workerCount:  workers,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// ConfigureStages installs the pipeline stage table.
func (m *Manager) ConfigureStages(set StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = []pipelineStage{
		{
			name:             "extract",
			handler:          set.Extractor,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusExtracting,
			doneStatus:       queue.StatusExtracted,
		},
		{
			name:             "synthesize",
			handler:          set.Synthesizer,
			startStatus:      queue.StatusExtracted,
			processingStatus: queue.StatusSynthesizing,
			doneStatus:       queue.StatusSynthesized,
		},
		{
			name:             "render",
			handler:          set.Renderer,
			startStatus:      queue.StatusSynthesized,
			processingStatus: queue.StatusRendering,
			doneStatus:       queue.StatusRendered,
		},
		{
			name:             "subtitle",
			handler:          set.Subtitler,
			startStatus:      queue.StatusRendered,
			processingStatus: queue.StatusSubtitling,
			doneStatus:       queue.StatusSubtitled,
		},
		{
			name:             "merge",
			handler:          set.Merger,
			startStatus:      queue.StatusSubtitled,
			processingStatus: queue.StatusMerging,
			doneStatus:       queue.StatusCompleted,
		},
	}
}
