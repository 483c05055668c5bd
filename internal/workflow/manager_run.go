package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/stageexec"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workerCount + 1)
	m.mu.Unlock()

	go m.runReclaimer(runCtx)
	for i := 0; i < m.workerCount; i++ {
		go m.runWorker(runCtx, i)
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(
		logging.String("component", "workflow"),
		logging.Int("worker", index),
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		stg, job, err := m.claimNext(ctx)
		if err != nil {
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.waitForJobOrShutdown(ctx)
			continue
		}

		if err := m.processJob(ctx, logger, stg, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// claimNext walks the stage table in pipeline order and atomically claims the
// first job ready for any stage. Claiming moves the job to the stage's
// processing status so concurrent workers never pick up the same job.
func (m *Manager) claimNext(ctx context.Context) (pipelineStage, *queue.Job, error) {
	m.mu.RLock()
	stages := m.stages
	m.mu.RUnlock()

	for _, stg := range stages {
		job, err := m.store.ClaimNext(ctx, stg.processingStatus, stg.startStatus)
		if err != nil {
			return pipelineStage{}, nil, err
		}
		if job != nil {
			return stg, job, nil
		}
	}
	return pipelineStage{}, nil, nil
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	m.setLastError(err)
	logger.Error("failed to claim next queue job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_claim_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// processJob runs one stage against a claimed job with a heartbeat loop
// keeping the claim fresh for the whole attempt.
func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	err := stageexec.Run(ctx, stageexec.Options{
		Logger:           logger,
		Store:            m.store,
		Notifier:         m.notifier,
		Handler:          stg.handler,
		StageName:        stg.name,
		Processing:       stg.processingStatus,
		Done:             stg.doneStatus,
		Job:              job,
		Timeout:          m.stageTimeout,
		TransientRetries: 1,
	})

	hbCancel()
	hbWG.Wait()

	m.setLastJob(job)
	if err != nil {
		m.setLastError(fmt.Errorf("%s stage: %w", stg.name, err))
	}
	return err
}

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String("component", "workflow-reclaim"))

	interval := m.pollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.heartbeat.ReclaimStaleJobs(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale processing failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
