// Package stageexec runs a single workflow stage against a job and applies the
// queue transition semantics shared by the daemon manager and one-shot CLI
// commands.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"slidecast/internal/logging"
	"slidecast/internal/notifications"
	"slidecast/internal/queue"
	"slidecast/internal/services"
	"slidecast/internal/stage"
)

// Handler is the stage contract used by the execution helper.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
}

// ArtifactReporter lets a stage report the artifact paths it produced so the
// executor can record them in the job's stage history.
type ArtifactReporter interface {
	Artifacts() []string
}

// Options controls stage execution and queue persistence behavior.
type Options struct {
	Logger     *slog.Logger
	Store      *queue.Store
	Notifier   notifications.Service
	Handler    Handler
	StageName  string
	Processing queue.Status
	Done       queue.Status
	Job        *queue.Job

	// Timeout bounds a single Prepare+Execute attempt. Zero disables it.
	Timeout time.Duration
	// TransientRetries is the number of automatic whole-stage retries after a
	// transient failure. Validation and configuration failures never retry.
	TransientRetries int
}

// Run executes a stage, records the attempt in the job's stage history, and
// persists the resulting status transition. Pause and cancel requests surfaced
// by the handler become paused and failed transitions rather than errors.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return fmt.Errorf("queue store is required")
	}
	if opts.Job == nil {
		return fmt.Errorf("queue job is required")
	}

	stageCtx := services.WithJobID(logging.WithStage(ctx, opts.StageName), opts.Job.ID)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String("title", strings.TrimSpace(opts.Job.Title)),
		logging.String("source_file", strings.TrimSpace(opts.Job.SourcePath)),
	)

	setJobProcessingState(opts.Job, opts.Processing)
	if err := opts.Store.Update(stageCtx, opts.Job); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	maxAttempts := 1 + opts.TransientRetries
	var startedAt time.Time
	var attemptErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		startedAt = time.Now().UTC()
		attemptErr = runAttempt(stageCtx, opts)
		if attemptErr == nil {
			break
		}
		var perr persistError
		if errors.As(attemptErr, &perr) {
			return perr.err
		}
		if errors.Is(attemptErr, stage.ErrPauseRequested) || errors.Is(attemptErr, stage.ErrCancelRequested) {
			return handleFailure(stageCtx, stageLogger, opts, startedAt, attemptErr)
		}
		if !services.IsTransient(attemptErr) || attempt == maxAttempts {
			return handleFailure(stageCtx, stageLogger, opts, startedAt, attemptErr)
		}
		if err := opts.Job.AppendStageResult(queue.StageResult{
			Stage:      opts.StageName,
			Status:     queue.StageFailed,
			Error:      strings.TrimSpace(services.Details(attemptErr).Message),
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		}); err != nil {
			stageLogger.Error("failed to record retry attempt", logging.Error(err))
		}
		stageLogger.Warn(
			"stage attempt failed, retrying",
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.Int("attempt", attempt),
			logging.Error(attemptErr),
		)
	}

	result := queue.StageResult{
		Stage:      opts.StageName,
		Status:     queue.StageSucceeded,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if reporter, ok := opts.Handler.(ArtifactReporter); ok {
		result.Artifacts = reporter.Artifacts()
	}
	if err := opts.Job.AppendStageResult(result); err != nil {
		return fmt.Errorf("record stage result: %w", err)
	}

	if opts.Job.Status == opts.Processing || opts.Job.Status == "" {
		opts.Job.Status = opts.Done
	}
	if opts.Job.Status == queue.StatusCompleted {
		opts.Job.ProgressStage = "Completed"
		if opts.Job.ProgressPercent < 100 {
			opts.Job.ProgressPercent = 100
		}
	}
	opts.Job.LastHeartbeat = nil
	if err := opts.Store.Update(stageCtx, opts.Job); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(opts.Job.Status)),
		logging.String("progress_stage", strings.TrimSpace(opts.Job.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(opts.Job.ProgressMessage)),
	)

	return nil
}

// persistError marks store write failures so they surface to the caller as
// process-level errors instead of being folded into the job record.
type persistError struct {
	err error
}

func (p persistError) Error() string { return p.err.Error() }
func (p persistError) Unwrap() error { return p.err }

func runAttempt(ctx context.Context, opts Options) error {
	attemptCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if err := opts.Handler.Prepare(attemptCtx, opts.Job); err != nil {
		return classifyAttemptErr(attemptCtx, opts.StageName, err)
	}
	if err := opts.Store.Update(ctx, opts.Job); err != nil {
		return persistError{err: fmt.Errorf("persist stage preparation: %w", err)}
	}
	if err := opts.Handler.Execute(attemptCtx, opts.Job); err != nil {
		return classifyAttemptErr(attemptCtx, opts.StageName, err)
	}
	return nil
}

func classifyAttemptErr(ctx context.Context, stageName string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, "execute", "stage timed out", err)
	}
	return err
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, startedAt time.Time, stageErr error) error {
	job := opts.Job

	if errors.Is(stageErr, stage.ErrPauseRequested) {
		if rollback, ok := queue.RollbackStatus(job.Status); ok {
			job.ResumeStatus = rollback
		}
		job.Status = queue.StatusPaused
		job.ControlRequest = queue.ControlNone
		job.ProgressMessage = "Paused"
		job.LastHeartbeat = nil
		// The interrupted attempt stays visible as running; any partial unit
		// outcomes the stage persisted are picked up on resume.
		if err := job.AppendStageResult(queue.StageResult{
			Stage:     opts.StageName,
			Status:    queue.StageRunning,
			StartedAt: startedAt,
		}); err != nil {
			logger.Error("failed to record paused attempt", logging.Error(err))
		}
		if err := opts.Store.Update(ctx, job); err != nil {
			logger.Error("failed to persist pause transition", logging.Error(err))
			return err
		}
		logger.Info(
			"stage paused",
			logging.String(logging.FieldEventType, "stage_paused"),
			logging.String("resume_status", string(job.ResumeStatus)),
		)
		return nil
	}

	if errors.Is(stageErr, stage.ErrCancelRequested) {
		job.ControlRequest = queue.ControlNone
		job.ReviewReason = queue.UserStopReason
		if err := job.AppendStageResult(queue.StageResult{
			Stage:      opts.StageName,
			Status:     queue.StageFailed,
			Error:      queue.UserStopReason,
			StartedAt:  startedAt,
			FinishedAt: time.Now().UTC(),
		}); err != nil {
			logger.Error("failed to record cancel result", logging.Error(err))
		}
		job.SetFailed(queue.UserStopReason)
		if err := opts.Store.Update(ctx, job); err != nil {
			logger.Error("failed to persist cancel transition", logging.Error(err))
			return err
		}
		logger.Info(
			"stage cancelled",
			logging.String(logging.FieldEventType, "stage_cancelled"),
		)
		return nil
	}

	message := "stage failed"
	if stageErr != nil {
		details := services.Details(stageErr)
		message = strings.TrimSpace(details.Message)
		if message == "" {
			message = strings.TrimSpace(stageErr.Error())
		}
	}
	if err := job.AppendStageResult(queue.StageResult{
		Stage:      opts.StageName,
		Status:     queue.StageFailed,
		Error:      message,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
	}); err != nil {
		logger.Error("failed to record failure result", logging.Error(err))
	}
	job.SetFailed(message)

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Error(stageErr),
	)
	if err := opts.Store.Update(ctx, job); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil && stageErr != nil {
		contextLabel := fmt.Sprintf("%s (job #%d)", opts.StageName, job.ID)
		if err := opts.Notifier.NotifyError(ctx, stageErr, contextLabel); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}

	return stageErr
}

func setJobProcessingState(job *queue.Job, processing queue.Status) {
	now := time.Now().UTC()
	job.Status = processing
	if job.ProgressStage == "" {
		job.ProgressStage = deriveStageLabel(processing)
	}
	if job.ProgressMessage == "" {
		job.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	}
	job.ProgressPercent = 0
	job.ErrorMessage = ""
	job.LastHeartbeat = &now
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
