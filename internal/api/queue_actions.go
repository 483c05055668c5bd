package api

import (
	"context"

	"slidecast/internal/queue"
)

// JobActionService captures queue operations needed by per-job control workflows.
type JobActionService interface {
	Describe(ctx context.Context, id int64) (*JobItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Pause(ctx context.Context, id int64) (bool, error)
	Resume(ctx context.Context, ids []int64) (int64, error)
	Cancel(ctx context.Context, id int64) (bool, error)
}

type RetryJobOutcome string

const (
	RetryJobUpdated   RetryJobOutcome = "retried"
	RetryJobNotFound  RetryJobOutcome = "not_found"
	RetryJobNotFailed RetryJobOutcome = "not_failed"
)

type RetryJobResult struct {
	ID      int64           `json:"id"`
	Outcome RetryJobOutcome `json:"outcome"`
}

type RetryJobsResult struct {
	UpdatedCount int64            `json:"updatedCount"`
	Items        []RetryJobResult `json:"items"`
}

type PauseJobOutcome string

const (
	PauseJobUpdated       PauseJobOutcome = "paused"
	PauseJobNotFound      PauseJobOutcome = "not_found"
	PauseJobAlreadyPaused PauseJobOutcome = "already_paused"
	PauseJobTerminal      PauseJobOutcome = "terminal"
)

type PauseJobResult struct {
	ID          int64           `json:"id"`
	Outcome     PauseJobOutcome `json:"outcome"`
	PriorStatus string          `json:"prior_status,omitempty"`
}

type PauseJobsResult struct {
	UpdatedCount int64            `json:"updatedCount"`
	Items        []PauseJobResult `json:"items"`
}

type ResumeJobOutcome string

const (
	ResumeJobUpdated   ResumeJobOutcome = "resumed"
	ResumeJobNotFound  ResumeJobOutcome = "not_found"
	ResumeJobNotPaused ResumeJobOutcome = "not_paused"
)

type ResumeJobResult struct {
	ID      int64            `json:"id"`
	Outcome ResumeJobOutcome `json:"outcome"`
}

type ResumeJobsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []ResumeJobResult `json:"items"`
}

type CancelJobOutcome string

const (
	CancelJobUpdated          CancelJobOutcome = "canceled"
	CancelJobNotFound         CancelJobOutcome = "not_found"
	CancelJobAlreadyCompleted CancelJobOutcome = "already_completed"
	CancelJobAlreadyFailed    CancelJobOutcome = "already_failed"
)

type CancelJobResult struct {
	ID          int64            `json:"id"`
	Outcome     CancelJobOutcome `json:"outcome"`
	PriorStatus string           `json:"prior_status,omitempty"`
}

type CancelJobsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []CancelJobResult `json:"items"`
}

// RetryFailedJobsByID validates IDs and retries only failed jobs.
func RetryFailedJobsByID(ctx context.Context, service JobActionService, ids []int64) (RetryJobsResult, error) {
	result := RetryJobsResult{Items: make([]RetryJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return RetryJobsResult{}, err
		}
		if job == nil {
			result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobNotFound})
			continue
		}
		status, ok := queue.ParseStatus(job.Status)
		if !ok || status != queue.StatusFailed {
			result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
			continue
		}
		updated, err := service.Retry(ctx, []int64{id})
		if err != nil {
			return RetryJobsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobUpdated})
			continue
		}
		result.Items = append(result.Items, RetryJobResult{ID: id, Outcome: RetryJobNotFailed})
	}
	return result, nil
}

// PauseJobsByID validates IDs and requests a pause for each eligible job.
func PauseJobsByID(ctx context.Context, service JobActionService, ids []int64) (PauseJobsResult, error) {
	result := PauseJobsResult{Items: make([]PauseJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return PauseJobsResult{}, err
		}
		if job == nil {
			result.Items = append(result.Items, PauseJobResult{ID: id, Outcome: PauseJobNotFound})
			continue
		}
		status := job.Status
		parsed, ok := queue.ParseStatus(status)
		if ok {
			switch parsed {
			case queue.StatusPaused:
				result.Items = append(result.Items, PauseJobResult{ID: id, Outcome: PauseJobAlreadyPaused, PriorStatus: status})
				continue
			case queue.StatusCompleted, queue.StatusFailed:
				result.Items = append(result.Items, PauseJobResult{ID: id, Outcome: PauseJobTerminal, PriorStatus: status})
				continue
			}
		}

		updated, err := service.Pause(ctx, id)
		if err != nil {
			return PauseJobsResult{}, err
		}
		if updated {
			result.UpdatedCount++
			result.Items = append(result.Items, PauseJobResult{ID: id, Outcome: PauseJobUpdated, PriorStatus: status})
			continue
		}
		result.Items = append(result.Items, PauseJobResult{ID: id, Outcome: PauseJobTerminal, PriorStatus: status})
	}
	return result, nil
}

// ResumeJobsByID validates IDs and resumes only paused jobs.
func ResumeJobsByID(ctx context.Context, service JobActionService, ids []int64) (ResumeJobsResult, error) {
	result := ResumeJobsResult{Items: make([]ResumeJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return ResumeJobsResult{}, err
		}
		if job == nil {
			result.Items = append(result.Items, ResumeJobResult{ID: id, Outcome: ResumeJobNotFound})
			continue
		}
		status, ok := queue.ParseStatus(job.Status)
		if !ok || status != queue.StatusPaused {
			result.Items = append(result.Items, ResumeJobResult{ID: id, Outcome: ResumeJobNotPaused})
			continue
		}
		updated, err := service.Resume(ctx, []int64{id})
		if err != nil {
			return ResumeJobsResult{}, err
		}
		if updated > 0 {
			result.UpdatedCount += updated
			result.Items = append(result.Items, ResumeJobResult{ID: id, Outcome: ResumeJobUpdated})
			continue
		}
		result.Items = append(result.Items, ResumeJobResult{ID: id, Outcome: ResumeJobNotPaused})
	}
	return result, nil
}

// CancelJobsByID validates IDs and cancels jobs unless already terminal.
func CancelJobsByID(ctx context.Context, service JobActionService, ids []int64) (CancelJobsResult, error) {
	result := CancelJobsResult{Items: make([]CancelJobResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if err != nil {
			return CancelJobsResult{}, err
		}
		if job == nil {
			result.Items = append(result.Items, CancelJobResult{ID: id, Outcome: CancelJobNotFound})
			continue
		}
		status := job.Status
		parsed, ok := queue.ParseStatus(status)
		if ok {
			switch parsed {
			case queue.StatusCompleted:
				result.Items = append(result.Items, CancelJobResult{ID: id, Outcome: CancelJobAlreadyCompleted, PriorStatus: status})
				continue
			case queue.StatusFailed:
				result.Items = append(result.Items, CancelJobResult{ID: id, Outcome: CancelJobAlreadyFailed, PriorStatus: status})
				continue
			}
		}

		updated, err := service.Cancel(ctx, id)
		if err != nil {
			return CancelJobsResult{}, err
		}
		if updated {
			result.UpdatedCount++
			result.Items = append(result.Items, CancelJobResult{ID: id, Outcome: CancelJobUpdated, PriorStatus: status})
			continue
		}
		result.Items = append(result.Items, CancelJobResult{ID: id, Outcome: CancelJobAlreadyFailed, PriorStatus: status})
	}
	return result, nil
}
