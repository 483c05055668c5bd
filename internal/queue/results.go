package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// StageStatus is the outcome of a single stage attempt.
type StageStatus string

const (
	StageNotStarted StageStatus = "not_started"
	StageRunning    StageStatus = "running"
	StageSucceeded  StageStatus = "succeeded"
	StageFailed     StageStatus = "failed"
	StageSkipped    StageStatus = "skipped"
)

// StageResult records one attempt of one stage. The job keeps the full
// append-only history in StageResultsJSON; the newest entry per stage wins.
type StageResult struct {
	Stage      string      `json:"stage"`
	Status     StageStatus `json:"status"`
	Attempt    int         `json:"attempt"`
	Error      string      `json:"error,omitempty"`
	Artifacts  []string    `json:"artifacts,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
}

// StageResults decodes the job's stage attempt history.
func (j *Job) StageResults() ([]StageResult, error) {
	if j == nil || j.StageResultsJSON == "" {
		return nil, nil
	}
	var results []StageResult
	if err := json.Unmarshal([]byte(j.StageResultsJSON), &results); err != nil {
		return nil, fmt.Errorf("decode stage results: %w", err)
	}
	return results, nil
}

// AppendStageResult appends a new attempt record to the history.
func (j *Job) AppendStageResult(result StageResult) error {
	results, err := j.StageResults()
	if err != nil {
		return err
	}
	if result.Attempt == 0 {
		result.Attempt = 1
		for _, existing := range results {
			if existing.Stage == result.Stage && existing.Attempt >= result.Attempt {
				result.Attempt = existing.Attempt + 1
			}
		}
	}
	results = append(results, result)
	encoded, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode stage results: %w", err)
	}
	j.StageResultsJSON = string(encoded)
	return nil
}

// LatestStageResult returns the most recent attempt for a stage.
func (j *Job) LatestStageResult(stage string) (StageResult, bool) {
	results, err := j.StageResults()
	if err != nil {
		return StageResult{}, false
	}
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Stage == stage {
			return results[i], true
		}
	}
	return StageResult{}, false
}

// StageSucceededOrSkipped reports whether the latest attempt for a stage ended
// in success or an intentional skip, which lets resume jump past it.
func (j *Job) StageSucceededOrSkipped(stage string) bool {
	result, ok := j.LatestStageResult(stage)
	if !ok {
		return false
	}
	return result.Status == StageSucceeded || result.Status == StageSkipped
}
