package api

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"slidecast/internal/queue"
	"slidecast/internal/stage"
	"slidecast/internal/tts"
	"slidecast/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) JobItem {
	if job == nil {
		return JobItem{}
	}

	dto := JobItem{
		ID:         job.ID,
		Title:      job.Title,
		SourcePath: job.SourcePath,
		Status:     string(job.Status),
		Progress: JobProgress{
			Stage:   job.ProgressStage,
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage: job.ErrorMessage,
		ScriptDir:    job.ScriptDir,
		SlidesDir:    job.SlidesDir,
		AudioDir:     job.AudioDir,
		ClipsDir:     job.ClipsDir,
		SubtitleFile: job.SubtitleFile,
		FinalFile:    job.FinalFile,
		SlideCount:   job.SlideCount,
		ReviewReason: job.ReviewReason,
	}

	if !job.CreatedAt.IsZero() {
		dto.CreatedAt = job.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !job.UpdatedAt.IsZero() {
		dto.UpdatedAt = job.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if raw := strings.TrimSpace(job.VoiceParamsJSON); raw != "" {
		dto.VoiceParams = json.RawMessage(raw)
	}
	if raw := strings.TrimSpace(job.StageResultsJSON); raw != "" {
		dto.StageResults = json.RawMessage(raw)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []JobItem {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]JobItem, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}

	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromEngineDescriptors converts registry descriptors into API DTOs.
func FromEngineDescriptors(descriptors []tts.EngineDescriptor) []EngineStatus {
	if len(descriptors) == 0 {
		return nil
	}
	out := make([]EngineStatus, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, EngineStatus{
			Name:               d.Name,
			Priority:           d.Priority,
			RequiresCredential: d.RequiresCredential,
			CredentialPresent:  d.CredentialPresent,
			Enabled:            d.Enabled,
			Detail:             d.Detail,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
