package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusExtracting   Status = "extracting"
	StatusExtracted    Status = "extracted"
	StatusSynthesizing Status = "synthesizing"
	StatusSynthesized  Status = "synthesized"
	StatusRendering    Status = "rendering"
	StatusRendered     Status = "rendered"
	StatusSubtitling   Status = "subtitling"
	StatusSubtitled    Status = "subtitled"
	StatusMerging      Status = "merging"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusPaused       Status = "paused"
)

// UserStopReason is the failure reason recorded when a user cancels a job.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the failure reason recorded when jobs are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// Control requests observed by the workflow manager at stage and unit
// boundaries.
const (
	ControlNone   = ""
	ControlPause  = "pause"
	ControlCancel = "cancel"
)

var allStatuses = []Status{
	StatusPending,
	StatusExtracting,
	StatusExtracted,
	StatusSynthesizing,
	StatusSynthesized,
	StatusRendering,
	StatusRendered,
	StatusSubtitling,
	StatusSubtitled,
	StatusMerging,
	StatusCompleted,
	StatusFailed,
	StatusPaused,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusExtracting:   {},
	StatusSynthesizing: {},
	StatusRendering:    {},
	StatusSubtitling:   {},
	StatusMerging:      {},
}

type statusTransition struct {
	from Status
	to   Status
}

// stageRollbackTransitions map each processing status back to the status a job
// must re-enter the stage from after a pause, crash, or stale heartbeat.
var stageRollbackTransitions = []statusTransition{
	{from: StatusExtracting, to: StatusPending},
	{from: StatusSynthesizing, to: StatusExtracted},
	{from: StatusRendering, to: StatusSynthesized},
	{from: StatusSubtitling, to: StatusRendered},
	{from: StatusMerging, to: StatusSubtitled},
}

// RollbackStatus returns the stage re-entry status for a processing status.
func RollbackStatus(processing Status) (Status, bool) {
	for _, transition := range stageRollbackTransitions {
		if transition.from == processing {
			return transition.to, true
		}
	}
	return "", false
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Paused     int
	Failed     int
	Completed  int
}

// Job represents a narration job persisted in SQLite.
type Job struct {
	ID               int64
	SourcePath       string
	Title            string
	Status           Status
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ProgressStage    string
	ProgressPercent  float64
	ProgressMessage  string
	VoiceParamsJSON  string
	StageResultsJSON string
	ScriptDir        string
	SlidesDir        string
	AudioDir         string
	ClipsDir         string
	SubtitleFile     string
	FinalFile        string
	SlideCount       int
	LastHeartbeat    *time.Time
	ControlRequest   string
	ResumeStatus     Status
	ReviewReason     string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ProcessingStatuses returns the statuses that reflect in-flight stage work.
func ProcessingStatuses() []Status {
	out := make([]Status, 0, len(stageRollbackTransitions))
	for _, transition := range stageRollbackTransitions {
		out = append(out, transition.from)
	}
	return out
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a job can no longer change state.
func (j Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// VoiceParams carries per-job narration overrides supplied at submit time.
// Empty fields fall back to the configured defaults.
type VoiceParams struct {
	Engine   string `json:"engine,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
	Rate     string `json:"rate,omitempty"`
	Pitch    string `json:"pitch,omitempty"`
}

// VoiceParams decodes the job's narration overrides.
func (j *Job) VoiceParams() (VoiceParams, error) {
	if j == nil || strings.TrimSpace(j.VoiceParamsJSON) == "" {
		return VoiceParams{}, nil
	}
	var params VoiceParams
	if err := json.Unmarshal([]byte(j.VoiceParamsJSON), &params); err != nil {
		return VoiceParams{}, fmt.Errorf("decode voice params: %w", err)
	}
	return params, nil
}

// SetProgress updates all three progress fields atomically.
func (j *Job) SetProgress(stage, message string, percent float64) {
	j.ProgressStage = stage
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (j *Job) SetProgressComplete(stage, message string) {
	j.SetProgress(stage, message, 100)
}

// SetFailed marks the job as failed with the given error message. The resume
// status records where a retry should re-enter the pipeline.
func (j *Job) SetFailed(message string) {
	if rollback, ok := RollbackStatus(j.Status); ok {
		j.ResumeStatus = rollback
	}
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.ProgressPercent = 0
	j.ProgressMessage = message
	j.LastHeartbeat = nil
	j.ProgressStage = "Failed"
}
