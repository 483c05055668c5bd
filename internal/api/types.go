package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobItem describes a narration job in a transport-friendly format.
type JobItem struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	SourcePath   string          `json:"sourcePath"`
	Status       string          `json:"status"`
	Progress     JobProgress     `json:"progress"`
	ErrorMessage string          `json:"errorMessage"`
	CreatedAt    string          `json:"createdAt,omitempty"`
	UpdatedAt    string          `json:"updatedAt,omitempty"`
	ScriptDir    string          `json:"scriptDir,omitempty"`
	SlidesDir    string          `json:"slidesDir,omitempty"`
	AudioDir     string          `json:"audioDir,omitempty"`
	ClipsDir     string          `json:"clipsDir,omitempty"`
	SubtitleFile string          `json:"subtitleFile,omitempty"`
	FinalFile    string          `json:"finalFile,omitempty"`
	SlideCount   int             `json:"slideCount"`
	ReviewReason string          `json:"reviewReason,omitempty"`
	VoiceParams  json.RawMessage `json:"voiceParams,omitempty"`
	StageResults json.RawMessage `json:"stageResults,omitempty"`
}

// JobProgress captures stage progress information for a job.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *JobItem       `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a labeled severity line for human-readable status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness counts.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// EngineStatus describes a speech engine's dispatch readiness.
type EngineStatus struct {
	Name               string `json:"name"`
	Priority           int    `json:"priority"`
	RequiresCredential bool   `json:"requiresCredential"`
	CredentialPresent  bool   `json:"credentialPresent"`
	Enabled            bool   `json:"enabled"`
	Detail             string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	LogPath      string             `json:"logPath,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Engines      []EngineStatus     `json:"engines,omitempty"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Items []JobItem `json:"items"`
}

// JobItemResponse wraps a single job.
type JobItemResponse struct {
	Item JobItem `json:"item"`
}
