package ipc

import "slidecast/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// JobItem mirrors the HTTP API job DTO for internal IPC callers.
type JobItem = api.JobItem

// StageHealth describes readiness of a workflow stage.
type StageHealth = api.StageHealth

// DependencyStatus describes availability of an external dependency.
type DependencyStatus = api.DependencyStatus

// EngineStatus describes a speech engine's dispatch readiness.
type EngineStatus = api.EngineStatus

// StatusLine is a labeled severity line for status rendering.
type StatusLine = api.StatusLine

// DependencySummary aggregates dependency readiness counts.
type DependencySummary = api.DependencySummary

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	QueueStats   map[string]int     `json:"queue_stats"`
	LastError    string             `json:"last_error"`
	LastJob      *JobItem           `json:"last_job"`
	LockPath     string             `json:"lock_path"`
	QueueDBPath  string             `json:"queue_db_path"`
	StageHealth  []StageHealth      `json:"stage_health"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Engines      []EngineStatus     `json:"engines"`
	PID          int                `json:"pid"`

	// Populated client-side when building offline-capable status snapshots.
	SystemChecks      []StatusLine      `json:"system_checks,omitempty"`
	DependencySummary DependencySummary `json:"dependency_summary,omitempty"`
}

// SubmitRequest enqueues a presentation deck for narration.
type SubmitRequest struct {
	Path     string `json:"path"`
	Engine   string `json:"engine"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
	Rate     string `json:"rate"`
	Pitch    string `json:"pitch"`
}

// SubmitResponse contains the queued job.
type SubmitResponse struct {
	Item JobItem `json:"item"`
}

// JobListRequest filters job listing by status.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
}

// JobListResponse contains queue entries.
type JobListResponse struct {
	Items []JobItem `json:"items"`
}

// JobDescribeRequest fetches a single job by id.
type JobDescribeRequest struct {
	ID int64 `json:"id"`
}

// JobDescribeResponse contains a single job entry.
type JobDescribeResponse struct {
	Item JobItem `json:"item"`
}

// JobPauseRequest pauses a job at the next safe boundary.
type JobPauseRequest struct {
	ID int64 `json:"id"`
}

// JobPauseResponse reports whether the pause was accepted.
type JobPauseResponse struct {
	Paused bool `json:"paused"`
}

// JobResumeRequest resumes paused jobs. Empty list means all paused jobs.
type JobResumeRequest struct {
	IDs []int64 `json:"ids"`
}

// JobResumeResponse reports number of resumed jobs.
type JobResumeResponse struct {
	Updated int64 `json:"updated"`
}

// JobCancelRequest cancels a job.
type JobCancelRequest struct {
	ID int64 `json:"id"`
}

// JobCancelResponse reports whether the cancel was accepted.
type JobCancelResponse struct {
	Canceled bool `json:"canceled"`
}

// QueueRetryRequest retries failed jobs. Empty list means all failed jobs.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of retried jobs.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueClearRequest removes all jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed jobs.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearCompletedRequest removes completed jobs.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Paused     int `json:"paused"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
}
