// Package api defines wire-format types and converters for the IPC and HTTP
// API layer. It translates internal queue models into transport-friendly DTOs
// so CLI and HTTP consumers never couple to internal types.
//
// # Key Types
//
// JobItem: transport representation of a narration job with progress,
// artifact paths, and voice parameter overrides.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last job.
//
// DaemonStatus: aggregated runtime information including dependencies.
//
// # Converters
//
// FromJob: queue.Job -> JobItem with timestamp formatting and raw JSON
// passthrough for voice params and stage results.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds. Voice params
// and stage results are passed through as json.RawMessage to avoid
// double-encoding.
package api
