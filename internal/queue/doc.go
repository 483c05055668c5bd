// Package queue persists narration jobs in SQLite and provides the status
// transitions the workflow manager relies on: atomic claims, heartbeats,
// pause/cancel control requests, stale reclaim, and retry.
package queue
