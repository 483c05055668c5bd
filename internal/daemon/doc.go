// Package daemon coordinates the long-running Slidecast process and system
// integration points.
//
// It wires configuration, queue storage, the workflow manager, and the inbox
// watcher into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes queue maintenance helpers, manages deck
// submission, emits dependency and engine health summaries, and hosts the
// optional HTTP status API.
//
// Keep orchestration logic here: individual workflow stages should live in
// their respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
