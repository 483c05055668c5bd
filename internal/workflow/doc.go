// Package workflow advances queue jobs through the processing pipeline.
//
// The Manager runs a small pool of workers that atomically claim ready jobs
// and hand them to the registered stage handlers (extract, synthesize,
// render, subtitle, merge) via the stage executor. A reclaim loop returns
// jobs whose heartbeats have gone stale to their previous checkpoint so a
// crashed worker never strands work.
package workflow
