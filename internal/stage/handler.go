package stage

import (
	"context"
	"log/slog"

	"slidecast/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Job) error
	Execute(context.Context, *queue.Job) error
	HealthCheck(context.Context) Health
}

// LoggerAware lets the executor hand a stage a logger scoped to the current
// job and stage before Prepare runs.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}
