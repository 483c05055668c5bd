package stage

import (
	"context"
	"errors"

	"slidecast/internal/queue"
)

// ErrPauseRequested is returned by stage handlers when a pause control request
// is observed at a safe boundary. The executor converts it into the paused
// status instead of a failure.
var ErrPauseRequested = errors.New("pause requested")

// ErrCancelRequested is returned by stage handlers when a cancel control
// request is observed at a safe boundary.
var ErrCancelRequested = errors.New("cancel requested")

// CheckControl reloads the job's control request from the store and returns
// the matching sentinel error when a pause or cancel is pending. Stages call
// this between units of work.
func CheckControl(ctx context.Context, store *queue.Store, job *queue.Job) error {
	if store == nil || job == nil {
		return nil
	}
	current, err := store.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	switch current.ControlRequest {
	case queue.ControlPause:
		return ErrPauseRequested
	case queue.ControlCancel:
		return ErrCancelRequested
	}
	return nil
}
