package main

import (
	"context"
	"strings"

	"slidecast/internal/api"
	"slidecast/internal/ipc"
	"slidecast/internal/queue"
)

// jobsAPI abstracts queue operations so commands behave the same whether the
// daemon is running (IPC) or the CLI opens the store directly.
type jobsAPI interface {
	api.JobActionService

	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, statuses []string) ([]api.JobItem, error)
	ClearAll(ctx context.Context) (int64, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
	Health(ctx context.Context) (queue.HealthSummary, error)
	DatabaseHealth(ctx context.Context) (ipc.DatabaseHealthResponse, error)
}

// --- IPC adapter ---

type jobsIPCAdapter struct {
	client *ipc.Client
}

func (a *jobsIPCAdapter) Stats(_ context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *jobsIPCAdapter) List(_ context.Context, statuses []string) ([]api.JobItem, error) {
	resp, err := a.client.JobList(statuses)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *jobsIPCAdapter) Describe(_ context.Context, id int64) (*api.JobItem, error) {
	resp, err := a.client.JobDescribe(id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, nil
		}
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &resp.Item, nil
}

func (a *jobsIPCAdapter) Retry(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRetry(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *jobsIPCAdapter) Pause(_ context.Context, id int64) (bool, error) {
	resp, err := a.client.JobPause(id)
	if err != nil {
		return false, err
	}
	return resp.Paused, nil
}

func (a *jobsIPCAdapter) Resume(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.JobResume(ids)
	if err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (a *jobsIPCAdapter) Cancel(_ context.Context, id int64) (bool, error) {
	resp, err := a.client.JobCancel(id)
	if err != nil {
		return false, err
	}
	return resp.Canceled, nil
}

func (a *jobsIPCAdapter) ClearAll(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClear()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *jobsIPCAdapter) ClearCompleted(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearCompleted()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *jobsIPCAdapter) ClearFailed(_ context.Context) (int64, error) {
	resp, err := a.client.QueueClearFailed()
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (a *jobsIPCAdapter) Health(_ context.Context) (queue.HealthSummary, error) {
	resp, err := a.client.QueueHealth()
	if err != nil {
		return queue.HealthSummary{}, err
	}
	return queue.HealthSummary(*resp), nil
}

func (a *jobsIPCAdapter) DatabaseHealth(_ context.Context) (ipc.DatabaseHealthResponse, error) {
	resp, err := a.client.DatabaseHealth()
	if err != nil {
		return ipc.DatabaseHealthResponse{}, err
	}
	return *resp, nil
}

// --- Store adapter ---

type jobsStoreAdapter struct {
	store   *queue.Store
	service *api.QueueService
}

func newJobsStoreAdapter(store *queue.Store) *jobsStoreAdapter {
	return &jobsStoreAdapter{store: store, service: api.NewQueueService(store)}
}

func (a *jobsStoreAdapter) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *jobsStoreAdapter) List(ctx context.Context, statuses []string) ([]api.JobItem, error) {
	var filters []queue.Status
	for _, s := range statuses {
		if parsed, ok := queue.ParseStatus(s); ok {
			filters = append(filters, parsed)
		}
	}
	return a.service.List(ctx, filters...)
}

func (a *jobsStoreAdapter) Describe(ctx context.Context, id int64) (*api.JobItem, error) {
	return a.service.Describe(ctx, id)
}

func (a *jobsStoreAdapter) Retry(ctx context.Context, ids []int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

func (a *jobsStoreAdapter) Pause(ctx context.Context, id int64) (bool, error) {
	return a.store.RequestPause(ctx, id)
}

func (a *jobsStoreAdapter) Resume(ctx context.Context, ids []int64) (int64, error) {
	return a.store.ResumePaused(ctx, ids...)
}

func (a *jobsStoreAdapter) Cancel(ctx context.Context, id int64) (bool, error) {
	return a.store.RequestCancel(ctx, id)
}

func (a *jobsStoreAdapter) ClearAll(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

func (a *jobsStoreAdapter) ClearCompleted(ctx context.Context) (int64, error) {
	return a.store.ClearCompleted(ctx)
}

func (a *jobsStoreAdapter) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}

func (a *jobsStoreAdapter) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

func (a *jobsStoreAdapter) DatabaseHealth(ctx context.Context) (ipc.DatabaseHealthResponse, error) {
	health, err := a.store.CheckHealth(ctx)
	if err != nil {
		return ipc.DatabaseHealthResponse{}, err
	}
	return ipc.DatabaseHealthResponse(health), nil
}
