package api

import (
	"context"
	"errors"
	"testing"
)

type jobActionStub struct {
	jobs map[int64]*JobItem
}

func (s *jobActionStub) Describe(_ context.Context, id int64) (*JobItem, error) {
	if job, ok := s.jobs[id]; ok {
		return job, nil
	}
	return nil, nil
}

func (s *jobActionStub) Retry(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	return 1, nil
}

func (s *jobActionStub) Pause(context.Context, int64) (bool, error) {
	return true, nil
}

func (s *jobActionStub) Resume(_ context.Context, ids []int64) (int64, error) {
	if len(ids) != 1 {
		return 0, errors.New("expected one id")
	}
	return 1, nil
}

func (s *jobActionStub) Cancel(context.Context, int64) (bool, error) {
	return true, nil
}

func TestRetryFailedJobsByID(t *testing.T) {
	stub := &jobActionStub{jobs: map[int64]*JobItem{
		1: {ID: 1, Status: "failed"},
		2: {ID: 2, Status: "pending"},
	}}

	result, err := RetryFailedJobsByID(context.Background(), stub, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("RetryFailedJobsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if result.Items[0].Outcome != RetryJobUpdated {
		t.Fatalf("job 1 outcome = %s, want %s", result.Items[0].Outcome, RetryJobUpdated)
	}
	if result.Items[1].Outcome != RetryJobNotFailed {
		t.Fatalf("job 2 outcome = %s, want %s", result.Items[1].Outcome, RetryJobNotFailed)
	}
	if result.Items[2].Outcome != RetryJobNotFound {
		t.Fatalf("job 3 outcome = %s, want %s", result.Items[2].Outcome, RetryJobNotFound)
	}
}

func TestPauseJobsByID(t *testing.T) {
	stub := &jobActionStub{jobs: map[int64]*JobItem{
		1: {ID: 1, Status: "rendering"},
		2: {ID: 2, Status: "paused"},
		3: {ID: 3, Status: "completed"},
	}}

	result, err := PauseJobsByID(context.Background(), stub, []int64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("PauseJobsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if result.Items[0].Outcome != PauseJobUpdated || result.Items[0].PriorStatus != "rendering" {
		t.Fatalf("job 1 = %+v", result.Items[0])
	}
	if result.Items[1].Outcome != PauseJobAlreadyPaused {
		t.Fatalf("job 2 outcome = %s", result.Items[1].Outcome)
	}
	if result.Items[2].Outcome != PauseJobTerminal {
		t.Fatalf("job 3 outcome = %s", result.Items[2].Outcome)
	}
	if result.Items[3].Outcome != PauseJobNotFound {
		t.Fatalf("job 4 outcome = %s", result.Items[3].Outcome)
	}
}

func TestResumeJobsByID(t *testing.T) {
	stub := &jobActionStub{jobs: map[int64]*JobItem{
		1: {ID: 1, Status: "paused"},
		2: {ID: 2, Status: "pending"},
	}}

	result, err := ResumeJobsByID(context.Background(), stub, []int64{1, 2})
	if err != nil {
		t.Fatalf("ResumeJobsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if result.Items[0].Outcome != ResumeJobUpdated {
		t.Fatalf("job 1 outcome = %s", result.Items[0].Outcome)
	}
	if result.Items[1].Outcome != ResumeJobNotPaused {
		t.Fatalf("job 2 outcome = %s", result.Items[1].Outcome)
	}
}

func TestCancelJobsByID(t *testing.T) {
	stub := &jobActionStub{jobs: map[int64]*JobItem{
		1: {ID: 1, Status: "synthesizing"},
		2: {ID: 2, Status: "completed"},
		3: {ID: 3, Status: "failed"},
	}}

	result, err := CancelJobsByID(context.Background(), stub, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("CancelJobsByID: %v", err)
	}
	if result.UpdatedCount != 1 {
		t.Fatalf("UpdatedCount = %d, want 1", result.UpdatedCount)
	}
	if result.Items[0].Outcome != CancelJobUpdated || result.Items[0].PriorStatus != "synthesizing" {
		t.Fatalf("job 1 = %+v", result.Items[0])
	}
	if result.Items[1].Outcome != CancelJobAlreadyCompleted {
		t.Fatalf("job 2 outcome = %s", result.Items[1].Outcome)
	}
	if result.Items[2].Outcome != CancelJobAlreadyFailed {
		t.Fatalf("job 3 outcome = %s", result.Items[2].Outcome)
	}
}
