package queue_test

import (
	"testing"
	"time"

	"slidecast/internal/queue"
)

func TestAppendStageResultNumbersAttempts(t *testing.T) {
	job := &queue.Job{}
	first := queue.StageResult{Stage: "synthesize", Status: queue.StageFailed, StartedAt: time.Now()}
	if err := job.AppendStageResult(first); err != nil {
		t.Fatalf("AppendStageResult: %v", err)
	}
	second := queue.StageResult{Stage: "synthesize", Status: queue.StageSucceeded, StartedAt: time.Now()}
	if err := job.AppendStageResult(second); err != nil {
		t.Fatalf("AppendStageResult: %v", err)
	}

	latest, ok := job.LatestStageResult("synthesize")
	if !ok {
		t.Fatal("expected latest result")
	}
	if latest.Attempt != 2 || latest.Status != queue.StageSucceeded {
		t.Fatalf("latest = %+v", latest)
	}

	results, err := job.StageResults()
	if err != nil {
		t.Fatalf("StageResults: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("history length = %d, want 2", len(results))
	}
}

func TestStageSucceededOrSkipped(t *testing.T) {
	job := &queue.Job{}
	if job.StageSucceededOrSkipped("extract") {
		t.Fatal("empty history should not report success")
	}

	_ = job.AppendStageResult(queue.StageResult{Stage: "extract", Status: queue.StageSucceeded})
	if !job.StageSucceededOrSkipped("extract") {
		t.Fatal("expected success")
	}

	_ = job.AppendStageResult(queue.StageResult{Stage: "extract", Status: queue.StageFailed})
	if job.StageSucceededOrSkipped("extract") {
		t.Fatal("latest attempt failed; stage should not be skippable")
	}

	_ = job.AppendStageResult(queue.StageResult{Stage: "subtitle", Status: queue.StageSkipped})
	if !job.StageSucceededOrSkipped("subtitle") {
		t.Fatal("skipped stage should count")
	}
}

func TestRollbackStatusTable(t *testing.T) {
	cases := map[queue.Status]queue.Status{
		queue.StatusExtracting:   queue.StatusPending,
		queue.StatusSynthesizing: queue.StatusExtracted,
		queue.StatusRendering:    queue.StatusSynthesized,
		queue.StatusSubtitling:   queue.StatusRendered,
		queue.StatusMerging:      queue.StatusSubtitled,
	}
	for from, want := range cases {
		got, ok := queue.RollbackStatus(from)
		if !ok || got != want {
			t.Errorf("RollbackStatus(%s) = %s/%v, want %s", from, got, ok, want)
		}
	}
	if _, ok := queue.RollbackStatus(queue.StatusPending); ok {
		t.Error("pending has no rollback")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := queue.ParseStatus(" Synthesizing "); !ok || status != queue.StatusSynthesizing {
		t.Fatalf("ParseStatus = %s/%v", status, ok)
	}
	if _, ok := queue.ParseStatus("bogus"); ok {
		t.Fatal("bogus status should not parse")
	}
}
