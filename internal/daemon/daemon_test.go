package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"slidecast/internal/daemon"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/stage"
	"slidecast/internal/testsupport"
	"slidecast/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Job) error { return nil }
func (noopStage) Execute(context.Context, *queue.Job) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newTestDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, nil)
	mgr.ConfigureStages(workflow.StageSet{Extractor: noopStage{}})
	d, err := daemon.New(cfg, store, logger, mgr, filepath.Join(cfg.Paths.LogDir, "slidecast.log"), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newTestDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected error starting a running daemon")
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("PID = %d, want %d", status.PID, os.Getpid())
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
	if len(status.Engines) == 0 {
		t.Fatal("expected engine descriptors")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to report stopped")
	}
}

func TestDaemonSubmit(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	deckPath := filepath.Join(t.TempDir(), "quarterly.pptx")
	if err := os.WriteFile(deckPath, []byte("deck"), 0o644); err != nil {
		t.Fatal(err)
	}

	job, err := d.Submit(ctx, deckPath, queue.VoiceParams{Voice: "en-US-AriaNeural"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}

	stored, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	params, err := stored.VoiceParams()
	if err != nil {
		t.Fatalf("VoiceParams: %v", err)
	}
	if params.Voice != "en-US-AriaNeural" {
		t.Fatalf("voice = %q", params.Voice)
	}
}

func TestDaemonSubmitRejectsUnsupported(t *testing.T) {
	d, _ := newTestDaemon(t)
	ctx := context.Background()

	docPath := filepath.Join(t.TempDir(), "notes.docx")
	if err := os.WriteFile(docPath, []byte("doc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Submit(ctx, docPath, queue.VoiceParams{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if _, err := d.Submit(ctx, filepath.Join(t.TempDir(), "missing.pptx"), queue.VoiceParams{}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := d.Submit(ctx, "", queue.VoiceParams{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestDaemonQueueMaintenance(t *testing.T) {
	d, store := newTestDaemon(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, filepath.Join(t.TempDir(), "deck.pptx"), "Deck")
	job.SetFailed("synthesis failed")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := d.RetryFailed(ctx, []int64{job.ID})
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("updated = %d, want 1", updated)
	}

	ok, err := d.PauseJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("PauseJob: %v", err)
	}
	if !ok {
		t.Fatal("expected pause to apply")
	}

	resumed, err := d.ResumeJobs(ctx, []int64{job.ID})
	if err != nil {
		t.Fatalf("ResumeJobs: %v", err)
	}
	if resumed != 1 {
		t.Fatalf("resumed = %d, want 1", resumed)
	}

	health, err := d.QueueHealth(ctx)
	if err != nil {
		t.Fatalf("QueueHealth: %v", err)
	}
	if health.Total != 1 {
		t.Fatalf("total = %d, want 1", health.Total)
	}

	removed, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}
