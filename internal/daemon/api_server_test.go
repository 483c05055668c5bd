package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/api"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
	"slidecast/internal/stage"
	"slidecast/internal/testsupport"
	"slidecast/internal/workflow"
)

type idleStage struct{}

func (idleStage) Prepare(context.Context, *queue.Job) error { return nil }
func (idleStage) Execute(context.Context, *queue.Job) error { return nil }
func (idleStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("idle")
}

func newAPITestDaemon(t *testing.T) (*Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, nil)
	mgr.ConfigureStages(workflow.StageSet{Extractor: idleStage{}})
	d, err := New(cfg, store, logger, mgr, "", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if d.api == nil {
		t.Fatal("expected api server to be configured")
	}
	return d, store
}

func TestAPIServerStatus(t *testing.T) {
	d, _ := newAPITestDaemon(t)

	rec := httptest.NewRecorder()
	d.api.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}

	var payload api.DaemonStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if payload.Running {
		t.Fatal("daemon should not report running before Start")
	}
	if len(payload.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
	if len(payload.Engines) == 0 {
		t.Fatal("expected engine statuses")
	}
}

func TestAPIServerSubmitAndDescribe(t *testing.T) {
	d, _ := newAPITestDaemon(t)

	deckPath := filepath.Join(t.TempDir(), "deck.pptx")
	if err := os.WriteFile(deckPath, []byte("slides"), 0o644); err != nil {
		t.Fatal(err)
	}

	body := strings.NewReader(`{"path":` + jsonString(deckPath) + `,"voice":"en-US-AriaNeural"}`)
	rec := httptest.NewRecorder()
	d.api.handleJobs(rec, httptest.NewRequest(http.MethodPost, "/api/jobs", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit code = %d body=%s", rec.Code, rec.Body.String())
	}

	var created api.JobItemResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if created.Item.Status != string(queue.StatusPending) {
		t.Fatalf("status = %q", created.Item.Status)
	}

	rec = httptest.NewRecorder()
	d.api.handleJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("describe code = %d", rec.Code)
	}
}

func jsonString(path string) string {
	encoded, _ := json.Marshal(path)
	return string(encoded)
}

func TestAPIServerJobControls(t *testing.T) {
	d, store := newAPITestDaemon(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, filepath.Join(t.TempDir(), "deck.pptx"), "Deck")

	rec := httptest.NewRecorder()
	d.api.handleJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/pause", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("pause code = %d body=%s", rec.Code, rec.Body.String())
	}

	paused, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if paused.Status != queue.StatusPaused {
		t.Fatalf("status after pause = %s", paused.Status)
	}

	rec = httptest.NewRecorder()
	d.api.handleJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/resume", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("resume code = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	d.api.handleJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/cancel", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel code = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	d.api.handleJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/cancel", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	d.api.handleJob(rec, httptest.NewRequest(http.MethodPost, "/api/jobs/1/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown action code = %d", rec.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("secret", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	handler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("valid token code = %d", rec.Code)
	}

	open := authMiddleware("", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec = httptest.NewRecorder()
	open(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("open code = %d", rec.Code)
	}
}
