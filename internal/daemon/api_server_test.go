package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"newsreel/internal/api"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/stage"
	"newsreel/internal/testsupport"
	"newsreel/internal/workflow"
)

type noopHandler struct{}

func (noopHandler) Prepare(context.Context, *queue.Job) error { return nil }
func (noopHandler) Execute(context.Context, *queue.Job) error { return nil }
func (noopHandler) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newTestRouter(t *testing.T) (http.Handler, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := &apiServer{queueSvc: api.NewQueueService(store)}
	return srv.routes(), store
}

func postJSON(t *testing.T, router http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIServerIngestAndFetch(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/jobs", api.IngestRequest{
		Title:      "Ports Reopen After Strike",
		URL:        "https://example.com/ports",
		SourceName: "Harbor Times",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 Created, got %d: %s", w.Code, w.Body.String())
	}
	var created api.IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if created.JobID == "" {
		t.Fatal("expected job id in response")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/queue/"+created.JobID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var fetched api.JobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode job response: %v", err)
	}
	if fetched.Job.Title != "Ports Reopen After Strike" {
		t.Fatalf("unexpected title: %q", fetched.Job.Title)
	}
	if fetched.Job.ScriptStage != string(queue.ScriptStagePending) {
		t.Fatalf("unexpected script stage: %q", fetched.Job.ScriptStage)
	}
}

func TestAPIServerIngestValidationAndConflict(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/api/jobs", api.IngestRequest{Title: "No URL"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", w.Code)
	}
	var errResp api.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Error == "" {
		t.Fatal("expected error message")
	}

	first := api.IngestRequest{Title: "Dup", URL: "https://example.com/dup"}
	if w := postJSON(t, router, "/api/jobs", first); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first submission, got %d", w.Code)
	}
	if w := postJSON(t, router, "/api/jobs", first); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate submission, got %d", w.Code)
	}
}

func TestAPIServerHandleQueueFilters(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	pending := testsupport.NewJob(t, store, "Pending Story", "https://example.com/pending")
	failed := testsupport.NewJob(t, store, "Failed Images", "https://example.com/failed")
	if err := failed.SetImageStage(queue.ImageStageFailed); err != nil {
		t.Fatalf("SetImageStage: %v", err)
	}
	failed.ErrorMessage = "image generation failed"
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var all api.JobListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(all.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all.Jobs))
	}
	ids := map[string]bool{all.Jobs[0].ID: true, all.Jobs[1].ID: true}
	if !ids[pending.ID] || !ids[failed.ID] {
		t.Fatalf("expected both jobs listed, got %v", ids)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue?image=failed", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var failedList api.JobListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &failedList); err != nil {
		t.Fatalf("decode failed list: %v", err)
	}
	if len(failedList.Jobs) != 1 || failedList.Jobs[0].ID != failed.ID {
		t.Fatalf("expected only the failed job, got %+v", failedList.Jobs)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue?stage=bogus", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown stage, got %d", w.Code)
	}
}

func TestAPIServerQueueItemNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/queue/no-such-job", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAPIServerRetryResetsImageBranch(t *testing.T) {
	router, store := newTestRouter(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "Retry Me", "https://example.com/retry")
	if err := job.SetImageStage(queue.ImageStageFailed); err != nil {
		t.Fatalf("SetImageStage: %v", err)
	}
	job.ErrorMessage = "image generation failed"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	w := postJSON(t, router, "/api/queue/"+job.ID+"/retry", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.RetryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode retry response: %v", err)
	}
	if resp.Updated != 1 {
		t.Fatalf("expected 1 updated branch, got %d", resp.Updated)
	}

	refreshed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if refreshed.ImageStage != queue.ImageStagePending {
		t.Fatalf("expected image stage pending, got %q", refreshed.ImageStage)
	}
}

func TestAPIServerBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	srv := &apiServer{token: "secret", queueSvc: api.NewQueueService(store)}
	router := srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/queue", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected /healthz to bypass auth, got %d", w.Code)
	}
}

func TestAPIServerStatusEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{Scripter: noopHandler{}})
	d, err := New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := &apiServer{daemon: d, queueSvc: api.NewQueueService(store)}
	router := srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Running {
		t.Fatal("expected stopped daemon")
	}
	if status.PID <= 0 {
		t.Fatalf("expected positive pid, got %d", status.PID)
	}
	if status.QueueDBPath != cfg.DatabasePath() {
		t.Fatalf("unexpected queue db path: %q", status.QueueDBPath)
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency statuses")
	}
}
