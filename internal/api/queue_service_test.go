package api

import (
	"context"
	"errors"
	"testing"

	"newsreel/internal/queue"
	"newsreel/internal/testsupport"
)

func newTestService(t *testing.T) (*QueueService, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return NewQueueService(store), store
}

func TestQueueServiceIngestValidation(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Ingest(context.Background(), IngestRequest{URL: "https://news.example/no-title"}); !errors.Is(err, ErrInvalidIngest) {
		t.Fatalf("expected ErrInvalidIngest for missing title, got %v", err)
	}
	if _, err := svc.Ingest(context.Background(), IngestRequest{Title: "Headline without link"}); !errors.Is(err, ErrInvalidIngest) {
		t.Fatalf("expected ErrInvalidIngest for missing url, got %v", err)
	}
	if _, err := svc.Ingest(context.Background(), IngestRequest{Title: "   ", URL: "https://news.example/blank"}); !errors.Is(err, ErrInvalidIngest) {
		t.Fatalf("expected ErrInvalidIngest for blank title, got %v", err)
	}
}

func TestQueueServiceIngestInsertsPending(t *testing.T) {
	svc, _ := newTestService(t)

	job, err := svc.Ingest(context.Background(), IngestRequest{
		Title:       "Port expansion approved",
		URL:         "https://news.example/port-expansion",
		SourceName:  "Harbor Times",
		Description: "The council approved the port expansion after a marathon session.",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected a job id")
	}
	if job.ScriptStage != string(queue.ScriptStagePending) {
		t.Fatalf("script stage = %q, want pending", job.ScriptStage)
	}
	if job.ImageStage != string(queue.ImageStagePending) {
		t.Fatalf("image stage = %q, want pending", job.ImageStage)
	}
	if job.SourceName != "Harbor Times" {
		t.Fatalf("unexpected source: %q", job.SourceName)
	}

	got, err := svc.Describe(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got == nil || got.Title != "Port expansion approved" {
		t.Fatalf("Describe returned %+v", got)
	}
}

func TestQueueServiceIngestDuplicateURL(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := IngestRequest{Title: "Bridge reopens", URL: "https://news.example/bridge-reopens"}
	if _, err := svc.Ingest(ctx, req); err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if _, err := svc.Ingest(ctx, IngestRequest{Title: "Bridge reopens again", URL: req.URL}); !errors.Is(err, queue.ErrDuplicateURL) {
		t.Fatalf("expected ErrDuplicateURL, got %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("duplicate ingest must not insert, total = %d", stats.Total)
	}
}

func TestQueueServiceDescribeUnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	job, err := svc.Describe(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for unknown id, got %+v", job)
	}
}

func TestQueueServiceListFiltersByStage(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	testsupport.NewJob(t, store, "Story one", "https://news.example/one")
	scripted := testsupport.NewJob(t, store, "Story two", "https://news.example/two")
	scripted.Script = testsupport.SampleScript()
	if err := scripted.AdvanceScript(queue.ScriptStageScripted); err != nil {
		t.Fatalf("AdvanceScript: %v", err)
	}
	if err := store.Update(ctx, scripted); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}

	filtered, err := svc.List(ctx, queue.ScriptStageScripted)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != scripted.ID {
		t.Fatalf("expected only the scripted job, got %+v", filtered)
	}

	pendingImages, err := svc.ListByImageStage(ctx, queue.ImageStagePending)
	if err != nil {
		t.Fatalf("ListByImageStage: %v", err)
	}
	if len(pendingImages) != 2 {
		t.Fatalf("expected 2 pending image branches, got %d", len(pendingImages))
	}
}

func TestQueueServiceRetryResetsFailedImageBranches(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "Dam inspection ordered", "https://news.example/dam")
	if err := job.SetImageStage(queue.ImageStageFailed); err != nil {
		t.Fatalf("SetImageStage: %v", err)
	}
	job.ErrorMessage = "image service rejected every prompt"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	updated, err := svc.Retry(ctx)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 reset branch, got %d", updated)
	}

	got, err := svc.Describe(ctx, job.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if got.ImageStage != string(queue.ImageStagePending) {
		t.Fatalf("image stage = %q, want pending", got.ImageStage)
	}
	if got.ErrorMessage != "" {
		t.Fatalf("error message should clear on retry, got %q", got.ErrorMessage)
	}
}

func TestQueueServiceClearCompletedOnly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	done := testsupport.NewJob(t, store, "Election results certified", "https://news.example/results")
	done.Script = testsupport.SampleScript()
	for _, next := range []queue.ScriptStage{queue.ScriptStageScripted, queue.ScriptStageVoiced, queue.ScriptStageCompleted} {
		if err := done.AdvanceScript(next); err != nil {
			t.Fatalf("AdvanceScript(%s): %v", next, err)
		}
	}
	done.ImagePaths = []string{"s0.jpg", "s1.jpg", "s2.jpg", "s3.jpg"}
	if err := done.SetImageStage(queue.ImageStageCompleted); err != nil {
		t.Fatalf("SetImageStage: %v", err)
	}
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewJob(t, store, "Still pending", "https://news.example/pending")

	removed, err := svc.Clear(ctx, true)
	if err != nil {
		t.Fatalf("Clear completed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 cleared job, got %d", removed)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 1 || stats.ScriptPending != 1 {
		t.Fatalf("unexpected stats after clear: %+v", stats)
	}

	removed, err = svc.Clear(ctx, false)
	if err != nil {
		t.Fatalf("Clear all: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 cleared job, got %d", removed)
	}
}

func TestQueueServiceHealthReportsSchema(t *testing.T) {
	svc, store := newTestService(t)
	testsupport.NewJob(t, store, "Schema check", "https://news.example/schema")

	report := svc.Health(context.Background())
	if !report.DatabaseExists || !report.DatabaseReadable {
		t.Fatalf("expected readable database, got %+v", report)
	}
	if !report.TableExists || len(report.MissingColumns) != 0 {
		t.Fatalf("expected intact schema, got %+v", report)
	}
	if report.TotalJobs != 1 {
		t.Fatalf("expected 1 job, got %d", report.TotalJobs)
	}
	if !report.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}
