package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"newsreel/internal/queue"
)

func TestClientIngest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Title != "Reservoir levels recover" || req.SourceName != "Water Desk" {
			t.Fatalf("unexpected payload: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(IngestResponse{JobID: "9be0a1fa-8c13-4b9f-9c6e-0f3a2d9e1b77"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	resp, err := client.Ingest(context.Background(), IngestRequest{
		Title:      "Reservoir levels recover",
		URL:        "https://news.example/reservoir",
		SourceName: "Water Desk",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("expected a job id")
	}
}

func TestClientIngestDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "a job already holds this news url"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Ingest(context.Background(), IngestRequest{Title: "Dup", URL: "https://news.example/dup"})
	if !errors.Is(err, queue.ErrDuplicateURL) {
		t.Fatalf("expected ErrDuplicateURL, got %v", err)
	}
}

func TestClientIngestValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "ingest requires a title and a url"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.Ingest(context.Background(), IngestRequest{Title: "No URL"})
	if err == nil || !strings.Contains(err.Error(), "ingest requires") {
		t.Fatalf("expected validation message, got %v", err)
	}
}

func TestClientListJobsSendsFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/queue" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("stage"); got != "voiced" {
			t.Fatalf("stage filter = %q, want voiced", got)
		}
		if got := r.URL.Query().Get("image"); got != "failed" {
			t.Fatalf("image filter = %q, want failed", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(JobListResponse{Jobs: []Job{{ID: "one", ScriptStage: "voiced", ImageStage: "failed"}}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	jobs, err := client.ListJobs(context.Background(), "voiced", "failed")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "one" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}

func TestClientGetJobNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "job not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	job, err := client.GetJob(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestClientStatusAndPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/api/status":
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(DaemonStatus{Running: true, PID: 4242})
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != 4242 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestClientRetryJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/queue/abc-123/retry" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(RetryResponse{Updated: 1})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	resp, err := client.RetryJob(context.Background(), "abc-123")
	if err != nil {
		t.Fatalf("RetryJob: %v", err)
	}
	if resp.Updated != 1 {
		t.Fatalf("Updated = %d, want 1", resp.Updated)
	}
}

func TestNewClientPromotesBareAddress(t *testing.T) {
	client := NewClient("127.0.0.1:7787", "")
	if client.baseURL != "http://127.0.0.1:7787" {
		t.Fatalf("unexpected base url: %q", client.baseURL)
	}
	client = NewClient("", "")
	if client.baseURL != "http://127.0.0.1:7787" {
		t.Fatalf("unexpected default base url: %q", client.baseURL)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
