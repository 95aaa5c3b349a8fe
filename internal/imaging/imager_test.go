package imaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/services/imagegen"
	"newsreel/internal/testsupport"
)

type inferenceCall struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		NegativePrompt string `json:"negative_prompt"`
	} `json:"parameters"`
}

// newImageServer starts an inference endpoint that echoes the prompt into the
// image bytes, so tests can verify which prompt produced which file.
func newImageServer(t *testing.T, respond func(call inferenceCall, w http.ResponseWriter)) (*httptest.Server, func() []inferenceCall) {
	t.Helper()

	var mu sync.Mutex
	var calls []inferenceCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call inferenceCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			t.Errorf("decode inference request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()
		respond(call, w)
	}))
	t.Cleanup(server.Close)
	seen := func() []inferenceCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]inferenceCall(nil), calls...)
	}
	return server, seen
}

func newImageClient(baseURL string) *imagegen.Client {
	return imagegen.NewClient(imagegen.Config{
		BaseURL:        baseURL,
		APIKey:         "hf-test",
		Model:          "test/model",
		StyleSuffix:    "cinematic film still, 9:16 vertical",
		NegativePrompt: "text, words, letters",
	}, imagegen.WithRetryMaxAttempts(1), imagegen.WithSleeper(func(time.Duration) {}))
}

func writeImage(call inferenceCall, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/jpeg")
	_, _ = w.Write([]byte("JPEG:" + call.Inputs))
}

func promptedJob() *queue.Job {
	return &queue.Job{
		ID:          "job-9",
		Title:       "Trade summit reaches rail corridor deal",
		Script:      testsupport.SampleScript(),
		ScriptStage: queue.ScriptStageScripted,
		ImageStage:  queue.ImageStagePending,
	}
}

func TestImagerExecuteWritesSceneImages(t *testing.T) {
	server, seen := newImageServer(t, writeImage)
	cfg := testsupport.NewConfig(t)
	imager := NewImagerWithDependencies(cfg, nil, logging.NewNop(), newImageClient(server.URL))

	job := promptedJob()
	if err := imager.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	jobDir := filepath.Join(cfg.Paths.ImagesDir, job.ID)
	if len(job.ImagePaths) != queue.SceneCount {
		t.Fatalf("expected %d image paths, got %d", queue.SceneCount, len(job.ImagePaths))
	}
	for idx, path := range job.ImagePaths {
		want := filepath.Join(jobDir, fmt.Sprintf("s%d.jpg", idx+1))
		if path != want {
			t.Fatalf("ImagePaths[%d] = %q, want %q", idx, path, want)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read scene %d: %v", idx+1, err)
		}
		prompt := job.Script.VisualPrompts[idx]
		if !strings.Contains(string(content), prompt) {
			t.Fatalf("scene %d holds the wrong prompt: %q", idx+1, content)
		}
		if !strings.Contains(string(content), "cinematic film still") {
			t.Fatalf("scene %d missing the style suffix: %q", idx+1, content)
		}
	}

	calls := seen()
	if len(calls) != queue.SceneCount {
		t.Fatalf("expected %d inference calls, got %d", queue.SceneCount, len(calls))
	}
	for _, call := range calls {
		if call.Parameters.NegativePrompt != "text, words, letters" {
			t.Fatalf("missing negative prompt in call: %+v", call)
		}
	}
}

func TestImagerExecuteRemovesDirOnTransientFailure(t *testing.T) {
	server, _ := newImageServer(t, func(call inferenceCall, w http.ResponseWriter) {
		if strings.Contains(call.Inputs, "cranes") {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"model is currently loading"}`))
			return
		}
		writeImage(call, w)
	})
	cfg := testsupport.NewConfig(t)
	imager := NewImagerWithDependencies(cfg, nil, logging.NewNop(), newImageClient(server.URL))

	job := promptedJob()
	err := imager.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if !strings.Contains(err.Error(), "scene 3") {
		t.Fatalf("expected the failing scene in the error, got %v", err)
	}
	if len(job.ImagePaths) != 0 {
		t.Fatalf("expected no image paths on failure, got %v", job.ImagePaths)
	}
	jobDir := filepath.Join(cfg.Paths.ImagesDir, job.ID)
	if _, statErr := os.Stat(jobDir); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected partial image directory to be removed, stat: %v", statErr)
	}
}

func TestImagerExecuteClassifiesTerminalFailure(t *testing.T) {
	server, _ := newImageServer(t, func(call inferenceCall, w http.ResponseWriter) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	})
	cfg := testsupport.NewConfig(t)
	imager := NewImagerWithDependencies(cfg, nil, logging.NewNop(), newImageClient(server.URL))

	err := imager.Execute(context.Background(), promptedJob())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatalf("401 must not classify as transient: %v", err)
	}
}

func TestImagerExecuteClearsStaleImages(t *testing.T) {
	server, _ := newImageServer(t, writeImage)
	cfg := testsupport.NewConfig(t)
	imager := NewImagerWithDependencies(cfg, nil, logging.NewNop(), newImageClient(server.URL))

	job := promptedJob()
	jobDir := filepath.Join(cfg.Paths.ImagesDir, job.ID)
	stale := filepath.Join(jobDir, "stale.jpg")
	testsupport.WriteFile(t, stale, 64)

	if err := imager.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if _, err := os.Stat(stale); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected stale image to be removed, stat: %v", err)
	}
	if _, err := os.Stat(filepath.Join(jobDir, "s4.jpg")); err != nil {
		t.Fatalf("expected fresh scene images: %v", err)
	}
}

func TestImagerExecuteRequiresPrompts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	imager := NewImagerWithDependencies(cfg, nil, logging.NewNop(), newImageClient("http://localhost:1"))

	job := promptedJob()
	job.Script = nil
	err := imager.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestImagerExecuteRequiresConfiguredService(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	unconfigured := imagegen.NewClient(imagegen.Config{Model: "test/model"})
	imager := NewImagerWithDependencies(cfg, nil, logging.NewNop(), unconfigured)

	err := imager.Execute(context.Background(), promptedJob())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestImagerHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithImageGen("http://localhost:9999", "hf-test", "test/model"))
	imager := NewImager(cfg, nil, logging.NewNop())
	if health := imager.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy imager, got %+v", health)
	}

	unconfigured := testsupport.NewConfig(t)
	imager = NewImager(unconfigured, nil, logging.NewNop())
	if health := imager.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy imager without an API key")
	}
}
