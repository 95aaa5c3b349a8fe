package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"newsreel/internal/config"
	"newsreel/internal/logging"
	"newsreel/internal/queue"
	"newsreel/internal/services"
	"newsreel/internal/services/llm"
	"newsreel/internal/testsupport"
)

const validScriptJSON = `{
	"narration_script": "According to Reuters, the summit produced a breakthrough on rail funding.",
	"visual_prompts": [
		"two diplomats shaking hands in a marble hall",
		"a podium before a packed press room",
		"advisers reviewing documents late at night",
		"a freight train departing a floodlit station"
	]
}`

// modelServer routes chat-completion requests by the model named in the
// request body and counts the hits per model.
type modelServer struct {
	mu     sync.Mutex
	hits   map[string]int
	server *httptest.Server
}

func newModelServer(t *testing.T, handle func(model string, w http.ResponseWriter)) *modelServer {
	t.Helper()

	ms := &modelServer{hits: map[string]int{}}
	ms.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode llm request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		ms.mu.Lock()
		ms.hits[req.Model]++
		ms.mu.Unlock()
		handle(req.Model, w)
	}))
	t.Cleanup(ms.server.Close)
	return ms
}

func (ms *modelServer) hitCount(model string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.hits[model]
}

// factory builds real LLM clients pointed at the test server, with retries
// collapsed so transient statuses surface immediately.
func (ms *modelServer) factory() ModelFactory {
	return func(model string) ScriptModel {
		return llm.NewClient(llm.Config{
			APIKey:  "test",
			BaseURL: ms.server.URL,
			Model:   model,
		}, llm.WithRetryMaxAttempts(1), llm.WithSleeper(func(time.Duration) {}))
	}
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func scriptingConfig(t *testing.T, models ...string) *config.Config {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	cfg.Scripting.Models = models
	return cfg
}

func storyJob() *queue.Job {
	return &queue.Job{
		ID:            "job-1",
		Title:         "Trade summit reaches rail corridor deal",
		NewsURL:       "https://news.example/rail",
		NewsSource:    "Reuters",
		PublishedDate: "2026-02-12",
		Content:       "Negotiators agreed to fund a new freight rail corridor after three days of talks.",
	}
}

func TestScripterExecuteFallsThroughTransientModels(t *testing.T) {
	ms := newModelServer(t, func(model string, w http.ResponseWriter) {
		switch model {
		case "flaky/model":
			w.WriteHeader(http.StatusTooManyRequests)
		case "backup/model":
			writeCompletion(w, validScriptJSON)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	})
	cfg := scriptingConfig(t, "flaky/model", "backup/model")
	scripter := NewScripterWithDependencies(cfg, nil, logging.NewNop(), ms.factory())

	job := storyJob()
	if err := scripter.Execute(context.Background(), job); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if job.Script == nil {
		t.Fatal("expected script to be set on the job")
	}
	if !strings.Contains(job.Script.Narration, "According to Reuters") {
		t.Fatalf("unexpected narration: %q", job.Script.Narration)
	}
	if len(job.Script.VisualPrompts) != queue.SceneCount {
		t.Fatalf("expected %d prompts, got %d", queue.SceneCount, len(job.Script.VisualPrompts))
	}
	if got := ms.hitCount("flaky/model"); got != 1 {
		t.Fatalf("expected 1 hit on flaky model, got %d", got)
	}
	if got := ms.hitCount("backup/model"); got != 1 {
		t.Fatalf("expected 1 hit on backup model, got %d", got)
	}
}

func TestScripterExecuteAbortsOnTerminalModelError(t *testing.T) {
	ms := newModelServer(t, func(model string, w http.ResponseWriter) {
		switch model {
		case "denied/model":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			writeCompletion(w, validScriptJSON)
		}
	})
	cfg := scriptingConfig(t, "denied/model", "backup/model")
	scripter := NewScripterWithDependencies(cfg, nil, logging.NewNop(), ms.factory())

	job := storyJob()
	err := scripter.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if job.Script != nil {
		t.Fatal("expected no script on terminal failure")
	}
	if got := ms.hitCount("backup/model"); got != 0 {
		t.Fatalf("terminal error must abort the waterfall, backup hit %d times", got)
	}
}

func TestScripterExecuteExhaustsWaterfall(t *testing.T) {
	ms := newModelServer(t, func(model string, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	cfg := scriptingConfig(t, "first/model", "second/model")
	scripter := NewScripterWithDependencies(cfg, nil, logging.NewNop(), ms.factory())

	err := scripter.Execute(context.Background(), storyJob())
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient after exhausting the waterfall, got %v", err)
	}
	if got := ms.hitCount("first/model"); got != 1 {
		t.Fatalf("expected 1 hit on first model, got %d", got)
	}
	if got := ms.hitCount("second/model"); got != 1 {
		t.Fatalf("expected 1 hit on second model, got %d", got)
	}
}

func TestScripterExecuteRejectsMalformedScript(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"not json", "sorry, I cannot produce JSON today"},
		{"wrong prompt count", `{"narration_script": "hello", "visual_prompts": ["one", "two", "three"]}`},
		{"empty narration", `{"narration_script": "  ", "visual_prompts": ["a", "b", "c", "d"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ms := newModelServer(t, func(model string, w http.ResponseWriter) {
				writeCompletion(w, tc.content)
			})
			cfg := scriptingConfig(t, "only/model", "never/model")
			scripter := NewScripterWithDependencies(cfg, nil, logging.NewNop(), ms.factory())

			job := storyJob()
			err := scripter.Execute(context.Background(), job)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if job.Script != nil {
				t.Fatal("expected no script on malformed output")
			}
			if got := ms.hitCount("never/model"); got != 0 {
				t.Fatalf("malformed output must not retry on the next model, hit %d times", got)
			}
		})
	}
}

func TestScripterExecuteRequiresContent(t *testing.T) {
	cfg := scriptingConfig(t, "only/model")
	var calls int
	scripter := NewScripterWithDependencies(cfg, nil, logging.NewNop(), func(model string) ScriptModel {
		calls++
		return llm.NewClient(llm.Config{APIKey: "test", Model: model})
	})

	job := storyJob()
	job.Content = "   "
	err := scripter.Execute(context.Background(), job)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no model calls for an empty story, got %d", calls)
	}
}

func TestScripterExecuteRequiresModels(t *testing.T) {
	cfg := scriptingConfig(t)
	scripter := NewScripterWithDependencies(cfg, nil, logging.NewNop(), nil)

	err := scripter.Execute(context.Background(), storyJob())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestBuildScriptPromptCitesSourceAndSceneCount(t *testing.T) {
	prompt := buildScriptPrompt(storyJob())
	if !strings.Contains(prompt, `"According to Reuters..."`) {
		t.Fatalf("prompt must instruct citing the source:\n%s", prompt)
	}
	if !strings.Contains(prompt, "PUBLISHED DATE: 2026-02-12") {
		t.Fatalf("prompt must carry the published date:\n%s", prompt)
	}
	if !strings.Contains(prompt, "exactly 4 visual scene prompts") {
		t.Fatalf("prompt must pin the scene count:\n%s", prompt)
	}
	if !strings.Contains(prompt, "NEVER request maps") {
		t.Fatalf("prompt must forbid map imagery:\n%s", prompt)
	}
}

func TestBuildScriptPromptFallsBackOnMissingMetadata(t *testing.T) {
	job := storyJob()
	job.NewsSource = ""
	job.PublishedDate = ""
	prompt := buildScriptPrompt(job)
	if !strings.Contains(prompt, `"According to verified sources..."`) {
		t.Fatalf("expected source fallback:\n%s", prompt)
	}
	if !strings.Contains(prompt, "PUBLISHED DATE: recently") {
		t.Fatalf("expected date fallback:\n%s", prompt)
	}
}

func TestDecodeScriptStripsFencesAndTrims(t *testing.T) {
	fenced := "```json\n" + `{"narration_script": "  hello world  ", "visual_prompts": [" a ", "b", "c", "d"]}` + "\n```"
	script, err := decodeScript(fenced)
	if err != nil {
		t.Fatalf("decodeScript returned error: %v", err)
	}
	if script.Narration != "hello world" {
		t.Fatalf("expected trimmed narration, got %q", script.Narration)
	}
	if script.VisualPrompts[0] != "a" {
		t.Fatalf("expected trimmed prompt, got %q", script.VisualPrompts[0])
	}
}

func TestScripterHealthCheck(t *testing.T) {
	cfg := scriptingConfig(t, "only/model")
	scripter := NewScripter(cfg, nil, logging.NewNop())
	if health := scripter.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy scripter, got %+v", health)
	}

	cfg.Scripting.Models = nil
	if health := scripter.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy scripter without models")
	}

	cfg.Scripting.Models = []string{"only/model"}
	cfg.LLM.APIKey = ""
	if health := scripter.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy scripter without an API key")
	}
}
